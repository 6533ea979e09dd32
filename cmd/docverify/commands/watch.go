package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/metrics"
	"git.home.luguber.info/inful/docverify/internal/verifier"
	"git.home.luguber.info/inful/docverify/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Addr string `help:"Status server listen address (overrides watch.addr)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if w.Addr != "" {
		cfg.Watch.Addr = w.Addr
	}

	tp, err := root.newTracer()
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "set up tracing").Build()
	}
	defer shutdownTracer(tp)

	s, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	reg := metrics.NewRegistry()
	ver := verifier.New(cfg, newBuilder(cfg)).
		WithRecorder(metrics.NewPrometheusRecorder(reg)).
		WithTracer(tp.Tracer()).
		WithSinks(s.list()...)

	svc, err := watch.NewService(cfg, ver, watch.Options{Registry: reg, History: s.historyStore()})
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "start watch mode").Build()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g.Logger.Info("Watching for changes", "addr", cfg.Watch.Addr, "interval", cfg.Watch.Interval)
	if err := svc.Run(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "watch mode stopped").
			WithContext("addr", cfg.Watch.Addr).Build()
	}
	return nil
}
