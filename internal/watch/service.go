package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docverify/internal/api"
	"git.home.luguber.info/inful/docverify/internal/config"
	"git.home.luguber.info/inful/docverify/internal/history"
	"git.home.luguber.info/inful/docverify/internal/logfields"
	"git.home.luguber.info/inful/docverify/internal/metrics"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

const shutdownTimeout = 5 * time.Second

// Options holds the optional collaborators of a Service.
type Options struct {
	Registry *prometheus.Registry // served on /metrics when set
	History  history.Store        // served on /runs when set
}

// Service ties the runner, file watcher, scheduler and status server together.
type Service struct {
	cfg       *config.Config
	runner    *Runner
	watcher   *FileWatcher
	scheduler *Scheduler
	server    *api.Server
}

// NewService wires watch mode for cfg around v.
func NewService(cfg *config.Config, v *verifier.Verifier, opts Options) (*Service, error) {
	runner := NewRunner(v)

	watcher, err := NewFileWatcher(WatchDirs(cfg), []string{cfg.BuildDir()}, cfg.Watch.Debounce, func() {
		runner.Trigger(ReasonChange)
	})
	if err != nil {
		return nil, err
	}

	s := &Service{cfg: cfg, runner: runner, watcher: watcher}

	if cfg.Watch.Interval > 0 {
		if s.scheduler, err = NewScheduler(); err != nil {
			_ = watcher.Stop()
			return nil, err
		}
	}

	if cfg.Watch.Addr != "" {
		apiOpts := []api.Option{api.WithTrigger(runner.Trigger)}
		if opts.Registry != nil {
			apiOpts = append(apiOpts, api.WithMetrics(metrics.HTTPHandler(opts.Registry)))
		}
		if opts.History != nil {
			apiOpts = append(apiOpts, api.WithHistory(opts.History))
		}
		s.server = api.NewServer(cfg.Watch.Addr, runner, apiOpts...)
	}
	return s, nil
}

// Runner exposes the run loop, mainly for tests.
func (s *Service) Runner() *Runner { return s.runner }

// Run starts watch mode and blocks until ctx is done or the server fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.runner.Loop(ctx)
	s.runner.Trigger(ReasonStartup)

	if err := s.watcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = s.watcher.Stop() }()

	if s.scheduler != nil {
		if _, err := s.scheduler.SchedulePeriodic(s.cfg.Watch.Interval, func() {
			s.runner.Trigger(ReasonSchedule)
		}); err != nil {
			return err
		}
		s.scheduler.Start()
		defer func() { _ = s.scheduler.Stop() }()
	}

	serverErr := make(chan error, 1)
	if s.server != nil {
		go func() {
			slog.Info("Status server listening", logfields.URL(s.server.Addr))
			serverErr <- s.server.Start()
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serverErr:
	}

	if s.server != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if shutdownErr := s.server.Shutdown(shutdownCtx); shutdownErr != nil {
			slog.Warn("Status server shutdown failed", logfields.Error(shutdownErr))
		}
	}
	cancel()
	<-s.runner.Done()
	return err
}

// WatchDirs returns the static directory prefixes of the input patterns,
// dropping directories already covered by another entry.
func WatchDirs(cfg *config.Config) []string {
	var bases []string
	for _, pattern := range []string{cfg.Inputs.Markdown, cfg.Inputs.CSS, cfg.Inputs.Assets} {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		bases = append(bases, cfg.Abs(filepath.FromSlash(base)))
	}

	var dirs []string
	for i, dir := range bases {
		covered := false
		for j, other := range bases {
			if i == j {
				continue
			}
			if within(other, dir) && (other != dir || j < i) {
				covered = true
				break
			}
		}
		if !covered {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// within reports whether path is dir or below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
