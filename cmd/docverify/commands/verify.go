package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct {
	NoBuild       bool     `name:"no-build" help:"Verify existing output without building or removing it"`
	KeepOutput    bool     `name:"keep-output" help:"Keep the build output after verification"`
	Format        string   `short:"f" help:"Report format" enum:"text,json" default:"text"`
	Skip          []string `help:"Checks to skip (repeatable)"`
	ExternalLinks bool     `name:"external-links" help:"Also check that external links open in a new tab"`
}

func (v *VerifyCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	cfg.Checks.Skip = append(cfg.Checks.Skip, v.Skip...)
	if v.ExternalLinks {
		cfg.Checks.ExternalLinks = true
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

	ver := verifier.New(cfg, newBuilder(cfg)).
		WithTracer(tp.Tracer()).
		WithSinks(s.list()...).
		WithKeepOutput(v.KeepOutput || cfg.KeepOutput)
	if v.NoBuild {
		ver = ver.WithoutBuild()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := ver.Run(ctx)
	if err := verifier.NewFormatter(v.Format, cfg.Root, root.Verbose).Format(g.Stdout, report); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "write report").Build()
	}
	if runErr != nil {
		return runErr
	}
	if !report.Passed() {
		return errors.VerificationError(fmt.Sprintf("%d of %d checks failed", len(report.FailedChecks()), len(report.Checks))).
			WithContext("run_id", report.ID).
			Build()
	}
	return nil
}
