package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/sitebuild"
)

// BuildCmd implements the 'build' command. The output is left in place.
type BuildCmd struct {
	ShowOutput bool `name:"show-output" help:"Print the captured build output"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := newBuilder(cfg).Build(ctx)
	if err != nil {
		return errors.WrapError(err, errors.CategoryBuild, "site build could not be run").Build()
	}
	return reportBuild(g, res, b.ShowOutput || root.Verbose)
}

func reportBuild(g *Global, res *sitebuild.Result, showOutput bool) error {
	if showOutput && res.Output != "" {
		_, _ = fmt.Fprintln(g.Stdout, res.Output)
	}
	if !res.Success() {
		return errors.BuildError(fmt.Sprintf("site build exited with code %d", res.ExitCode)).
			WithContext("command", res.Command).
			Build()
	}
	_, _ = fmt.Fprintf(g.Stdout, "Build succeeded: %s (%s)\n", res.Command, res.Duration.Round(1e6))
	return nil
}
