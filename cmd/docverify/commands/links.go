package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docverify/internal/discovery"
	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/linkmod"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

// LinksCmd implements the 'links' command.
type LinksCmd struct {
	Check bool `help:"Only report external links without target=\"_blank\", do not rewrite"`
}

func (l *LinksCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	hosts := verifier.New(cfg, nil).Hosts()
	ctx := context.Background()

	if l.Check {
		return l.check(ctx, g, cfg.OutputRoot(), discovery.SitePatterns(cfg)[1], hosts)
	}

	n, err := linkmod.RewriteDir(ctx, cfg.OutputRoot(), hosts)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "rewrite external links").
			WithContext("dir", cfg.OutputRoot()).
			Build()
	}
	_, _ = fmt.Fprintf(g.Stdout, "Rewrote %d external links under %s\n", n, cfg.OutputRoot())
	return nil
}

func (l *LinksCmd) check(ctx context.Context, g *Global, dir string, pattern discovery.Pattern, hosts linkmod.Hosts) error {
	set, err := discovery.Glob(ctx, pattern)
	if err != nil {
		return err
	}
	findings, err := verifier.CheckExternalLinksTargetBlank(ctx, set, hosts)
	if err != nil {
		return err
	}
	for _, f := range findings {
		_, _ = fmt.Fprintf(g.Stdout, "%s: %s\n", f.Subject, f.Expected)
	}
	if len(findings) > 0 {
		return errors.VerificationError(fmt.Sprintf("%d external links without target=\"_blank\"", len(findings))).
			WithContext("dir", dir).
			Build()
	}
	_, _ = fmt.Fprintf(g.Stdout, "All external links in %d pages open in a new tab\n", set.Len())
	return nil
}
