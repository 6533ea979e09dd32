package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docverify/internal/generator"
)

// GenerateCmd implements the 'generate' command.
type GenerateCmd struct{}

func (c *GenerateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	stats, err := generator.New(cfg).Generate(context.Background())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Stdout, "Generated %d pages, %d stylesheets, %d assets into %s\n",
		stats.Pages, stats.Stylesheets, stats.Assets, cfg.OutputRoot())
	if stats.Skipped > 0 {
		_, _ = fmt.Fprintf(g.Stdout, "Skipped %d documents without an id\n", stats.Skipped)
	}
	return nil
}
