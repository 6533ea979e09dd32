package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/docverify/internal/discovery"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	List   bool   `short:"l" help:"Print every matched path"`
	Format string `short:"f" help:"Output format" enum:"text,json" default:"text"`
}

func (d *DiscoverCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	sets, err := discovery.Discover(context.Background(), discovery.SitePatterns(cfg)...)
	if err != nil {
		return err
	}

	if d.Format == "json" {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sets)
	}
	for _, s := range sets {
		_, _ = fmt.Fprintf(g.Stdout, "%-15s %5d  %s\n", s.Name, s.Len(), s.Pattern)
		if d.List {
			for _, p := range s.Paths {
				_, _ = fmt.Fprintf(g.Stdout, "  %s\n", p)
			}
		}
	}
	return nil
}
