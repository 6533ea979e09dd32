package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docverify/internal/verifier"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if err := verifier.ClearBuildFolder(cfg.BuildDir()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Stdout, "Removed %s\n", cfg.BuildDir())
	return nil
}
