package commands

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/history"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit  int    `short:"n" help:"Number of runs to list (0 lists all)" default:"20"`
	ID     string `help:"Show the full report of one run"`
	Format string `short:"f" help:"Output format" enum:"text,json" default:"text"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.ConfigError("run history is not enabled (set history.path)").Build()
	}
	store, err := history.NewSQLiteStore(cfg.Abs(cfg.History.Path))
	if err != nil {
		return errors.StoreError("open run history").WithCause(err).Build()
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.ID != "" {
		report, err := store.Get(ctx, h.ID)
		if stderrors.Is(err, history.ErrNotFound) {
			return errors.NewError(errors.CategoryNotFound, "run not found").WithContext("id", h.ID).Build()
		}
		if err != nil {
			return errors.WrapError(err, errors.CategoryStore, "load run").Build()
		}
		return verifier.NewFormatter(h.Format, cfg.Root, true).Format(g.Stdout, report)
	}

	entries, err := store.List(ctx, h.Limit)
	if err != nil {
		return errors.WrapError(err, errors.CategoryStore, "list runs").Build()
	}
	if h.Format == "json" {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(g.Stdout, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tOUTCOME\tEXIT\tDURATION\tREVISION")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Outcome, e.ExitCode,
			e.Duration().Round(1e6), e.Revision)
	}
	return tw.Flush()
}
