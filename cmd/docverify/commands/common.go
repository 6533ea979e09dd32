package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docverify/internal/config"
	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/generator"
	"git.home.luguber.info/inful/docverify/internal/history"
	"git.home.luguber.info/inful/docverify/internal/logfields"
	"git.home.luguber.info/inful/docverify/internal/notify"
	"git.home.luguber.info/inful/docverify/internal/observability"
	"git.home.luguber.info/inful/docverify/internal/sitebuild"
	"git.home.luguber.info/inful/docverify/internal/tracing"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

// NewGlobal returns the default global context writing to stdout.
func NewGlobal() *Global {
	return &Global{Logger: slog.Default(), Stdout: os.Stdout}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docverify.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	LogFile string           `name:"log-file" help:"Also write logs to this rotating file"`
	LogJSON bool             `name:"log-json" help:"Log as JSON instead of text"`
	Trace   bool             `help:"Write OpenTelemetry spans to stderr"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Verify   VerifyCmd   `cmd:"" help:"Build the site, verify the output and clean up"`
	Build    BuildCmd    `cmd:"" help:"Run the configured site build only"`
	Discover DiscoverCmd `cmd:"" help:"List the input and output file sets"`
	Clean    CleanCmd    `cmd:"" help:"Remove the build output directory"`
	Generate GenerateCmd `cmd:"" help:"Render the site with the built-in reference generator"`
	Links    LinksCmd    `cmd:"" help:"Mark external links in the build output to open in a new tab"`
	Watch    WatchCmd    `cmd:"" help:"Re-verify on input changes and serve status over HTTP"`
	History  HistoryCmd  `cmd:"" help:"Show past verification runs"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`

	logCloser io.Closer `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	_, closer, err := observability.Setup(observability.LogOptions{
		Verbose: c.Verbose,
		File:    c.LogFile,
		JSON:    c.LogJSON,
	})
	if err != nil {
		return err
	}
	c.logCloser = closer
	return nil
}

// Close releases the log file.
func (c *CLI) Close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.Config)
}

// newTracer returns the tracing provider selected by --trace.
func (c *CLI) newTracer() (*tracing.Provider, error) {
	if !c.Trace {
		return tracing.NewProvider(nil)
	}
	return tracing.NewProvider(os.Stderr)
}

// newBuilder selects the in-process generator or the external command.
func newBuilder(cfg *config.Config) sitebuild.Builder {
	if cfg.Build.Command == config.BuiltinCommand {
		return generator.New(cfg)
	}
	return sitebuild.NewCommandBuilder(cfg.Build.Command, cfg.SiteDir(), cfg.Build.Env, cfg.Build.Timeout)
}

// sinks holds the optional report sinks of a run.
type sinks struct {
	store    *history.SQLiteStore
	notifier notify.Notifier
}

// openSinks opens the history store and notifier configured in cfg.
func openSinks(cfg *config.Config) (*sinks, error) {
	s := &sinks{}
	if cfg.History.Path != "" {
		store, err := history.NewSQLiteStore(cfg.Abs(cfg.History.Path))
		if err != nil {
			return nil, errors.StoreError("open run history").WithCause(err).Build()
		}
		s.store = store
	}
	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		// Notifications are best effort.
		slog.Warn("Notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		notifier = notify.Noop{}
	}
	s.notifier = notifier
	return s, nil
}

func (s *sinks) list() []verifier.Sink {
	out := []verifier.Sink{s.notifier}
	if s.store != nil {
		out = append(out, s.store)
	}
	return out
}

func (s *sinks) historyStore() history.Store {
	if s.store == nil {
		return nil
	}
	return s.store
}

func (s *sinks) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	_ = s.notifier.Close()
}

func shutdownTracer(p *tracing.Provider) {
	_ = p.Shutdown(context.Background())
}
