// Package verifier runs one build-and-verify cycle: trigger the site build,
// discover input and output file sets, compare them, and tear the output down.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/docverify/internal/config"
	"git.home.luguber.info/inful/docverify/internal/discovery"
	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/linkmod"
	"git.home.luguber.info/inful/docverify/internal/logfields"
	"git.home.luguber.info/inful/docverify/internal/metrics"
	"git.home.luguber.info/inful/docverify/internal/minify"
	"git.home.luguber.info/inful/docverify/internal/revision"
	"git.home.luguber.info/inful/docverify/internal/sitebuild"
	"git.home.luguber.info/inful/docverify/internal/tracing"
)

// Sink receives every completed report (history store, notifier, watch status).
type Sink interface {
	Name() string
	Record(ctx context.Context, r *Report) error
}

// Verifier executes verification cycles for one configuration.
type Verifier struct {
	cfg        *config.Config
	builder    sitebuild.Builder
	recorder   metrics.Recorder
	tracer     trace.Tracer
	minify     minify.Func
	sinks      []Sink
	skipBuild  bool
	keepOutput bool
}

// New creates a verifier that builds the site with builder.
func New(cfg *config.Config, builder sitebuild.Builder) *Verifier {
	if builder == nil {
		builder = sitebuild.NoopBuilder{}
	}
	return &Verifier{
		cfg:        cfg,
		builder:    builder,
		recorder:   metrics.NoopRecorder{},
		tracer:     tracing.Noop(),
		minify:     minify.CSS,
		keepOutput: cfg.KeepOutput,
	}
}

// WithRecorder sets the metrics recorder.
func (v *Verifier) WithRecorder(r metrics.Recorder) *Verifier {
	if r != nil {
		v.recorder = r
	}
	return v
}

// WithTracer sets the tracer used for run, build and check spans.
func (v *Verifier) WithTracer(t trace.Tracer) *Verifier {
	if t != nil {
		v.tracer = t
	}
	return v
}

// WithMinifier replaces the CSS minifier collaborator.
func (v *Verifier) WithMinifier(fn minify.Func) *Verifier {
	if fn != nil {
		v.minify = fn
	}
	return v
}

// WithSinks appends report sinks.
func (v *Verifier) WithSinks(sinks ...Sink) *Verifier {
	for _, s := range sinks {
		if s != nil {
			v.sinks = append(v.sinks, s)
		}
	}
	return v
}

// WithoutBuild verifies existing output. The build folder is neither built nor removed.
func (v *Verifier) WithoutBuild() *Verifier {
	v.skipBuild = true
	v.keepOutput = true
	return v
}

// WithKeepOutput keeps the build output after the cycle.
func (v *Verifier) WithKeepOutput(keep bool) *Verifier {
	v.keepOutput = keep || v.skipBuild
	return v
}

// Config returns the configuration the verifier runs with.
func (v *Verifier) Config() *config.Config { return v.cfg }

// Run executes one cycle. The returned report is never nil. A non-nil error
// means the cycle was aborted before all checks ran; failed checks alone are
// reported through the report outcome.
func (v *Verifier) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		ID:        uuid.NewString(),
		Project:   v.cfg.ProjectName,
		StartedAt: time.Now(),
		Sets:      map[string]int{},
	}
	log := slog.With(logfields.RunID(report.ID), logfields.Project(report.Project))

	ctx, span := v.tracer.Start(ctx, "verify.run", trace.WithAttributes(
		attribute.String("run.id", report.ID),
		attribute.String("project", report.Project),
	))
	defer span.End()

	if info, ok, err := revision.Resolve(v.cfg.Root); err != nil {
		log.Warn("Could not resolve revision", logfields.Error(err))
	} else if ok {
		report.Revision = info.Commit
		report.Dirty = info.Dirty
	}

	log.Info("Verification started", logfields.Revision(report.Revision))
	err := v.cycle(ctx, report, log)

	report.FinishedAt = time.Now()
	switch {
	case err != nil && report.Outcome == "":
		report.Outcome = OutcomeError
	case err == nil && len(report.FailedChecks()) > 0:
		report.Outcome = OutcomeFailed
	case err == nil:
		report.Outcome = OutcomePassed
	}
	if err != nil {
		report.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("outcome", string(report.Outcome)))

	v.recorder.IncRunOutcome(string(report.Outcome))
	v.recorder.ObserveRunDuration(report.Duration())
	// Sinks still record runs interrupted by a signal.
	v.emit(context.WithoutCancel(ctx), report, log)

	log.Info("Verification finished",
		logfields.Outcome(string(report.Outcome)),
		logfields.Count(report.FindingCount()),
		logfields.Duration(report.Duration()))
	return report, err
}

func (v *Verifier) cycle(ctx context.Context, report *Report, log *slog.Logger) error {
	if !v.skipBuild {
		if err := v.cfg.ValidateBuildDir(); err != nil {
			return err
		}
		buildDir := v.cfg.BuildDir()
		// Stale output from an earlier kept run must not satisfy the checks.
		if err := ClearBuildFolder(buildDir); err != nil {
			return err
		}
		if !v.keepOutput {
			defer func() {
				if err := ClearBuildFolder(buildDir); err != nil {
					log.Warn("Failed to clear build folder", logfields.Dir(buildDir), logfields.Error(err))
				}
			}()
		}
		if err := v.build(ctx, report, log); err != nil {
			report.Outcome = OutcomeBuildFailed
			return err
		}
	}

	sets, err := v.discover(ctx, report)
	if err != nil {
		return err
	}

	digest, err := InputDigest(v.cfg.Root, sets.Markdown, sets.InputCSS, sets.InputAssets)
	if err != nil {
		log.Warn("Could not compute input digest", logfields.Error(err))
	}
	report.InputDigest = digest

	for _, c := range v.checks(sets) {
		report.Checks = append(report.Checks, v.runCheck(ctx, c, log))
	}
	return nil
}

func (v *Verifier) build(ctx context.Context, report *Report, log *slog.Logger) error {
	ctx, span := v.tracer.Start(ctx, "site.build")
	defer span.End()

	res, err := v.builder.Build(ctx)
	report.Build = res
	if res != nil {
		v.recorder.ObserveBuildDuration(res.Duration, res.ExitCode)
		span.SetAttributes(attribute.Int("exit_code", res.ExitCode))
		log.Debug("Site build output", logfields.Command(res.Command), slog.String("output", res.Output))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.IsClassified(err) {
			return err
		}
		return errors.WrapError(err, errors.CategoryBuild, "site build could not be run").Fatal().Build()
	}
	if !res.Success() {
		span.SetStatus(codes.Error, "non-zero exit")
		if v.cfg.Build.FailFast() {
			return errors.BuildError(fmt.Sprintf("site build exited with code %d", res.ExitCode)).
				WithContext("command", res.Command).
				WithContext("exit_code", res.ExitCode).
				WithContext("output", res.Output).
				Build()
		}
		log.Warn("Site build failed, running checks anyway", logfields.ExitCode(res.ExitCode))
	} else {
		log.Info("Site build completed", logfields.Duration(res.Duration))
	}

	if v.cfg.Links.Rewrite {
		n, err := linkmod.RewriteDir(ctx, v.cfg.OutputRoot(), v.Hosts())
		if err != nil {
			return errors.WrapError(err, errors.CategoryBuild, "rewrite external links").Build()
		}
		log.Info("External links rewritten", logfields.Count(n))
	}
	return nil
}

func (v *Verifier) discover(ctx context.Context, report *Report) (*discovery.SiteSets, error) {
	ctx, span := v.tracer.Start(ctx, "site.discover")
	defer span.End()

	sets, err := discovery.DiscoverSite(ctx, v.cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for _, s := range []discovery.FileSet{sets.Markdown, sets.HTML, sets.InputAssets, sets.OutputAssets, sets.InputCSS} {
		report.Sets[s.Name] = s.Len()
		span.SetAttributes(attribute.Int("set."+s.Name, s.Len()))
	}
	return sets, nil
}

// Hosts returns the hostnames treated as internal by the link checks.
func (v *Verifier) Hosts() linkmod.Hosts {
	return linkmod.NewHosts(append([]string{v.cfg.Site.Host}, v.cfg.Links.AllowedHosts...)...)
}

type check struct {
	name    string
	enabled bool
	run     func(ctx context.Context) ([]Finding, error)
}

func (v *Verifier) checks(sets *discovery.SiteSets) []check {
	cfg := v.cfg
	return []check{
		{name: CheckBuildFolder, enabled: true, run: func(context.Context) ([]Finding, error) {
			return CheckBuildFolderExists(cfg.BuildDir()), nil
		}},
		{name: CheckHTMLGenerated, enabled: true, run: func(ctx context.Context) ([]Finding, error) {
			return CheckHTMLForEachMarkdown(ctx, sets.Markdown, sets.HTML)
		}},
		{name: CheckTokens, enabled: true, run: func(ctx context.Context) ([]Finding, error) {
			return CheckNoUnresolvedTokens(ctx, sets.HTML, cfg.Checks.Placeholder)
		}},
		{name: CheckCSS, enabled: true, run: func(ctx context.Context) ([]Finding, error) {
			return CheckCSSConcatenated(ctx, sets.InputCSS, cfg.OutputPath(cfg.Outputs.CombinedCSS), v.minify)
		}},
		{name: CheckAssets, enabled: true, run: func(context.Context) ([]Finding, error) {
			return CheckAssetsCopied(sets.InputAssets, sets.OutputAssets), nil
		}},
		{name: CheckExternalLinks, enabled: cfg.Checks.ExternalLinks, run: func(ctx context.Context) ([]Finding, error) {
			return CheckExternalLinksTargetBlank(ctx, sets.HTML, v.Hosts())
		}},
	}
}

func (v *Verifier) runCheck(ctx context.Context, c check, log *slog.Logger) CheckResult {
	res := CheckResult{Name: c.name}
	if !c.enabled || v.cfg.Checks.Skipped(c.name) {
		res.Status = metrics.CheckSkipped
		v.recorder.IncCheckResult(c.name, res.Status)
		log.Debug("Check skipped", logfields.Check(c.name))
		return res
	}

	ctx, span := v.tracer.Start(ctx, "check."+c.name)
	defer span.End()

	start := time.Now()
	findings, err := c.run(ctx)
	res.Duration = time.Since(start)
	res.Findings = findings

	switch {
	case err != nil:
		res.Status = metrics.CheckError
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case len(findings) > 0:
		res.Status = metrics.CheckFailed
		span.SetStatus(codes.Error, "findings")
	default:
		res.Status = metrics.CheckPassed
	}
	span.SetAttributes(attribute.Int("findings", len(findings)))

	v.recorder.ObserveCheckDuration(c.name, res.Duration)
	v.recorder.IncCheckResult(c.name, res.Status)
	v.recorder.AddFindings(c.name, len(findings))

	attrs := []any{logfields.Check(c.name), logfields.Outcome(string(res.Status)), logfields.Count(len(findings)), logfields.Duration(res.Duration)}
	if res.Passed() {
		log.Info("Check passed", attrs...)
	} else {
		log.Warn("Check failed", attrs...)
	}
	return res
}

func (v *Verifier) emit(ctx context.Context, report *Report, log *slog.Logger) {
	for _, s := range v.sinks {
		if err := s.Record(ctx, report); err != nil {
			log.Warn("Report sink failed", slog.String("sink", s.Name()), logfields.Error(err))
		}
	}
}

// ClearBuildFolder recursively deletes dir. A missing directory is not an error.
func ClearBuildFolder(dir string) error {
	if dir == "" {
		return errors.ValidationError("build folder path is empty").Build()
	}
	clean := filepath.Clean(dir)
	if filepath.Dir(clean) == clean {
		return errors.ValidationError("refusing to clear filesystem root").WithContext("dir", clean).Build()
	}
	if err := os.RemoveAll(clean); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to clear build folder").
			Retryable().WithContext("dir", clean).Build()
	}
	return nil
}
