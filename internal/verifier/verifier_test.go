package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/metrics"
	"git.home.luguber.info/inful/docverify/internal/sitebuild"
	"git.home.luguber.info/inful/docverify/internal/testutil/testutils"
)

// site returns a fixture with one document, one asset and one stylesheet,
// and a builder that produces matching output.
func site(t *testing.T) (*testutils.SiteFixture, *testutils.FakeBuilder) {
	t.Helper()
	fx := testutils.NewSiteFixture(t).
		Doc("intro.md", "intro", "# Intro\n").
		Asset("logo.png", []byte{0x89, 'P', 'N', 'G'}).
		CSS("main.css", "body { color: red; }\n")
	b := &testutils.FakeBuilder{Produce: func() error {
		fx.OutputFile("docs/intro.html", "<h1>Intro</h1>").
			OutputFile("img/logo.png", "png").
			OutputFile("css/main.css", "html{margin:0}body{color:red}")
		return nil
	}}
	return fx, b
}

type recordingSink struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Record(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return s.err
}

type countingRecorder struct {
	metrics.NoopRecorder
	outcomes []string
	results  map[string]metrics.CheckStatus
	builds   int
}

func (r *countingRecorder) IncRunOutcome(o string) { r.outcomes = append(r.outcomes, o) }

func (r *countingRecorder) IncCheckResult(check string, s metrics.CheckStatus) {
	if r.results == nil {
		r.results = map[string]metrics.CheckStatus{}
	}
	r.results[check] = s
}

func (r *countingRecorder) ObserveBuildDuration(time.Duration, int) { r.builds++ }

func TestRun_Passes(t *testing.T) {
	fx, b := site(t)
	rec := &countingRecorder{}

	report, err := New(fx.Cfg, b).WithRecorder(rec).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomePassed, report.Outcome, "failed: %v", report.FailedChecks())
	require.NotEmpty(t, report.ID)
	require.Equal(t, testutils.DefaultProject, report.Project)
	require.NotEmpty(t, report.InputDigest)
	require.Equal(t, 1, b.Calls)
	require.Len(t, report.Checks, len(CheckNames()))

	ext, ok := report.Check(CheckExternalLinks)
	require.True(t, ok)
	require.Equal(t, metrics.CheckSkipped, ext.Status)

	require.Equal(t, []string{"passed"}, rec.outcomes)
	require.Equal(t, 1, rec.builds)
	require.Equal(t, metrics.CheckPassed, rec.results[CheckCSS])
	require.Equal(t, 1, report.Sets["input_markdown"])
	require.Equal(t, 1, report.Sets["output_html"])

	fx.Assert().AssertNotExists("website/build")
}

func TestRun_KeepOutput(t *testing.T) {
	fx, b := site(t)

	report, err := New(fx.Cfg, b).WithKeepOutput(true).Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Passed())
	fx.Assert().
		AssertDirExists("website/build/test-site").
		AssertFileExists("website/build/test-site/docs/intro.html")
}

func TestRun_ClearsStaleOutputBeforeBuild(t *testing.T) {
	fx, _ := site(t)
	fx.OutputFile("docs/intro.html", "stale")

	// The builder produces nothing, so stale output must not satisfy the checks.
	report, err := New(fx.Cfg, &testutils.FakeBuilder{}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.Contains(t, report.FailedChecks(), CheckBuildFolder)
	require.Contains(t, report.FailedChecks(), CheckHTMLGenerated)
}

func TestRun_FailFastOnNonZeroExit(t *testing.T) {
	fx, b := site(t)
	b.ExitCode = 1
	sink := &recordingSink{}

	report, err := New(fx.Cfg, b).WithSinks(sink).Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryBuild))
	require.Equal(t, OutcomeBuildFailed, report.Outcome)
	require.Empty(t, report.Checks)
	require.Equal(t, 1, report.ExitCode())
	require.Len(t, sink.reports, 1)
	fx.Assert().AssertNotExists("website/build")
}

func TestRun_NonZeroExitWithoutFailFast(t *testing.T) {
	fx, b := site(t)
	b.ExitCode = 2
	b.Produce = nil
	off := false
	fx.Cfg.Build.FailOnError = &off

	report, err := New(fx.Cfg, b).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.NotEmpty(t, report.Checks)
}

func TestRun_BuilderError(t *testing.T) {
	fx, b := site(t)
	b.Err = stderrors.New("yarn: not found")

	report, err := New(fx.Cfg, b).Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryBuild))
	require.Equal(t, OutcomeBuildFailed, report.Outcome)
	require.Equal(t, -1, report.ExitCode())
}

func TestRun_MissingDocsAbortsBeforeChecks(t *testing.T) {
	fx := testutils.NewSiteFixture(t)

	report, err := New(fx.Cfg, &testutils.FakeBuilder{}).Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
	require.Equal(t, OutcomeError, report.Outcome)
	require.Empty(t, report.Checks)
	require.NotEmpty(t, report.Error)
}

func TestRun_FindingsDoNotAbortOtherChecks(t *testing.T) {
	fx, b := site(t)
	fx.Asset("missing.png", []byte("x"))
	b.Produce = func() error {
		fx.OutputFile("docs/intro.html", "<p><AUTOGENERATED_TABLE_OF_CONTENTS></p>").
			OutputFile("img/logo.png", "png").
			OutputFile("css/main.css", "body{color:red}")
		return nil
	}

	report, err := New(fx.Cfg, b).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, report.Outcome)
	require.ElementsMatch(t, []string{CheckTokens, CheckAssets}, report.FailedChecks())

	assets, _ := report.Check(CheckAssets)
	require.Equal(t, "missing.png", assets.Findings[0].Subject)
}

func TestRun_SkippedChecks(t *testing.T) {
	fx, b := site(t)
	b.Produce = nil
	fx.Cfg.Checks.Skip = []string{CheckBuildFolder, CheckHTMLGenerated, CheckCSS, CheckAssets}

	report, err := New(fx.Cfg, b).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomePassed, report.Outcome)
	c, _ := report.Check(CheckHTMLGenerated)
	require.Equal(t, metrics.CheckSkipped, c.Status)
}

func TestRun_ExternalLinksCheck(t *testing.T) {
	fx, b := site(t)
	fx.Cfg.Checks.ExternalLinks = true
	fx.Cfg.Site.Host = "docs.example.com"
	b.Produce = func() error {
		fx.OutputFile("docs/intro.html", `<a href="https://example.org">x</a><a href="https://docs.example.com/a">y</a>`).
			OutputFile("img/logo.png", "png").
			OutputFile("css/main.css", "body{color:red}")
		return nil
	}

	report, err := New(fx.Cfg, b).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{CheckExternalLinks}, report.FailedChecks())

	// With rewriting enabled the same output passes.
	fx.Cfg.Links.Rewrite = true
	report, err = New(fx.Cfg, b).Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Passed(), "failed: %v", report.FailedChecks())
}

func TestRun_WithoutBuildKeepsExistingOutput(t *testing.T) {
	fx, b := site(t)
	require.NoError(t, b.Produce())

	report, err := New(fx.Cfg, nil).WithoutBuild().Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Passed())
	require.Nil(t, report.Build)
	fx.Assert().AssertFileExists("website/build/test-site/css/main.css")
}

func TestRun_Idempotent(t *testing.T) {
	fx, b := site(t)
	v := New(fx.Cfg, b)

	first, err := v.Run(context.Background())
	require.NoError(t, err)
	second, err := v.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, first.Outcome, second.Outcome)
	require.Equal(t, first.InputDigest, second.InputDigest)
	require.NotEqual(t, first.ID, second.ID)
	for i := range first.Checks {
		require.Equal(t, first.Checks[i].Name, second.Checks[i].Name)
		require.Equal(t, first.Checks[i].Status, second.Checks[i].Status)
	}
}

func TestRun_SinkErrorDoesNotFailRun(t *testing.T) {
	fx, b := site(t)
	sink := &recordingSink{err: stderrors.New("store down")}

	report, err := New(fx.Cfg, b).WithSinks(sink, nil).Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Passed())
	require.Len(t, sink.reports, 1)
	require.Same(t, report, sink.reports[0])
}

type contextSink struct {
	ctxErr   error
	recorded bool
}

func (s *contextSink) Name() string { return "context" }

func (s *contextSink) Record(ctx context.Context, _ *Report) error {
	s.recorded = true
	s.ctxErr = ctx.Err()
	return s.ctxErr
}

func TestRun_InterruptedRunStillReachesSinks(t *testing.T) {
	fx, _ := site(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := testutils.BuilderFunc(func(ctx context.Context) (*sitebuild.Result, error) {
		cancel()
		return nil, ctx.Err()
	})
	sink := &contextSink{}

	report, err := New(fx.Cfg, b).WithSinks(sink).Run(ctx)
	require.Error(t, err)
	require.NotEqual(t, OutcomePassed, report.Outcome)
	require.True(t, sink.recorded)
	require.NoError(t, sink.ctxErr)
}

func TestRun_RefusesBuildDirOverlappingProject(t *testing.T) {
	fx, b := site(t)
	fx.Cfg.Site.BuildDir = "."

	_, err := New(fx.Cfg, b).Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.Zero(t, b.Calls)
	fx.Assert().AssertFileExists("docs/intro.md")
}

func TestRun_RecordsRevision(t *testing.T) {
	fx, b := site(t)
	repo := testutils.InitGitRepo(t, fx.Root)
	hash := testutils.CommitAll(t, repo, "docs")

	report, err := New(fx.Cfg, b).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, hash, report.Revision)
}

func TestClearBuildFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "p", "docs"), 0o750))

	require.NoError(t, ClearBuildFolder(dir))
	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	// Idempotent.
	require.NoError(t, ClearBuildFolder(dir))

	require.Error(t, ClearBuildFolder(""))
	require.Error(t, ClearBuildFolder(string(filepath.Separator)))
}

func TestInputDigest_ChangesWithInputs(t *testing.T) {
	fx, _ := site(t)
	ctx := context.Background()

	a, err := DigestInputs(ctx, fx.Cfg)
	require.NoError(t, err)
	b, err := DigestInputs(ctx, fx.Cfg)
	require.NoError(t, err)
	require.Equal(t, a, b)

	fx.CSS("main.css", "body { color: blue; }\n")
	c, err := DigestInputs(ctx, fx.Cfg)
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	fx.Doc("intro.md", "intro", "# Changed\n")
	d, err := DigestInputs(ctx, fx.Cfg)
	require.NoError(t, err)
	require.NotEqual(t, c, d)
}

func TestFormatters(t *testing.T) {
	fx, b := site(t)
	fx.Asset("extra.png", []byte("x"))
	report, err := New(fx.Cfg, b).Run(context.Background())
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, NewFormatter("text", fx.Root, false).Format(&text, report))
	require.Contains(t, text.String(), "✗ assets_copied")
	require.Contains(t, text.String(), "extra.png")
	require.Contains(t, text.String(), "1 check failed with 1 finding: assets_copied")

	var out bytes.Buffer
	require.NoError(t, NewFormatter("json", fx.Root, false).Format(&out, report))
	var decoded Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, report.ID, decoded.ID)
	require.Equal(t, OutcomeFailed, decoded.Outcome)
	require.Len(t, decoded.Checks, len(report.Checks))
}
