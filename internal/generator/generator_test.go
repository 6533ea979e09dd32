package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/testutil/testutils"
)

func TestGenerate_Layout(t *testing.T) {
	fx := testutils.NewSiteFixture(t).
		Doc("intro.md", "intro", "# Intro\n\n<AUTOGENERATED_TABLE_OF_CONTENTS>\n\n## Install\n\ntext\n\n### From source\n\n## Usage\n").
		Doc("nested/guide.md", "guide", "Guide body\n").
		File("docs/draft.md", "no front matter\n").
		Asset("logo.png", []byte("png")).
		CSS("a.css", "body { color: red; }\n").
		CSS("b.css", "h1 { margin: 0px; }\n")

	stats, err := New(fx.Cfg).Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, &Stats{Pages: 2, Skipped: 1, Stylesheets: 2, Assets: 1}, stats)

	out := "website/build/" + testutils.DefaultProject
	fx.Assert().
		AssertFileExists(out+"/docs/intro.html").
		AssertFileExists(out+"/docs/guide.html").
		AssertFileExists(out+"/img/logo.png").
		AssertFileContains(out+"/css/main.css", "body{color:red}h1{margin:0}").
		AssertFileNotContains(out+"/docs/intro.html", "AUTOGENERATED_TABLE_OF_CONTENTS").
		AssertFileContains(out+"/docs/intro.html", `<a href="#install">Install</a>`).
		AssertFileContains(out+"/docs/intro.html", `<a href="#from-source">From source</a>`).
		AssertFileContains(out+"/docs/intro.html", `<h2 id="install">Install</h2>`).
		AssertFileContains(out+"/docs/intro.html", `href="../css/main.css"`)
}

func TestGenerate_NoToken(t *testing.T) {
	fx := testutils.NewSiteFixture(t).Doc("a.md", "a", "## Only heading\n")

	_, err := New(fx.Cfg).Generate(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(fx.OutputRoot(), "docs", "a.html"))
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), `href="#only-heading"`))
	require.Contains(t, string(data), "<title>a · test-site</title>")
}

func TestGenerate_MissingDocs(t *testing.T) {
	fx := testutils.NewSiteFixture(t)

	_, err := New(fx.Cfg).Generate(context.Background())
	require.Error(t, err)
}

func TestGenerate_RejectsEscapingID(t *testing.T) {
	for _, id := range []string{"../../../../escaped", "../escaped", "/escaped"} {
		t.Run(id, func(t *testing.T) {
			fx := testutils.NewSiteFixture(t).Doc("evil.md", id, "body\n")

			_, err := New(fx.Cfg).Generate(context.Background())
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryDocs), "got %v", err)
			fx.Assert().
				AssertNotExists("escaped.html").
				AssertNotExists("website/build/escaped.html")
		})
	}
}

func TestBuild_ReportsFailureAsExitCode(t *testing.T) {
	fx := testutils.NewSiteFixture(t)

	res, err := New(fx.Cfg).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.ExitCode)
	require.Equal(t, Command, res.Command)
	require.NotEmpty(t, res.Output)
}

func TestBuild_Success(t *testing.T) {
	fx := testutils.NewSiteFixture(t).Doc("a.md", "a", "text\n")

	res, err := New(fx.Cfg).Build(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success())
	require.Equal(t, "1 pages, 0 stylesheets, 0 assets", res.Output)
}

func TestGenerate_MinifierError(t *testing.T) {
	fx := testutils.NewSiteFixture(t).Doc("a.md", "a", "x\n").CSS("a.css", "p{}")
	boom := func(string) (string, error) { return "", os.ErrInvalid }

	_, err := New(fx.Cfg).WithMinifier(boom).Generate(context.Background())
	require.ErrorIs(t, err, os.ErrInvalid)
}

func TestStaticBase(t *testing.T) {
	require.Equal(t, "docs", staticBase("docs/**/*.html"))
	require.Equal(t, "img", staticBase("img/*"))
	require.Equal(t, filepath.Join("a", "b"), staticBase("a/b/*.png"))
	require.Empty(t, staticBase("*.html"))
}
