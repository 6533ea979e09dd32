package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docverify/internal/config"
	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestGlob_RecursiveAndSorted(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "docs", "b.md"))
	touch(t, filepath.Join(root, "docs", "a.md"))
	touch(t, filepath.Join(root, "docs", "nested", "deep", "c.md"))
	touch(t, filepath.Join(root, "docs", "assets", "logo.png"))

	set, err := Glob(context.Background(), Pattern{Name: "md", Base: root, Glob: "docs/**/*.md", Required: true})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "docs", "a.md"),
		filepath.Join(root, "docs", "b.md"),
		filepath.Join(root, "docs", "nested", "deep", "c.md"),
	}, set.Paths)
}

func TestGlob_FilesOnly(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "docs", "assets", "logo.png"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "assets", "sub"), 0o750))

	set, err := Glob(context.Background(), Pattern{Name: "assets", Base: root, Glob: "docs/assets/*"})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "docs", "assets", "logo.png")}, set.Paths)
}

func TestGlob_MissingBase(t *testing.T) {
	root := t.TempDir()

	set, err := Glob(context.Background(), Pattern{Name: "html", Base: root, Glob: "build/site/docs/**/*.html"})
	require.NoError(t, err)
	require.Zero(t, set.Len())

	_, err = Glob(context.Background(), Pattern{Name: "md", Base: root, Glob: "docs/**/*.md", Required: true})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
}

func TestGlob_BaseIsFile(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "docs"))

	_, err := Glob(context.Background(), Pattern{Name: "md", Base: root, Glob: "docs/*.md", Required: true})
	require.Error(t, err)
}

func TestGlob_LiteralPattern(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "css", "main.css"))

	set, err := Glob(context.Background(), Pattern{Name: "css", Base: root, Glob: "css/main.css"})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "css", "main.css")}, set.Paths)
}

func TestDiscover_PreservesPatternOrder(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "1.txt"))
	touch(t, filepath.Join(root, "b", "2.txt"))

	sets, err := Discover(context.Background(),
		Pattern{Name: "b", Base: root, Glob: "b/*.txt"},
		Pattern{Name: "a", Base: root, Glob: "a/*.txt"},
	)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	require.Equal(t, "b", sets[0].Name)
	require.Equal(t, "a", sets[1].Name)
	require.Equal(t, 1, sets[0].Len())
}

func TestDiscover_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Discover(ctx, Pattern{Name: "x", Base: t.TempDir(), Glob: "*"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBasenames_NormalisesUnicode(t *testing.T) {
	// "é" decomposed (e + U+0301) and precomposed must compare equal.
	set := FileSet{Paths: []string{"/x/img/cafe\u0301.png"}}
	_, ok := set.Basenames()["caf\u00e9.png"]
	require.True(t, ok)
}

func TestDiscoverSite(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "docs", "intro.md"))
	touch(t, filepath.Join(root, "docs", "assets", "logo.png"))
	touch(t, filepath.Join(root, "website", "static", "css", "custom.css"))
	touch(t, filepath.Join(root, "website", "build", "proj", "docs", "intro.html"))
	touch(t, filepath.Join(root, "website", "build", "proj", "img", "logo.png"))

	cfg := config.Default(root)
	cfg.ProjectName = "proj"

	sets, err := DiscoverSite(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 1, sets.Markdown.Len())
	require.Equal(t, 1, sets.HTML.Len())
	require.Equal(t, 1, sets.InputAssets.Len())
	require.Equal(t, 1, sets.OutputAssets.Len())
	require.Equal(t, 1, sets.InputCSS.Len())
	require.Equal(t, SetHTML, sets.HTML.Name)
}
