// Package generator is a minimal in-process site generator. It renders the
// configured Markdown inputs to HTML pages, concatenates minified stylesheets
// and copies assets into the layout the verifier expects, so a project can be
// verified end to end without an external toolchain.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/docverify/internal/config"
	"git.home.luguber.info/inful/docverify/internal/discovery"
	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/frontmatter"
	"git.home.luguber.info/inful/docverify/internal/logfields"
	"git.home.luguber.info/inful/docverify/internal/minify"
	"git.home.luguber.info/inful/docverify/internal/sitebuild"
)

// Command is reported as the build command in results.
const Command = "builtin"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · {{.Project}}</title>
<link rel="stylesheet" href="{{.Stylesheet}}">
</head>
<body>
<article id="{{.ID}}">
{{.Content}}
</article>
</body>
</html>
`))

type page struct {
	ID         string
	Title      string
	Project    string
	Stylesheet string
	Content    template.HTML
}

// Stats summarises one generation.
type Stats struct {
	Pages       int
	Skipped     int
	Stylesheets int
	Assets      int
}

// Generator renders a project into {build_dir}/{project_name}.
type Generator struct {
	cfg    *config.Config
	md     goldmark.Markdown
	minify minify.Func
}

// New creates a generator for cfg.
func New(cfg *config.Config) *Generator {
	return &Generator{
		cfg: cfg,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		minify: minify.CSS,
	}
}

// WithMinifier replaces the stylesheet minifier.
func (g *Generator) WithMinifier(fn minify.Func) *Generator {
	if fn != nil {
		g.minify = fn
	}
	return g
}

// Generate renders pages, stylesheets and assets.
func (g *Generator) Generate(ctx context.Context) (*Stats, error) {
	patterns := discovery.SitePatterns(g.cfg)
	sets, err := discovery.Discover(ctx, patterns[0], patterns[2], patterns[4])
	if err != nil {
		return nil, err
	}
	markdown, assets, css := sets[0], sets[1], sets[2]

	out := g.cfg.OutputRoot()
	stats := &Stats{}
	pageDir := filepath.Join(out, staticBase(g.cfg.Outputs.HTML))
	cssPath := g.cfg.OutputPath(g.cfg.Outputs.CombinedCSS)

	for _, p := range markdown.Paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		written, err := g.renderPage(p, pageDir, cssPath)
		if err != nil {
			return stats, err
		}
		if written {
			stats.Pages++
		} else {
			stats.Skipped++
		}
	}

	if css.Len() > 0 {
		if err := g.concatCSS(css, cssPath); err != nil {
			return stats, err
		}
		stats.Stylesheets = css.Len()
	}

	assetDir := filepath.Join(out, staticBase(g.cfg.Outputs.Assets))
	for _, p := range assets.Paths {
		if err := copyFile(p, filepath.Join(assetDir, filepath.Base(p))); err != nil {
			return stats, errors.WrapError(err, errors.CategoryFileSystem, "copy asset").
				WithContext("path", p).Build()
		}
		stats.Assets++
	}

	slog.Info("Site generated",
		logfields.Dir(out),
		slog.Int("pages", stats.Pages),
		slog.Int("skipped", stats.Skipped),
		slog.Int("stylesheets", stats.Stylesheets),
		slog.Int("assets", stats.Assets))
	return stats, nil
}

// Build implements sitebuild.Builder. Generation failures are reported the
// way a failing external generator would be: exit code 1 and the message as
// output.
func (g *Generator) Build(ctx context.Context) (*sitebuild.Result, error) {
	res := &sitebuild.Result{Command: Command, Dir: g.cfg.Root, StartedAt: time.Now()}
	stats, err := g.Generate(ctx)
	res.Duration = time.Since(res.StartedAt)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		res.ExitCode = 1
		res.Output = err.Error()
		return res, nil
	}
	res.Output = fmt.Sprintf("%d pages, %d stylesheets, %d assets", stats.Pages, stats.Stylesheets, stats.Assets)
	return res, nil
}

func (g *Generator) renderPage(src, pageDir, cssPath string) (bool, error) {
	doc, err := frontmatter.ReadFile(src)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryDocs, "read document").
			WithContext("path", src).Build()
	}
	id, ok := doc.ID()
	if !ok {
		slog.Warn("Document has no id, skipping", logfields.Path(src))
		return false, nil
	}
	if !filepath.IsLocal(id + ".html") {
		return false, errors.NewError(errors.CategoryDocs, "document id escapes the output directory").
			WithContext("path", src).
			WithContext("id", id).Build()
	}

	body, err := g.render(doc.Body)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryDocs, "render document").
			WithContext("path", src).Build()
	}

	title, ok := doc.String("title")
	if !ok {
		title = id
	}
	dst := filepath.Join(pageDir, id+".html")
	stylesheet, err := filepath.Rel(filepath.Dir(dst), cssPath)
	if err != nil {
		stylesheet = cssPath
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page{
		ID:         id,
		Title:      title,
		Project:    g.cfg.ProjectName,
		Stylesheet: filepath.ToSlash(stylesheet),
		// #nosec G203 -- generator output from the project's own Markdown
		Content: template.HTML(body),
	}); err != nil {
		return false, errors.WrapError(err, errors.CategoryInternal, "execute page template").Build()
	}
	if err := writeFile(dst, buf.Bytes()); err != nil {
		return false, errors.WrapError(err, errors.CategoryFileSystem, "write page").
			WithContext("path", dst).Build()
	}
	return true, nil
}

// render converts Markdown to HTML, replacing the table-of-contents token
// with a list of the document's headings.
func (g *Generator) render(body []byte) ([]byte, error) {
	token := []byte(g.cfg.Checks.Placeholder)
	if len(token) > 0 && bytes.Contains(body, token) {
		toc := append([]byte("\n"), tableOfContents(g.md, body)...)
		body = bytes.ReplaceAll(body, token, toc)
	}
	var buf bytes.Buffer
	if err := g.md.Convert(body, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) concatCSS(css discovery.FileSet, dst string) error {
	var buf bytes.Buffer
	for _, p := range css.Paths {
		// #nosec G304 -- path produced by discovery
		src, err := os.ReadFile(p)
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "read stylesheet").WithContext("path", p).Build()
		}
		minified, err := g.minify(string(src))
		if err != nil {
			return errors.WrapError(err, errors.CategoryBuild, "minify stylesheet").WithContext("path", p).Build()
		}
		buf.WriteString(minified)
	}
	if err := writeFile(dst, buf.Bytes()); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write combined stylesheet").WithContext("path", dst).Build()
	}
	return nil
}

// staticBase returns the directory prefix of an output pattern ("docs" for "docs/**/*.html").
func staticBase(pattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	if base == "." {
		return ""
	}
	return filepath.FromSlash(strings.TrimSuffix(base, "/"))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	// #nosec G304 -- path produced by discovery
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	// #nosec G304 -- destination under the build dir
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
