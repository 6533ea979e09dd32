// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/docverify/internal/config"
	"git.home.luguber.info/inful/docverify/internal/sitebuild"
)

// DefaultProject is the project name SiteFixture configures.
const DefaultProject = "test-site"

// SiteFixture lays out a documentation project in a temporary directory
// using the default configuration layout.
type SiteFixture struct {
	t    *testing.T
	Root string
	Cfg  *config.Config
}

// NewSiteFixture creates an empty project with a default configuration.
func NewSiteFixture(t *testing.T) *SiteFixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default(root)
	cfg.ProjectName = DefaultProject
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fixture config invalid: %v", err)
	}
	return &SiteFixture{t: t, Root: root, Cfg: cfg}
}

// Doc writes docs/<name> with an id front matter field.
func (f *SiteFixture) Doc(name, id, body string) *SiteFixture {
	f.t.Helper()
	return f.File(filepath.Join("docs", name), "---\nid: "+id+"\ntitle: "+id+"\n---\n"+body)
}

// Asset writes docs/assets/<name>.
func (f *SiteFixture) Asset(name string, data []byte) *SiteFixture {
	f.t.Helper()
	return f.File(filepath.Join("docs", "assets", name), string(data))
}

// CSS writes website/static/css/<name>.
func (f *SiteFixture) CSS(name, content string) *SiteFixture {
	f.t.Helper()
	return f.File(filepath.Join("website", "static", "css", name), content)
}

// File writes a file relative to Root, creating parent directories.
func (f *SiteFixture) File(rel, content string) *SiteFixture {
	f.t.Helper()
	writeFile(f.t, filepath.Join(f.Root, rel), content)
	return f
}

// OutputRoot is {build_dir}/{project_name}.
func (f *SiteFixture) OutputRoot() string { return f.Cfg.OutputRoot() }

// OutputFile writes a file relative to OutputRoot, as a generator would.
func (f *SiteFixture) OutputFile(rel, content string) *SiteFixture {
	f.t.Helper()
	writeFile(f.t, filepath.Join(f.OutputRoot(), rel), content)
	return f
}

// Assert returns file assertions rooted at Root.
func (f *SiteFixture) Assert() *FileAssertions {
	return NewFileAssertions(f.t, f.Root)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// BuilderFunc adapts a function to sitebuild.Builder.
type BuilderFunc func(ctx context.Context) (*sitebuild.Result, error)

// Build calls fn.
func (fn BuilderFunc) Build(ctx context.Context) (*sitebuild.Result, error) { return fn(ctx) }

// FakeBuilder returns a builder that runs produce (may be nil) and reports exitCode.
// Calls counts invocations.
type FakeBuilder struct {
	ExitCode int
	Err      error
	Produce  func() error
	Calls    int
}

// Build implements sitebuild.Builder.
func (b *FakeBuilder) Build(context.Context) (*sitebuild.Result, error) {
	b.Calls++
	res := &sitebuild.Result{Command: "fake", ExitCode: b.ExitCode, StartedAt: time.Now(), Duration: time.Millisecond}
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Produce != nil {
		if err := b.Produce(); err != nil {
			return nil, err
		}
	}
	return res, nil
}
