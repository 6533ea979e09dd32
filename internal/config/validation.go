package config

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
)

// Validate checks the configuration for values the verifier cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Build.Command) == "" {
		return errors.ValidationError("build.command must not be empty").Build()
	}
	if c.Build.Timeout < 0 {
		return errors.ValidationError("build.timeout must not be negative").Build()
	}
	if c.ProjectName == "" {
		return errors.ValidationError("project_name is empty and could not be resolved from site.config_file").Build()
	}
	if strings.ContainsAny(c.ProjectName, `/\`) || c.ProjectName == "." || c.ProjectName == ".." {
		return errors.ValidationError("project_name must be a single path segment").
			WithContext("project_name", c.ProjectName).Build()
	}
	if c.Checks.Placeholder == "" {
		return errors.ValidationError("checks.placeholder must not be empty").Build()
	}
	patterns := map[string]string{
		"inputs.markdown":      c.Inputs.Markdown,
		"inputs.assets":        c.Inputs.Assets,
		"inputs.css":           c.Inputs.CSS,
		"outputs.html":         c.Outputs.HTML,
		"outputs.assets":       c.Outputs.Assets,
		"outputs.combined_css": c.Outputs.CombinedCSS,
	}
	for name, p := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return errors.ValidationError("invalid glob pattern").
				WithContext("field", name).
				WithContext("pattern", p).Build()
		}
	}
	if err := c.ValidateBuildDir(); err != nil {
		return err
	}
	if c.Watch.Debounce < 0 || c.Watch.Interval < 0 {
		return errors.ValidationError("watch durations must not be negative").Build()
	}
	return nil
}

// ValidateBuildDir rejects a build_dir whose removal would delete project
// files. The build directory is wiped before and after every run, so it must
// not contain the project root, an input directory, the config file or the
// run history.
func (c *Config) ValidateBuildDir() error {
	build := c.BuildDir()
	if within(build, c.Root) {
		return errors.ValidationError("site.build_dir must not contain the project root").
			WithContext("build_dir", build).Build()
	}

	protected := []struct{ name, path string }{
		{"inputs.markdown", c.inputBase(c.Inputs.Markdown)},
		{"inputs.css", c.inputBase(c.Inputs.CSS)},
		{"inputs.assets", c.inputBase(c.Inputs.Assets)},
		{"config file", c.Path},
	}
	if c.History.Path != "" {
		protected = append(protected, struct{ name, path string }{"history.path", c.Abs(c.History.Path)})
	}
	for _, p := range protected {
		if p.path != "" && within(build, p.path) {
			return errors.ValidationError("site.build_dir must not contain " + p.name).
				WithContext("build_dir", build).
				WithContext("path", p.path).Build()
		}
	}
	return nil
}

// inputBase returns the directory holding every match of pattern.
func (c *Config) inputBase(pattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return c.Abs(filepath.FromSlash(base))
}

// within reports whether path is dir or below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
