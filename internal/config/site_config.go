package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
)

// projectNameLiteral matches `projectName: 'name'` in a JavaScript site config.
var projectNameLiteral = regexp.MustCompile(`projectName\s*:\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)

// resolveProjectName fills ProjectName from the site config file when it was not set explicitly.
func (c *Config) resolveProjectName() error {
	if c.ProjectName != "" || c.Site.ConfigFile == "" {
		return nil
	}
	name, err := ReadProjectName(c.Abs(c.Site.ConfigFile))
	if err != nil {
		return err
	}
	c.ProjectName = name
	return nil
}

// ReadProjectName extracts the project name from a site configuration file.
// YAML and JSON files are decoded and may use either `projectName` or
// `project_name`; any other file is scanned for a `projectName: '...'` literal.
func ReadProjectName(path string) (string, error) {
	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryConfig, "failed to read site config").
			WithContext("path", path).Fatal().Build()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return "", errors.WrapError(err, errors.CategoryConfig, "failed to parse site config").
				WithContext("path", path).Fatal().Build()
		}
		for _, key := range []string{"projectName", "project_name"} {
			if s, ok := doc[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), nil
			}
		}
	default:
		if m := projectNameLiteral.FindSubmatch(data); m != nil {
			return strings.TrimSpace(string(m[1])), nil
		}
	}

	return "", errors.ConfigError("site config does not declare a project name").
		WithContext("path", path).Build()
}
