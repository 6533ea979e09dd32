// Package config loads and validates the docverify configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "docverify.yaml"

// DefaultPlaceholder is the table-of-contents token a correctly rendered page never contains.
const DefaultPlaceholder = "<AUTOGENERATED_TABLE_OF_CONTENTS>"

// BuiltinCommand selects the in-process reference generator instead of an external process.
const BuiltinCommand = "builtin"

// Config represents the verifier configuration.
type Config struct {
	ProjectName string        `yaml:"project_name,omitempty"`
	Site        SiteConfig    `yaml:"site"`
	Build       BuildConfig   `yaml:"build"`
	Inputs      InputsConfig  `yaml:"inputs"`
	Outputs     OutputsConfig `yaml:"outputs"`
	Checks      ChecksConfig  `yaml:"checks"`
	Links       LinksConfig   `yaml:"links"`
	History     HistoryConfig `yaml:"history"`
	Notify      NotifyConfig  `yaml:"notify"`
	Watch       WatchConfig   `yaml:"watch"`
	KeepOutput  bool          `yaml:"keep_output,omitempty"`

	// Root is the directory relative paths are resolved against (the config file's directory).
	Root string `yaml:"-"`
	// Path is the absolute path of the loaded file, empty for parsed data.
	Path string `yaml:"-"`
}

// SiteConfig describes where the documentation site lives.
type SiteConfig struct {
	Dir        string `yaml:"dir"`                   // working directory of the build command
	ConfigFile string `yaml:"config_file,omitempty"` // site config exposing projectName
	BuildDir   string `yaml:"build_dir"`             // generator output root
	Host       string `yaml:"host,omitempty"`        // site hostname, always treated as internal
}

// BuildConfig configures the external site generator invocation.
type BuildConfig struct {
	Command     string            `yaml:"command"`
	Env         map[string]string `yaml:"env,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty"`
	FailOnError *bool             `yaml:"fail_on_error,omitempty"`
}

// FailFast reports whether a non-zero generator exit aborts the run before checks.
func (b BuildConfig) FailFast() bool {
	return b.FailOnError == nil || *b.FailOnError
}

// InputsConfig holds glob patterns relative to Root.
type InputsConfig struct {
	Markdown string `yaml:"markdown"`
	Assets   string `yaml:"assets"`
	CSS      string `yaml:"css"`
}

// OutputsConfig holds glob patterns relative to the project output root.
type OutputsConfig struct {
	HTML        string `yaml:"html"`
	Assets      string `yaml:"assets"`
	CombinedCSS string `yaml:"combined_css"`
}

// ChecksConfig toggles and parameterises individual checks.
type ChecksConfig struct {
	Placeholder   string   `yaml:"placeholder"`
	ExternalLinks bool     `yaml:"external_links,omitempty"`
	Skip          []string `yaml:"skip,omitempty"`
}

// Skipped reports whether the named check is disabled.
func (c ChecksConfig) Skipped(name string) bool {
	for _, s := range c.Skip {
		if s == name {
			return true
		}
	}
	return false
}

// LinksConfig configures the external link post-processor.
type LinksConfig struct {
	Rewrite      bool     `yaml:"rewrite,omitempty"`
	AllowedHosts []string `yaml:"allowed_hosts,omitempty"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig configures NATS run notifications.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Addr     string        `yaml:"addr,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve config path").Build()
	}
	if _, statErr := os.Stat(absPath); os.IsNotExist(statErr) {
		return nil, errors.ConfigError("configuration file not found (run `docverify init`)").
			WithContext("path", configPath).Build()
	}

	root := filepath.Dir(absPath)
	loadEnvFiles(root)

	// #nosec G304 -- path supplied by the operator
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").Build()
	}

	return parse(data, root, absPath)
}

// Parse decodes YAML configuration, applies defaults, resolves the project
// name and validates the result. Environment variables are expanded first.
func Parse(data []byte, root string) (*Config, error) {
	return parse(data, root, "")
}

func parse(data []byte, root, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	cfg.Root = root
	cfg.Path = path

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.resolveProjectName(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, rooted at root.
// The project name is left unresolved.
func Default(root string) *Config {
	cfg := &Config{Root: root}
	_ = applyDefaults(cfg)
	return cfg
}

// Abs resolves p against Root unless it is already absolute.
func (c *Config) Abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// SiteDir returns the absolute working directory for the build command.
func (c *Config) SiteDir() string { return c.Abs(c.Site.Dir) }

// BuildDir returns the absolute generator output root.
func (c *Config) BuildDir() string { return c.Abs(c.Site.BuildDir) }

// OutputRoot returns {build_dir}/{project_name}.
func (c *Config) OutputRoot() string {
	return filepath.Join(c.BuildDir(), c.ProjectName)
}

// OutputPath resolves a pattern relative to OutputRoot.
func (c *Config) OutputPath(p string) string {
	return filepath.Join(c.OutputRoot(), p)
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

const exampleConfig = `# docverify configuration
# project_name is read from site.config_file when omitted.
project_name: ""

site:
  dir: website
  config_file: website/siteConfig.js
  build_dir: website/build
  host: ""

build:
  command: yarn build
  timeout: 10m
  fail_on_error: true

inputs:
  markdown: docs/**/*.md
  assets: docs/assets/*
  css: website/static/css/*.css

outputs:
  html: docs/**/*.html
  assets: img/*
  combined_css: css/main.css

checks:
  placeholder: "<AUTOGENERATED_TABLE_OF_CONTENTS>"
  external_links: false

links:
  rewrite: false
  allowed_hosts: []

history:
  path: ""

notify:
  nats_url: ""
  subject: docverify.runs

watch:
  addr: ":9464"
  interval: 0s
  debounce: 2s
`
