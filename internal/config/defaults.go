package config

import "time"

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type siteDefaults struct{}

func (siteDefaults) Domain() string { return "site" }

func (siteDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Site.Dir == "" {
		cfg.Site.Dir = "website"
	}
	if cfg.Site.BuildDir == "" {
		cfg.Site.BuildDir = "website/build"
	}
	if cfg.Site.ConfigFile == "" && cfg.ProjectName == "" {
		cfg.Site.ConfigFile = "website/siteConfig.js"
	}
	return nil
}

type buildDefaults struct{}

func (buildDefaults) Domain() string { return "build" }

func (buildDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Command == "" {
		cfg.Build.Command = "yarn build"
	}
	return nil
}

type patternDefaults struct{}

func (patternDefaults) Domain() string { return "patterns" }

func (patternDefaults) ApplyDefaults(cfg *Config) error {
	setDefault(&cfg.Inputs.Markdown, "docs/**/*.md")
	setDefault(&cfg.Inputs.Assets, "docs/assets/*")
	setDefault(&cfg.Inputs.CSS, "website/static/css/*.css")
	setDefault(&cfg.Outputs.HTML, "docs/**/*.html")
	setDefault(&cfg.Outputs.Assets, "img/*")
	setDefault(&cfg.Outputs.CombinedCSS, "css/main.css")
	setDefault(&cfg.Checks.Placeholder, DefaultPlaceholder)
	return nil
}

type serviceDefaults struct{}

func (serviceDefaults) Domain() string { return "services" }

func (serviceDefaults) ApplyDefaults(cfg *Config) error {
	setDefault(&cfg.Notify.Subject, "docverify.runs")
	setDefault(&cfg.Watch.Addr, ":9464")
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
	return nil
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{siteDefaults{}, buildDefaults{}, patternDefaults{}, serviceDefaults{}}
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
