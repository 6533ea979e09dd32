package discovery

import (
	"context"

	"git.home.luguber.info/inful/docverify/internal/config"
)

// Set names used in logs and reports.
const (
	SetMarkdown     = "input_markdown"
	SetHTML         = "output_html"
	SetInputAssets  = "input_assets"
	SetOutputAssets = "output_assets"
	SetInputCSS     = "input_css"
)

// SiteSets are the file sets one verification cycle compares.
type SiteSets struct {
	Markdown     FileSet
	HTML         FileSet
	InputAssets  FileSet
	OutputAssets FileSet
	InputCSS     FileSet
}

// SitePatterns returns the patterns for cfg in SiteSets field order.
// Input sets are rooted at the project directory, output sets at
// {build_dir}/{project_name}.
func SitePatterns(cfg *config.Config) []Pattern {
	out := cfg.OutputRoot()
	return []Pattern{
		{Name: SetMarkdown, Base: cfg.Root, Glob: cfg.Inputs.Markdown, Required: true},
		{Name: SetHTML, Base: out, Glob: cfg.Outputs.HTML},
		{Name: SetInputAssets, Base: cfg.Root, Glob: cfg.Inputs.Assets},
		{Name: SetOutputAssets, Base: out, Glob: cfg.Outputs.Assets},
		{Name: SetInputCSS, Base: cfg.Root, Glob: cfg.Inputs.CSS},
	}
}

// DiscoverSite runs the site lookups concurrently.
func DiscoverSite(ctx context.Context, cfg *config.Config) (*SiteSets, error) {
	sets, err := Discover(ctx, SitePatterns(cfg)...)
	if err != nil {
		return nil, err
	}
	return &SiteSets{
		Markdown:     sets[0],
		HTML:         sets[1],
		InputAssets:  sets[2],
		OutputAssets: sets[3],
		InputCSS:     sets[4],
	}, nil
}
