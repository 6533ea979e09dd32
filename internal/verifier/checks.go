package verifier

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/docverify/internal/discovery"
	"git.home.luguber.info/inful/docverify/internal/frontmatter"
	"git.home.luguber.info/inful/docverify/internal/linkmod"
	"git.home.luguber.info/inful/docverify/internal/minify"
)

// Check names as they appear in reports, metrics and checks.skip.
const (
	CheckBuildFolder   = "build_folder_exists"
	CheckHTMLGenerated = "html_for_each_markdown"
	CheckTokens        = "no_unresolved_tokens"
	CheckCSS           = "css_concatenated"
	CheckAssets        = "assets_copied"
	CheckExternalLinks = "external_links_target_blank"
)

// CheckNames lists every check in execution order.
func CheckNames() []string {
	return []string{CheckBuildFolder, CheckHTMLGenerated, CheckTokens, CheckCSS, CheckAssets, CheckExternalLinks}
}

// CheckBuildFolderExists asserts dir exists and is a directory.
func CheckBuildFolderExists(dir string) []Finding {
	fi, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return []Finding{{Check: CheckBuildFolder, Subject: dir, Expected: "directory", Actual: "missing"}}
	case err != nil:
		return []Finding{{Check: CheckBuildFolder, Subject: dir, Expected: "directory", Actual: err.Error()}}
	case !fi.IsDir():
		return []Finding{{Check: CheckBuildFolder, Subject: dir, Expected: "directory", Actual: "not a directory"}}
	}
	return nil
}

// CheckHTMLForEachMarkdown asserts that every Markdown document declares an
// id and that {id}.html is among the output HTML basenames.
func CheckHTMLForEachMarkdown(ctx context.Context, markdown, html discovery.FileSet) ([]Finding, error) {
	outputs := html.Basenames()
	var findings []Finding
	for _, p := range markdown.Paths {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		doc, err := frontmatter.ReadFile(p)
		if err != nil {
			findings = append(findings, Finding{Check: CheckHTMLGenerated, Subject: p, Expected: "front matter with id", Actual: err.Error()})
			continue
		}
		id, ok := doc.ID()
		if !ok {
			findings = append(findings, Finding{Check: CheckHTMLGenerated, Subject: p, Expected: "front matter with id", Actual: "missing id"})
			continue
		}
		want := id + ".html"
		if _, found := outputs[discovery.Basename(want)]; !found {
			findings = append(findings, Finding{
				Check:    CheckHTMLGenerated,
				Subject:  p,
				Expected: want,
				Actual:   fmt.Sprintf("not among %d generated pages", html.Len()),
			})
		}
	}
	return findings, nil
}

// CheckNoUnresolvedTokens asserts no output HTML file contains token.
func CheckNoUnresolvedTokens(ctx context.Context, html discovery.FileSet, token string) ([]Finding, error) {
	needle := []byte(token)
	var findings []Finding
	for _, p := range html.Paths {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		// #nosec G304 -- path produced by discovery
		data, err := os.ReadFile(p)
		if err != nil {
			findings = append(findings, Finding{Check: CheckTokens, Subject: p, Expected: "readable HTML", Actual: err.Error()})
			continue
		}
		if n := bytes.Count(data, needle); n > 0 {
			findings = append(findings, Finding{
				Check:    CheckTokens,
				Subject:  p,
				Expected: "no " + token,
				Actual:   strconv.Itoa(n) + " occurrence(s) at line " + strconv.Itoa(lineOf(data, needle)),
			})
		}
	}
	return findings, nil
}

// CheckCSSConcatenated asserts that the combined stylesheet contains the
// minified form of every input stylesheet, in any order.
func CheckCSSConcatenated(ctx context.Context, inputs discovery.FileSet, combined string, fn minify.Func) ([]Finding, error) {
	if inputs.Len() == 0 {
		return nil, nil
	}
	// #nosec G304 -- configured output path
	data, err := os.ReadFile(combined)
	if err != nil {
		actual := err.Error()
		if os.IsNotExist(err) {
			actual = "missing"
		}
		return []Finding{{Check: CheckCSS, Subject: combined, Expected: "combined stylesheet", Actual: actual}}, nil
	}
	haystack := string(data)

	var findings []Finding
	for _, p := range inputs.Paths {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		// #nosec G304 -- path produced by discovery
		src, err := os.ReadFile(p)
		if err != nil {
			findings = append(findings, Finding{Check: CheckCSS, Subject: p, Expected: "readable stylesheet", Actual: err.Error()})
			continue
		}
		fragment, err := fn(string(src))
		if err != nil {
			findings = append(findings, Finding{Check: CheckCSS, Subject: p, Expected: "minifiable stylesheet", Actual: err.Error()})
			continue
		}
		if strings.Contains(haystack, fragment) {
			continue
		}
		findings = append(findings, Finding{
			Check:    CheckCSS,
			Subject:  p,
			Expected: abbreviate(fragment),
			Actual:   "not contained in " + filepath.Base(combined),
			Diff:     fragmentDiff(fragment, haystack),
		})
	}
	return findings, nil
}

// CheckAssetsCopied asserts every input asset basename exists among the
// output asset basenames.
func CheckAssetsCopied(inputs, outputs discovery.FileSet) []Finding {
	have := outputs.Basenames()
	var missing []string
	for name := range inputs.Basenames() {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	findings := make([]Finding, 0, len(missing))
	for _, name := range missing {
		f := Finding{Check: CheckAssets, Subject: name, Expected: "copied to output", Actual: "missing"}
		if near := closest(name, have); near != "" {
			f.Diff = valueDiff(name, near)
		}
		findings = append(findings, f)
	}
	return findings
}

// CheckExternalLinksTargetBlank asserts every external anchor opens in a new tab.
func CheckExternalLinksTargetBlank(ctx context.Context, html discovery.FileSet, hosts linkmod.Hosts) ([]Finding, error) {
	var findings []Finding
	for _, p := range html.Paths {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		// #nosec G304 -- path produced by discovery
		f, err := os.Open(p)
		if err != nil {
			findings = append(findings, Finding{Check: CheckExternalLinks, Subject: p, Expected: "readable HTML", Actual: err.Error()})
			continue
		}
		hrefs, err := linkmod.MissingTarget(f, hosts)
		_ = f.Close()
		if err != nil {
			findings = append(findings, Finding{Check: CheckExternalLinks, Subject: p, Expected: "parseable HTML", Actual: err.Error()})
			continue
		}
		for _, href := range hrefs {
			findings = append(findings, Finding{Check: CheckExternalLinks, Subject: p, Expected: `target="_blank" on ` + href, Actual: "no target"})
		}
	}
	return findings, nil
}

func lineOf(data, needle []byte) int {
	i := bytes.Index(data, needle)
	if i < 0 {
		return 0
	}
	return bytes.Count(data[:i], []byte("\n")) + 1
}

func abbreviate(s string) string {
	const limit = 120
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// closest returns the candidate sharing the longest common prefix with name.
func closest(name string, candidates map[string]struct{}) string {
	best, bestLen := "", 0
	for c := range candidates {
		n := commonPrefix(name, c)
		if n > bestLen || (n == bestLen && n > 0 && c < best) {
			best, bestLen = c, n
		}
	}
	return best
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
