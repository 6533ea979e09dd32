package verifier

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"git.home.luguber.info/inful/docverify/internal/metrics"
)

// Formatter writes a report for humans or machines.
type Formatter interface {
	Format(w io.Writer, r *Report) error
}

// TextFormatter renders reports as human-readable text. Subject paths are
// shown relative to Root when possible.
type TextFormatter struct {
	Root    string
	Verbose bool
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(root string, verbose bool) *TextFormatter {
	return &TextFormatter{Root: root, Verbose: verbose}
}

// Format outputs the report in text form.
func (f *TextFormatter) Format(w io.Writer, r *Report) error {
	p := &printer{w: w}
	p.printf("Verifying %s", r.Project)
	if r.Revision != "" {
		rev := r.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		p.printf(" @ %s", rev)
		if r.Dirty {
			p.printf(" (dirty)")
		}
	}
	p.printf("\n%s\n", strings.Repeat("━", 60))

	if b := r.Build; b != nil {
		p.printf("Build: %s (exit %d, %s)\n", b.Command, b.ExitCode, b.Duration.Round(1e6))
		if f.Verbose && b.Output != "" {
			for line := range strings.SplitSeq(strings.TrimRight(b.Output, "\n"), "\n") {
				p.printf("  │ %s\n", line)
			}
		}
	}

	for _, c := range r.Checks {
		p.printf("%s %s", statusIcon(c.Status), c.Name)
		if c.Status != metrics.CheckSkipped {
			p.printf(" (%s)", c.Duration.Round(1e6))
		}
		p.printf("\n")
		if c.Error != "" {
			p.printf("  error: %s\n", c.Error)
		}
		for _, fd := range c.Findings {
			p.printf("  %s\n", rel(f.Root, fd.Subject))
			p.printf("    expected: %s\n", fd.Expected)
			p.printf("    actual:   %s\n", fd.Actual)
			if fd.Diff != "" {
				p.printf("    diff:     %s\n", fd.Diff)
			}
		}
	}

	p.printf("%s\n", strings.Repeat("━", 60))
	switch r.Outcome {
	case OutcomePassed:
		p.printf("✨ All %d checks passed\n", len(r.Checks))
	case OutcomeFailed:
		failed := r.FailedChecks()
		p.printf("❌ %d check%s failed with %d finding%s: %s\n",
			len(failed), pluralize(len(failed)), r.FindingCount(), pluralize(r.FindingCount()), strings.Join(failed, ", "))
	case OutcomeBuildFailed:
		p.printf("❌ Site build failed: %s\n", r.Error)
	default:
		p.printf("❌ Verification aborted: %s\n", r.Error)
	}
	return p.err
}

// JSONFormatter renders reports as indented JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter { return &JSONFormatter{} }

// Format outputs the report as JSON.
func (f *JSONFormatter) Format(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// NewFormatter returns the formatter for format ("json" or text).
func NewFormatter(format, root string, verbose bool) Formatter {
	if format == "json" {
		return NewJSONFormatter()
	}
	return NewTextFormatter(root, verbose)
}

func statusIcon(s metrics.CheckStatus) string {
	switch s {
	case metrics.CheckPassed:
		return "✓"
	case metrics.CheckSkipped:
		return "-"
	default:
		return "✗"
	}
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
