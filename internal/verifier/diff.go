package verifier

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxAnchor  = 64
	minAnchor  = 4
	diffMargin = 16
)

// fragmentDiff diffs expected against the region of haystack that most
// plausibly was meant to contain it. Deletions render as [-x-], insertions
// as {+x+}.
func fragmentDiff(expected, haystack string) string {
	if expected == "" {
		return ""
	}
	offset := anchorOffset(expected, haystack)
	end := offset + len(expected) + diffMargin
	if end > len(haystack) {
		end = len(haystack)
	}
	window := strings.ToValidUTF8(haystack[offset:end], "")

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, window, false))
	return renderDiff(diffs)
}

// anchorOffset finds where the longest prefix of expected occurs in haystack.
func anchorOffset(expected, haystack string) int {
	n := len(expected)
	if n > maxAnchor {
		n = maxAnchor
	}
	for ; n >= minAnchor; n-- {
		if i := strings.Index(haystack, expected[:n]); i >= 0 {
			return i
		}
	}
	return 0
}

func renderDiff(diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		}
	}
	return b.String()
}

// valueDiff renders a diff between two short values.
func valueDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	return renderDiff(dmp.DiffCleanupSemantic(dmp.DiffMain(expected, actual, false)))
}
