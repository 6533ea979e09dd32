package generator

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type heading struct {
	level int
	id    string
	title string
}

// tableOfContents returns a Markdown list linking the level 2 and 3 headings
// of body. Heading ids match the ones goldmark assigns when rendering.
func tableOfContents(md goldmark.Markdown, body []byte) []byte {
	root := md.Parser().Parse(text.NewReader(body))

	var headings []heading
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok || h.Level < 2 || h.Level > 3 {
			return gmast.WalkContinue, nil
		}
		var id string
		if v, ok := h.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok {
				id = string(b)
			}
		}
		headings = append(headings, heading{level: h.Level, id: id, title: headingText(h, body)})
		return gmast.WalkSkipChildren, nil
	})

	var buf bytes.Buffer
	for _, h := range headings {
		indent := strings.Repeat("  ", h.level-2)
		fmt.Fprintf(&buf, "%s- [%s](#%s)\n", indent, h.title, h.id)
	}
	return buf.Bytes()
}

func headingText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
