// Package linkmod marks links to other hosts so they open in a new tab.
//
// An anchor is external when its href is an absolute http(s) URL (or a
// protocol-relative one) whose hostname is not in the allowed set. Relative
// links and non-web schemes such as mailto: are left alone.
package linkmod

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docverify/internal/discovery"
	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/logfields"
)

const (
	targetBlank = "_blank"
	relValue    = "noopener"
)

// Hosts is the set of hostnames treated as internal.
type Hosts map[string]struct{}

// NewHosts builds a host set. Entries may be bare hostnames or URLs; ports are ignored.
func NewHosts(hosts ...string) Hosts {
	out := make(Hosts, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if strings.Contains(h, "://") {
			if u, err := url.Parse(h); err == nil {
				h = u.Hostname()
			}
		} else if i := strings.LastIndexByte(h, ':'); i > 0 && !strings.Contains(h[i:], "]") {
			h = h[:i]
		}
		out[strings.ToLower(h)] = struct{}{}
	}
	return out
}

// IsExternal reports whether href points at a host outside the set.
func (h Hosts) IsExternal(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	_, internal := h[strings.ToLower(u.Hostname())]
	return !internal
}

// Rewrite walks the parsed document and marks external anchors. It returns
// the number of anchors it changed.
func Rewrite(doc *html.Node, hosts Hosts) int {
	changed := 0
	walkAnchors(doc, func(n *html.Node, href string) {
		if !hosts.IsExternal(href) {
			return
		}
		if setAttr(n, "target", targetBlank) {
			changed++
		}
		addRel(n, relValue)
	})
	return changed
}

// RewriteHTML parses r, marks external anchors and renders the document to w.
func RewriteHTML(r io.Reader, w io.Writer, hosts Hosts) (int, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}
	n := Rewrite(doc, hosts)
	if err := html.Render(w, doc); err != nil {
		return n, errors.WrapError(err, errors.CategoryInternal, "failed to render HTML").Build()
	}
	return n, nil
}

// RewriteFile rewrites one HTML file in place. Unchanged files are not written.
func RewriteFile(path string, hosts Hosts) (int, error) {
	// #nosec G304 -- path comes from discovery under the output root
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "failed to read HTML file").
			WithContext("path", path).Build()
	}
	var buf bytes.Buffer
	n, err := RewriteHTML(bytes.NewReader(data), &buf, hosts)
	if err != nil || n == 0 {
		return n, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return n, errors.WrapError(err, errors.CategoryFileSystem, "failed to stat HTML file").Build()
	}
	if err := os.WriteFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return n, errors.WrapError(err, errors.CategoryFileSystem, "failed to write HTML file").
			WithContext("path", path).Build()
	}
	return n, nil
}

// RewriteDir rewrites every HTML file below dir and returns the total number
// of anchors changed.
func RewriteDir(ctx context.Context, dir string, hosts Hosts) (int, error) {
	set, err := discovery.Glob(ctx, discovery.Pattern{Name: "html", Base: dir, Glob: "**/*.html", Required: true})
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range set.Paths {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := RewriteFile(p, hosts)
		if err != nil {
			return total, err
		}
		if n > 0 {
			slog.Debug("Marked external links", logfields.File(p), logfields.Count(n))
		}
		total += n
	}
	slog.Info("External links marked", logfields.Dir(dir), logfields.Count(total))
	return total, nil
}

// MissingTarget returns the hrefs of external anchors in r that would not
// open in a new tab.
func MissingTarget(r io.Reader, hosts Hosts) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}
	var missing []string
	walkAnchors(doc, func(n *html.Node, href string) {
		if hosts.IsExternal(href) && getAttr(n, "target") != targetBlank {
			missing = append(missing, href)
		}
	})
	return missing, nil
}

func walkAnchors(n *html.Node, fn func(*html.Node, string)) {
	if n.Type == html.ElementNode && n.Data == "a" {
		if href := getAttr(n, "href"); href != "" {
			fn(n, href)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkAnchors(c, fn)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// setAttr sets key to val and reports whether the node changed.
func setAttr(n *html.Node, key, val string) bool {
	for i, a := range n.Attr {
		if a.Key == key {
			if a.Val == val {
				return false
			}
			n.Attr[i].Val = val
			return true
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return true
}

func addRel(n *html.Node, token string) {
	for i, a := range n.Attr {
		if a.Key != "rel" {
			continue
		}
		for _, f := range strings.Fields(a.Val) {
			if f == token {
				return
			}
		}
		n.Attr[i].Val = strings.TrimSpace(a.Val + " " + token)
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "rel", Val: token})
}
