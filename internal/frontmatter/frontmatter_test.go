package frontmatter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\nid: intro\n---\n# Title\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("id: intro\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, err := Split([]byte("---\nid: intro\n# Title\n"))
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\r\nid: intro\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("id: intro\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	fm, body, had, err := Split([]byte("---\nid: intro\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("id: intro\n"), fm)
	require.Empty(t, body)
}

func TestSplit_EmptyFrontmatterBlock(t *testing.T) {
	fm, body, had, err := Split([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestParse_ID(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"string", "---\nid: intro\ntitle: Intro\n---\nbody\n", "intro", true},
		{"integer", "---\nid: 42\n---\n", "42", true},
		{"quoted padded", "---\nid: '  spaced '\n---\n", "spaced", true},
		{"missing", "---\ntitle: x\n---\n", "", false},
		{"empty", "---\nid: ''\n---\n", "", false},
		{"no frontmatter", "# Just a body\n", "", false},
		{"list is not an id", "---\nid: [a, b]\n---\n", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse([]byte(tc.input))
			require.NoError(t, err)
			id, ok := doc.ID()
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.wantID, id)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("---\n: not yaml\n---\n"))
	require.Error(t, err)
}

func TestReadFile_SetsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intro.md")
	require.NoError(t, os.WriteFile(path, []byte("---\nid: intro\n---\nHello\n"), 0o600))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, path, doc.Path)
	id, _ := doc.ID()
	require.Equal(t, "intro", id)
}

func TestFingerprint_ChangesWithBody(t *testing.T) {
	a, err := Parse([]byte("---\nid: a\n---\none\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("---\nid: a\n---\ntwo\n"))
	require.NoError(t, err)
	again, err := Parse([]byte("---\nid: a\n---\none\n"))
	require.NoError(t, err)

	require.NotEmpty(t, a.Fingerprint())
	require.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	require.Equal(t, a.Fingerprint(), again.Fingerprint())
}

func TestSplit_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[a-z][a-z0-9-]{0,15}`).Draw(t, "id")
		body := rapid.StringMatching(`[A-Za-z0-9 #\n]{0,64}`).Draw(t, "body")
		input := "---\nid: " + id + "\n---\n" + body

		fm, gotBody, had, err := Split([]byte(input))
		if err != nil {
			t.Fatalf("split: %v", err)
		}
		if !had {
			t.Fatalf("expected frontmatter")
		}
		if string(fm) != "id: "+id+"\n" || string(gotBody) != body {
			t.Fatalf("split mismatch: fm=%q body=%q", fm, gotBody)
		}
	})
}
