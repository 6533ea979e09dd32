package revision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func TestResolve_NotARepository(t *testing.T) {
	_, ok, err := Resolve(t.TempDir())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolve_FindsParentRepository(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "intro.md"), []byte("---\nid: intro\n---\n"), 0o600))

	w, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, w.AddGlob("."))
	hash, err := w.Commit("Initial test commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	info, ok, err := Resolve(docs)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, hash.String(), info.Commit)
	require.Len(t, info.Short(), 12)
	require.False(t, info.Dirty)

	require.NoError(t, os.WriteFile(filepath.Join(docs, "intro.md"), []byte("changed"), 0o600))
	info, _, err = Resolve(docs)
	require.NoError(t, err)
	require.True(t, info.Dirty)
}
