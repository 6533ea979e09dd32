// Package revision identifies the source revision a verification run checked.
package revision

import (
	"errors"

	"github.com/go-git/go-git/v5"
)

// Info describes the checked-out commit of a repository.
type Info struct {
	Commit string `json:"commit"`
	Branch string `json:"branch,omitempty"`
	Dirty  bool   `json:"dirty"`
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.Commit) > 12 {
		return i.Commit[:12]
	}
	return i.Commit
}

// Resolve inspects the repository containing dir, searching parent
// directories for .git. ok is false when dir is not inside a repository.
func Resolve(dir string) (info Info, ok bool, err error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, err
	}

	head, err := repo.Head()
	if err != nil {
		// Freshly initialised repositories have no HEAD commit yet.
		return Info{}, false, nil
	}
	info.Commit = head.Hash().String()
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return info, true, nil
	}
	status, err := wt.Status()
	if err != nil {
		return info, true, err
	}
	info.Dirty = !status.IsClean()
	return info, true, nil
}
