// Package discovery resolves glob patterns into file sets.
//
// Patterns support `**` for recursive matching. Each lookup runs concurrently;
// Discover returns only once all of them have finished.
package discovery

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/docverify/internal/foundation/errors"
	"git.home.luguber.info/inful/docverify/internal/logfields"
)

// Pattern is a glob evaluated relative to Base.
type Pattern struct {
	Name string
	Base string
	Glob string
	// Required patterns fail discovery when Base does not exist. Optional
	// patterns yield an empty set instead.
	Required bool
}

// String returns the pattern as an absolute glob.
func (p Pattern) String() string {
	return filepath.Join(p.Base, filepath.FromSlash(p.Glob))
}

// FileSet is the sorted list of absolute file paths matching one pattern.
type FileSet struct {
	Name    string
	Pattern string
	Paths   []string
}

// Len returns the number of files in the set.
func (s FileSet) Len() int { return len(s.Paths) }

// Basenames returns the NFC-normalised basenames of the set.
func (s FileSet) Basenames() map[string]struct{} {
	out := make(map[string]struct{}, len(s.Paths))
	for _, p := range s.Paths {
		out[Basename(p)] = struct{}{}
	}
	return out
}

// Basename returns the NFC-normalised final element of p. Filesystems that
// store decomposed names (HFS+) would otherwise fail byte comparison.
func Basename(p string) string {
	return norm.NFC.String(filepath.Base(p))
}

// Glob evaluates a single pattern.
func Glob(ctx context.Context, p Pattern) (FileSet, error) {
	set := FileSet{Name: p.Name, Pattern: p.String()}
	if err := ctx.Err(); err != nil {
		return set, err
	}

	// Stat the static prefix so a missing docs directory is reported as such
	// rather than as an empty match.
	prefix, rest := doublestar.SplitPattern(path.Clean(filepath.ToSlash(p.Glob)))
	base := p.Base
	if prefix != "." {
		base = filepath.Join(p.Base, filepath.FromSlash(prefix))
	}

	info, err := os.Stat(base)
	switch {
	case err != nil && os.IsNotExist(err) && !p.Required:
		slog.Debug("Glob base missing, returning empty set", slog.String("set", p.Name), logfields.Path(base))
		return set, nil
	case err != nil:
		return set, errors.WrapError(err, errors.CategoryFileSystem, "glob base not accessible").
			WithContext("set", p.Name).
			WithContext("path", base).Build()
	case !info.IsDir():
		return set, errors.FileSystemError("glob base is not a directory").
			WithContext("set", p.Name).
			WithContext("path", base).Build()
	}

	matches, err := doublestar.Glob(os.DirFS(base), rest,
		doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return set, errors.WrapError(err, errors.CategoryFileSystem, "glob failed").
			WithContext("set", p.Name).
			WithContext("pattern", set.Pattern).Build()
	}

	set.Paths = make([]string, 0, len(matches))
	for _, m := range matches {
		set.Paths = append(set.Paths, filepath.Join(base, filepath.FromSlash(m)))
	}
	sort.Strings(set.Paths)

	slog.Debug("Glob resolved", slog.String("set", p.Name), logfields.Pattern(set.Pattern), logfields.Count(len(set.Paths)))
	return set, nil
}

// Discover evaluates all patterns concurrently and returns their sets in the
// order the patterns were given. The first error cancels the remaining lookups.
func Discover(ctx context.Context, patterns ...Pattern) ([]FileSet, error) {
	sets := make([]FileSet, len(patterns))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range patterns {
		g.Go(func() error {
			set, err := Glob(gctx, p)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}
