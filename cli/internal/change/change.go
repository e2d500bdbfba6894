// Package change collects the set of changed files and their diffs from a
// git repository, normalized for classification and prompt building.
//
// # Staged vs unstaged
// When a path has both staged and unstaged modifications, the staged diff is
// used: only staged content is ever committed, so only staged content is
// summarized. Paths with no staged content fall back to their unstaged diff.
//
// # Renames
// A renamed file is a single ChangedFile with StatusRenamed, OldPath, and the
// similarity score git reports, never a delete+add pair; line counts are
// therefore never double-counted.
//
// # Binary and untracked files
// Binary files get an empty Diff (git emits no unified diff content for
// them). Untracked files appear with StatusAdded and an empty Diff; path
// rules still classify them.
package change

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoChanges indicates the index and working tree are both clean; there is
// nothing to summarize or commit.
var ErrNoChanges = errors.New("no changes to commit")

// Status is the normalized change kind for one file.
type Status string

const (
	StatusAdded    Status = "added"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
	StatusRenamed  Status = "renamed"
)

// ChangedFile is one changed path with its diff text and line counts.
// Immutable once built; discarded at the end of one generation cycle.
type ChangedFile struct {
	Path       string
	OldPath    string // set only for StatusRenamed
	Status     Status
	Similarity int    // rename similarity percent (0 when not reported)
	Diff       string // unified diff body; empty for binary or untracked files
	Added      int    // lines added
	Removed    int    // lines removed
	Staged     bool   // content came from the index, not the working tree
}

// Lines returns the total changed-line count (added + removed).
func (f ChangedFile) Lines() int { return f.Added + f.Removed }

// Repository is the version-control collaborator the collector consumes.
// *git.Repo satisfies it; tests inject stubs.
type Repository interface {
	Status(ctx context.Context) (string, error)
	StagedDiff(ctx context.Context) (string, error)
	UnstagedDiff(ctx context.Context) (string, error)
}

// Collect gathers all changed files from repo. Returns ErrNoChanges when the
// porcelain status is empty. Files keep git's status ordering, which is
// stable for identical working trees.
func Collect(ctx context.Context, repo Repository) ([]ChangedFile, error) {
	status, err := repo.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("change: status: %w", err)
	}
	entries := parseStatus(status)
	if len(entries) == 0 {
		return nil, ErrNoChanges
	}

	stagedOut, err := repo.StagedDiff(ctx)
	if err != nil {
		return nil, fmt.Errorf("change: staged diff: %w", err)
	}
	staged := parseUnifiedDiff(stagedOut)

	var unstaged map[string]fileDiff
	for _, e := range entries {
		if !e.staged {
			out, err := repo.UnstagedDiff(ctx)
			if err != nil {
				return nil, fmt.Errorf("change: unstaged diff: %w", err)
			}
			unstaged = parseUnifiedDiff(out)
			break
		}
	}

	files := make([]ChangedFile, 0, len(entries))
	for _, e := range entries {
		f := ChangedFile{
			Path:    e.path,
			OldPath: e.oldPath,
			Status:  e.status,
			Staged:  e.staged,
		}
		var d fileDiff
		var ok bool
		if e.staged {
			d, ok = staged[e.path]
		} else {
			d, ok = unstaged[e.path]
		}
		if ok && !d.binary {
			f.Diff = d.body
			f.Added = d.added
			f.Removed = d.removed
			if d.similarity > 0 {
				f.Similarity = d.similarity
			}
			if d.oldPath != "" && f.OldPath == "" {
				f.OldPath = d.oldPath
			}
		}
		files = append(files, f)
	}
	return files, nil
}

// statusEntry is one parsed porcelain line.
type statusEntry struct {
	path    string
	oldPath string
	status  Status
	staged  bool
}

// parseStatus parses "git status --porcelain" v1 output. Each line is
// "XY PATH" or, for renames, "XY OLD -> NEW". X is the index column, Y the
// working-tree column; "??" marks untracked files.
func parseStatus(out string) []statusEntry {
	var entries []statusEntry
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		x, y := line[0], line[1]
		rest := line[3:]

		e := statusEntry{path: rest}
		if x == '?' && y == '?' {
			e.status = StatusAdded
			e.staged = false
			entries = append(entries, e)
			continue
		}
		e.staged = x != ' '
		switch {
		case x == 'R' || y == 'R':
			e.status = StatusRenamed
			if old, newPath, found := strings.Cut(rest, " -> "); found {
				e.oldPath = old
				e.path = newPath
			}
		case x == 'A':
			e.status = StatusAdded
		case x == 'D' || (x == ' ' && y == 'D'):
			e.status = StatusDeleted
		default:
			e.status = StatusModified
		}
		entries = append(entries, e)
	}
	return entries
}
