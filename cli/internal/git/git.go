// Package git runs the git binary for the operations the commit pipeline
// needs: repository discovery, porcelain status, staged/unstaged diffs,
// staging, and committing. All commands run with a minimal environment and
// are context-aware so a cancelled pipeline never leaves a hanging process.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"c4f/cli/internal/erruser"
)

// Repo runs git commands in a fixed repository root. Zero value is not
// valid; use Open or New.
type Repo struct {
	root string
}

// New returns a Repo for the given repository root. The root is not
// validated; use Open to discover and validate it from any directory.
func New(root string) *Repo {
	return &Repo{root: root}
}

// Open discovers the repository root containing dir and returns a Repo for
// it. Returns a user-facing error when dir is not inside a git repository.
func Open(dir string) (*Repo, error) {
	root, err := RepoRoot(dir)
	if err != nil {
		return nil, err
	}
	return New(root), nil
}

// Root returns the repository root path.
func (r *Repo) Root() string { return r.root }

// RepoRoot returns the absolute path of the git repository root containing
// dir. Runs "git rev-parse --show-toplevel" with Dir=dir.
func RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("This directory is not inside a Git repository.", err)
	}
	root := strings.TrimSpace(string(out))
	return filepath.Abs(root)
}

// Status returns "git status --porcelain" output for the repository.
// Empty output means the index and working tree are both clean.
func (r *Repo) Status(ctx context.Context) (string, error) {
	return r.run(ctx, "status", "--porcelain")
}

// StagedDiff returns the unified diff of the index against HEAD, with
// rename detection so a moved file appears as a single entry.
func (r *Repo) StagedDiff(ctx context.Context) (string, error) {
	return r.run(ctx, "diff", "--cached", "--no-color", "--no-ext-diff", "-M")
}

// UnstagedDiff returns the unified diff of the working tree against the
// index, with rename detection.
func (r *Repo) UnstagedDiff(ctx context.Context) (string, error) {
	return r.run(ctx, "diff", "--no-color", "--no-ext-diff", "-M")
}

// StageAll stages every change in the working tree ("git add -A").
func (r *Repo) StageAll(ctx context.Context) error {
	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return erruser.New("Could not stage changes.", err)
	}
	return nil
}

// Commit records the staged changes with the given message. Subject and body
// are passed as separate -m arguments so git inserts the blank line.
func (r *Repo) Commit(ctx context.Context, subject, body string) error {
	if strings.TrimSpace(subject) == "" {
		return erruser.New("Refusing to commit with an empty message.", nil)
	}
	args := []string{"commit", "-m", subject}
	if strings.TrimSpace(body) != "" {
		args = append(args, "-m", body)
	}
	if _, err := r.run(ctx, args...); err != nil {
		return erruser.New("git commit failed.", err)
	}
	return nil
}

// run executes git with the given args in the repo root and returns stdout.
// Stderr is folded into the error for diagnostics.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	cmd.Env = minimalEnv()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// minimalEnv returns the reduced environment for git subprocesses: PATH for
// binary lookup, HOME for user config, and no terminal prompting.
func minimalEnv() []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + os.Getenv("HOME"),
		"GIT_TERMINAL_PROMPT=0",
	}
}
