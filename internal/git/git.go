// Package git collects read-only version-control status for a directory.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/newhook/ralph-doctor/internal/runner"
)

const (
	// RepoMarker identifies a repository root. It may be a directory or,
	// inside a worktree, a file.
	RepoMarker = ".git"

	// CommitLimit bounds the recent-commit query.
	CommitLimit = 5

	// NoCommits replaces the commit list when the log query fails.
	NoCommits = "no commits"
)

const (
	branchCommand = "git rev-parse --abbrev-ref HEAD"
	statusCommand = "git status --short"
)

var logCommand = fmt.Sprintf("git log --oneline -%d", CommitLimit)

// Info is a snapshot of a repository's working state.
type Info struct {
	Root    string   // Repository root the queries ran in
	Branch  string   // Current branch, or a failure placeholder
	Commits []string // Recent one-line commit summaries, newest first
	Status  string   // Short working-tree status; empty when clean
}

// HasChanges reports whether the working tree has uncommitted changes.
func (i *Info) HasChanges() bool {
	return i.Status != ""
}

// FindRepoRoot walks up from dir looking for a RepoMarker entry.
// Returns false if the filesystem root is reached without finding one.
func FindRepoRoot(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, RepoMarker)); err == nil {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", false
		}
		dir = parent
	}
}

// Collect gathers branch, recent commits and working-tree status for the
// repository enclosing dir. Returns nil if dir is not inside a repository.
func Collect(ctx context.Context, r runner.Runner, dir string) *Info {
	root, ok := FindRepoRoot(dir)
	if !ok {
		return nil
	}
	return CollectRoot(ctx, r, root)
}

// CollectRoot runs the three status queries in an already-located root.
func CollectRoot(ctx context.Context, r runner.Runner, root string) *Info {
	info := &Info{Root: root}

	info.Branch = r.Run(ctx, branchCommand, root).Display()

	if res := r.Run(ctx, logCommand, root); res.IsOK() {
		info.Commits = splitLines(res.Output)
	} else {
		info.Commits = []string{NoCommits}
	}

	info.Status = r.Run(ctx, statusCommand, root).Display()

	return info
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
