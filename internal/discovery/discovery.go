// Package discovery locates Ralph spec directories under a workspace root.
//
// A spec directory is an immediate child of a directory named "specs" that
// contains the ralph marker subdirectory. Results are sorted so successive
// reports over the same tree list specs in the same order.
package discovery

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/newhook/ralph-doctor/internal/logging"
	"github.com/newhook/ralph-doctor/internal/ralph"
)

const (
	// SpecsDirName is the container directory name that holds spec directories.
	SpecsDirName = "specs"
	// IgnoreFile holds gitignore-style rules for subtrees to skip.
	IgnoreFile = ".ralph-doctorignore"
)

// ResolveRoot expands a leading ~ and returns the absolute, symlink-free path.
func ResolveRoot(path string) (string, error) {
	if path == "" {
		path = "."
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace %s: %w", path, err)
	}
	return resolved, nil
}

// Find returns the sorted spec directories under root. root is resolved with
// ResolveRoot first; failing to resolve it is the only error. Entries that
// disappear or become unreadable during the walk are skipped.
func Find(root string) ([]string, error) {
	root, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	ignorer := loadIgnoreRules(root)
	seen := make(map[string]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if ignorer != nil {
			if rel, err := filepath.Rel(root, path); err == nil && ignorer.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
		}
		if d.Name() == SpecsDirName {
			for _, spec := range specChildren(path) {
				seen[spec] = true
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk workspace %s: %w", root, walkErr)
	}

	specs := make([]string, 0, len(seen))
	for spec := range seen {
		specs = append(specs, spec)
	}
	sort.Strings(specs)

	logging.Debug("discovered specs", "root", root, "count", len(specs))
	return specs, nil
}

// specChildren returns the immediate subdirectories of specsDir that carry
// the ralph marker.
func specChildren(specsDir string) []string {
	entries, err := os.ReadDir(specsDir)
	if err != nil {
		return nil
	}

	var specs []string
	for _, entry := range entries {
		child := filepath.Join(specsDir, entry.Name())
		info, err := os.Stat(child)
		if err != nil || !info.IsDir() {
			continue
		}
		if ralph.HasMarker(child) {
			specs = append(specs, child)
		}
	}
	return specs
}

// loadIgnoreRules compiles root/IgnoreFile, or returns nil if there is none.
func loadIgnoreRules(root string) *ignore.GitIgnore {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() != nil || len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}
