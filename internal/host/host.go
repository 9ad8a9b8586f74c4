// Package host probes the machine and the workspace around a spec: service
// disk usage, container status and required executables.
package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/newhook/ralph-doctor/internal/logging"
	"github.com/newhook/ralph-doctor/internal/runner"
)

const (
	// ServicesDir is the sibling directory holding service checkouts.
	ServicesDir = "services"

	// DockerUnavailable is rendered when the container listing fails.
	DockerUnavailable = "Docker not available or not running"

	dockerCommand = `docker ps -a --format "table {{.Names}}\t{{.Status}}\t{{.Size}}"`
)

// ServicesPath returns the services directory for a spec: specs live at
// <project>/specs/<name>, services at <project>/services.
func ServicesPath(specDir string) string {
	return filepath.Join(specDir, "..", "..", ServicesDir)
}

// DiskUsage maps each service under the spec's services directory that has a
// cacheDir folder to the human-readable size of that folder. Services without
// the folder are skipped; a missing services directory yields an empty map.
func DiskUsage(ctx context.Context, r runner.Runner, specDir, cacheDir string) map[string]string {
	usage := make(map[string]string)

	servicesDir := filepath.Clean(ServicesPath(specDir))
	entries, err := os.ReadDir(servicesDir)
	if err != nil {
		return usage
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		cachePath := filepath.Join(servicesDir, entry.Name(), cacheDir)
		if info, err := os.Stat(cachePath); err != nil || !info.IsDir() {
			continue
		}
		usage[entry.Name()] = FolderSize(ctx, r, cachePath)
	}
	return usage
}

// FolderSize returns `du -sh` for path, or the failure placeholder.
func FolderSize(ctx context.Context, r runner.Runner, path string) string {
	res := r.Run(ctx, "du -sh "+shellQuote(path), "")
	if !res.IsOK() {
		logging.Debug("disk usage query failed", "path", path, "result", res.Kind.String())
		return res.Display()
	}
	if fields := strings.Fields(res.Output); len(fields) > 0 {
		return fields[0]
	}
	return res.Output
}

// DockerStatus returns the table of all containers, stopped ones included,
// or DockerUnavailable when the listing fails or prints nothing.
func DockerStatus(ctx context.Context, r runner.Runner) string {
	res := r.Run(ctx, dockerCommand, "")
	if !res.IsOK() || res.Output == "" {
		logging.Debug("docker listing failed", "result", res.Kind.String(), "reason", res.Reason)
		return DockerUnavailable
	}
	return res.Output
}

// Dependency is the availability of one required executable.
type Dependency struct {
	Name      string
	Available bool
	Path      string // Resolved path when available
}

// CheckDependencies checks each executable independently. Absence is
// reported in the result, never as an error.
func CheckDependencies(ctx context.Context, r runner.Runner, names []string) []Dependency {
	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		dep := Dependency{Name: name}
		res := r.Run(ctx, "command -v "+shellQuote(name), "")
		if res.IsOK() && res.Output != "" {
			dep.Available = true
			dep.Path = firstLine(res.Output)
		}
		deps = append(deps, dep)
	}
	return deps
}

// SortedServices returns the keys of a DiskUsage map in name order.
func SortedServices(usage map[string]string) []string {
	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// shellQuote wraps s in single quotes for sh.
func shellQuote(s string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(s, "'", `'"'"'`))
}
