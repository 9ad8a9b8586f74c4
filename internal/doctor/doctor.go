// Package doctor aggregates probe results for every discovered spec into a
// single point-in-time Snapshot.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/newhook/ralph-doctor/internal/discovery"
	"github.com/newhook/ralph-doctor/internal/git"
	"github.com/newhook/ralph-doctor/internal/host"
	"github.com/newhook/ralph-doctor/internal/logging"
	"github.com/newhook/ralph-doctor/internal/ralph"
	"github.com/newhook/ralph-doctor/internal/runner"
)

// Options configures one collection pass.
type Options struct {
	Workspace string // Workspace root; "" means the current directory
	Verbose   bool   // Include session logs, disk usage and diagnostics

	RequiredExecutables []string
	DependencyCacheDir  string
	MaxLogLineWidth     int

	Runner   runner.Runner
	Now      func() time.Time       // Defaults to time.Now
	Hostname func() (string, error) // Defaults to os.Hostname
}

// SpecRecord is everything collected for one spec directory. Nil or empty
// fields mean the probe found no data.
type SpecRecord struct {
	Path       string
	Name       string
	Progress   *ralph.ProgressState
	SessionLog []string
	Git        *git.Info
	Resources  map[string]string
}

// Diagnostics holds workspace-wide probe results.
type Diagnostics struct {
	Docker       string
	Dependencies []host.Dependency
}

// Snapshot is the aggregated result of one pass.
type Snapshot struct {
	Workspace   string
	GeneratedAt time.Time
	Hostname    string
	GoVersion   string
	Verbose     bool
	Specs       []SpecRecord
	Diagnostics *Diagnostics // Set only in verbose mode
}

// Collect discovers specs under opts.Workspace and probes each one in order.
// Only an unresolvable workspace returns an error; probe failures degrade to
// missing data in the snapshot.
func Collect(ctx context.Context, opts Options) (*Snapshot, error) {
	opts = withDefaults(opts)

	specs, err := discovery.Find(opts.Workspace)
	if err != nil {
		return nil, err
	}
	workspace, err := discovery.ResolveRoot(opts.Workspace)
	if err != nil {
		return nil, err
	}

	hostname, err := opts.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	snap := &Snapshot{
		Workspace:   workspace,
		GeneratedAt: opts.Now(),
		Hostname:    hostname,
		GoVersion:   runtime.Version(),
		Verbose:     opts.Verbose,
		Specs:       make([]SpecRecord, 0, len(specs)),
	}

	cache := newMemo(opts.Runner)
	for _, specDir := range specs {
		snap.Specs = append(snap.Specs, collectSpec(ctx, opts, cache, specDir))
	}

	if opts.Verbose {
		snap.Diagnostics = &Diagnostics{}
		guard("docker", workspace, func() {
			snap.Diagnostics.Docker = host.DockerStatus(ctx, opts.Runner)
		})
		guard("dependencies", workspace, func() {
			snap.Diagnostics.Dependencies = host.CheckDependencies(ctx, opts.Runner, opts.RequiredExecutables)
		})
	}

	logging.Info("collected snapshot", "workspace", workspace, "specs", len(snap.Specs), "verbose", opts.Verbose)
	return snap, nil
}

// collectSpec runs the per-spec probes. Each probe is guarded so a panic in
// one leaves the others' data intact.
func collectSpec(ctx context.Context, opts Options, m *memo, specDir string) SpecRecord {
	rec := SpecRecord{
		Path: specDir,
		Name: specName(specDir),
	}
	log := logging.With("spec", specDir)

	guard("progress", specDir, func() {
		rec.Progress = ralph.ReadProgressState(specDir)
	})
	if opts.Verbose {
		guard("session_log", specDir, func() {
			rec.SessionLog = ralph.ReadSessionLog(specDir, opts.MaxLogLineWidth)
		})
	}
	guard("git", specDir, func() {
		rec.Git = m.gitInfo(ctx, specDir)
	})
	if opts.Verbose {
		guard("resources", specDir, func() {
			rec.Resources = m.diskUsage(ctx, specDir, opts.DependencyCacheDir)
		})
	}

	log.Debug("collected spec",
		"has_progress", rec.Progress != nil,
		"has_git", rec.Git != nil,
	)
	return rec
}

// specName is specDir relative to the directory holding its project, so
// "<ws>/proj/specs/auth" is named "proj/specs/auth".
func specName(specDir string) string {
	base := filepath.Dir(filepath.Dir(filepath.Dir(specDir)))
	if rel, err := filepath.Rel(base, specDir); err == nil {
		return rel
	}
	return filepath.Base(specDir)
}

func guard(probe, target string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("probe panicked", "probe", probe, "target", target, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

func withDefaults(opts Options) Options {
	if opts.Workspace == "" {
		opts.Workspace = "."
	}
	if opts.Runner == nil {
		opts.Runner = runner.New(runner.DefaultTimeout)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Hostname == nil {
		opts.Hostname = os.Hostname
	}
	if len(opts.RequiredExecutables) == 0 {
		opts.RequiredExecutables = []string{"timeout"}
	}
	if opts.DependencyCacheDir == "" {
		opts.DependencyCacheDir = "node_modules"
	}
	return opts
}
