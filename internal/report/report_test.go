package report_test

import (
	"strings"
	"testing"
	"time"

	"github.com/newhook/ralph-doctor/internal/doctor"
	"github.com/newhook/ralph-doctor/internal/git"
	"github.com/newhook/ralph-doctor/internal/host"
	"github.com/newhook/ralph-doctor/internal/ralph"
	"github.com/newhook/ralph-doctor/internal/report"
	"github.com/stretchr/testify/require"
)

func baseSnapshot() *doctor.Snapshot {
	return &doctor.Snapshot{
		Workspace:   "/work",
		GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Hostname:    "devbox",
		GoVersion:   "go1.25.5",
	}
}

func TestRenderNoSpecs(t *testing.T) {
	out := report.Render(baseSnapshot())

	want := strings.Join([]string{
		"# Ralph Workspace Spec Checkup",
		"",
		"**Generated:** 2024-01-02 03:04:05",
		"**Host:** devbox",
		"**Go:** go1.25.5",
		"",
		"⚠️ **No Ralph specs found in workspace**",
	}, "\n")
	require.Equal(t, want, out)
}

func TestRenderNoSpecsIgnoresVerbose(t *testing.T) {
	snap := baseSnapshot()
	snap.Verbose = true
	snap.Diagnostics = &doctor.Diagnostics{Docker: host.DockerUnavailable}

	out := report.Render(snap)
	require.True(t, strings.HasSuffix(out, report.NoSpecsWarning))
	require.NotContains(t, out, "System Diagnostics")
}

func TestRenderBlockedSpec(t *testing.T) {
	snap := baseSnapshot()
	snap.Specs = []doctor.SpecRecord{{
		Path: "/work/proj/specs/auth",
		Name: "proj/specs/auth",
		Progress: &ralph.ProgressState{
			Status:         "blocked",
			CurrentTask:    "t3",
			CompletedTasks: []string{"t1", "t2"},
			BlockedReason:  "awaiting approval",
			LastUpdated:    "2024-01-01T00:00:00Z",
		},
	}}

	out := report.Render(snap)
	want := strings.Join([]string{
		"## Found 1 Ralph Spec(s)",
		"",
		"### proj/specs/auth",
		"",
		"**Ralph Progress:**",
		"- Status: `blocked`",
		"- Current Task: `t3`",
		"- Completed: 2 tasks",
		"- 🚫 BLOCKED: awaiting approval",
		"- Last Updated: `2024-01-01T00:00:00Z`",
	}, "\n")
	require.True(t, strings.HasSuffix(out, want), out)
	require.NotContains(t, out, "Failed Tasks")
	require.NotContains(t, out, "Recent Session Activity")
	require.NotContains(t, out, "Git Status")
}

func TestRenderProgressVariants(t *testing.T) {
	t.Run("absent progress renders nothing", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Specs = []doctor.SpecRecord{{Path: "/w/p/specs/a", Name: "p/specs/a"}}
		out := report.Render(snap)
		require.True(t, strings.HasSuffix(out, "## Found 1 Ralph Spec(s)\n\n### p/specs/a"), out)
		require.NotContains(t, out, "Ralph Progress")
	})

	t.Run("defaults for missing fields", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Specs = []doctor.SpecRecord{{Path: "/w/p/specs/a", Name: "p/specs/a", Progress: &ralph.ProgressState{}}}
		out := report.Render(snap)
		require.Contains(t, out, "- Status: `unknown`\n- Current Task: `none`\n- Completed: 0 tasks\n- Last Updated: `never`")
	})

	t.Run("blocked without reason", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Specs = []doctor.SpecRecord{{Path: "/w/p/specs/a", Name: "p/specs/a", Progress: &ralph.ProgressState{Status: "blocked"}}}
		require.Contains(t, report.Render(snap), "- 🚫 BLOCKED: unknown\n")
	})

	t.Run("blocked reason only when blocked", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Specs = []doctor.SpecRecord{{Path: "/w/p/specs/a", Name: "p/specs/a", Progress: &ralph.ProgressState{
			Status:        "in-progress",
			BlockedReason: "stale reason",
			FailedTasks:   []string{"t4", "t5"},
		}}}
		out := report.Render(snap)
		require.NotContains(t, out, "BLOCKED")
		require.Contains(t, out, "- Failed Tasks: 2\n")
	})
}

func TestRenderGit(t *testing.T) {
	snap := baseSnapshot()
	snap.Specs = []doctor.SpecRecord{
		{Path: "/w/p/specs/a", Name: "p/specs/a", Git: &git.Info{
			Branch:  "main",
			Commits: []string{"c5 five", "c4 four", "c3 three", "c2 two", "c1 one"},
			Status:  " M plan.md\n?? notes.txt",
		}},
		{Path: "/w/p/specs/b", Name: "p/specs/b", Git: &git.Info{
			Branch:  "feature",
			Commits: []string{git.NoCommits},
		}},
	}

	out := report.Render(snap)
	require.Contains(t, out, "**Git Status:**\n- Branch: `main`\n- Recent Commits:\n  - c5 five\n  - c4 four\n  - c3 three\n- Uncommitted Changes:\n```\n M plan.md\n?? notes.txt\n```\n")
	require.NotContains(t, out, "c2 two")
	require.True(t, strings.HasSuffix(out, "- Branch: `feature`\n- Recent Commits:\n  - no commits"), out)
	require.Equal(t, 1, strings.Count(out, "Uncommitted Changes"))
}

func TestRenderGitOmitsEmptyBranch(t *testing.T) {
	snap := baseSnapshot()
	snap.Specs = []doctor.SpecRecord{{Path: "/w/p/specs/a", Name: "p/specs/a", Git: &git.Info{}}}
	require.True(t, strings.HasSuffix(report.Render(snap), "### p/specs/a\n\n**Git Status:**"))
}

func TestRenderVerboseSections(t *testing.T) {
	spec := doctor.SpecRecord{
		Path:       "/w/p/specs/a",
		Name:       "p/specs/a",
		SessionLog: []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7  "},
		Resources:  map[string]string{"web": "80M", "api": "120M"},
	}

	t.Run("hidden without verbose", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Specs = []doctor.SpecRecord{spec}
		out := report.Render(snap)
		require.NotContains(t, out, "Recent Session Activity")
		require.NotContains(t, out, "Disk Usage")
		require.NotContains(t, out, "System Diagnostics")
	})

	t.Run("shown with verbose", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Verbose = true
		snap.Specs = []doctor.SpecRecord{spec}
		snap.Diagnostics = &doctor.Diagnostics{
			Docker: host.DockerUnavailable,
			Dependencies: []host.Dependency{
				{Name: "timeout", Available: true, Path: "/usr/bin/timeout"},
				{Name: "jq"},
			},
		}

		out := report.Render(snap)
		require.Contains(t, out, "\n\n**Recent Session Activity:**\n  l3\n  l4\n  l5\n  l6\n  l7\n")
		require.NotContains(t, out, "l2\n")
		require.Contains(t, out, "\n\n**Disk Usage:**\n- api: 120M\n- web: 80M\n")

		diagnostics := strings.Join([]string{
			"",
			"## System Diagnostics",
			"",
			"**Docker Status:**",
			"```",
			"Docker not available or not running",
			"```",
			"",
			"**System Dependencies:**",
			"- timeout: ✅ Available",
			"  Path: `/usr/bin/timeout`",
			"- jq: ❌ Missing",
		}, "\n")
		require.True(t, strings.HasSuffix(out, diagnostics), out)
	})

	t.Run("empty verbose sections are omitted", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Verbose = true
		snap.Specs = []doctor.SpecRecord{{Path: "/w/p/specs/a", Name: "p/specs/a"}}
		out := report.Render(snap)
		require.NotContains(t, out, "Recent Session Activity")
		require.NotContains(t, out, "Disk Usage")
	})
}

func TestRenderSectionOrder(t *testing.T) {
	snap := baseSnapshot()
	snap.Verbose = true
	snap.Specs = []doctor.SpecRecord{{
		Path:       "/w/p/specs/a",
		Name:       "p/specs/a",
		Progress:   &ralph.ProgressState{Status: "done"},
		SessionLog: []string{"log"},
		Git:        &git.Info{Branch: "main"},
		Resources:  map[string]string{"api": "1M"},
	}}
	snap.Diagnostics = &doctor.Diagnostics{Docker: "NAMES"}

	out := report.Render(snap)
	order := []string{"# Ralph Workspace Spec Checkup", "## Found 1", "**Ralph Progress:**", "**Recent Session Activity:**", "**Git Status:**", "**Disk Usage:**", "## System Diagnostics"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		require.Greater(t, idx, last, "%q out of order", marker)
		last = idx
	}
}

func TestRenderSameNamedSpecs(t *testing.T) {
	snap := baseSnapshot()
	snap.Specs = []doctor.SpecRecord{
		{Path: "/w/a/specs/auth", Name: "a/specs/auth"},
		{Path: "/w/b/specs/auth", Name: "b/specs/auth"},
	}

	out := report.Render(snap)
	require.Contains(t, out, "## Found 2 Ralph Spec(s)")
	require.Less(t, strings.Index(out, "### a/specs/auth"), strings.Index(out, "### b/specs/auth"))
}

func TestRenderDeterministic(t *testing.T) {
	snap := baseSnapshot()
	snap.Verbose = true
	snap.Specs = []doctor.SpecRecord{{
		Path:      "/w/specs/a",
		Name:      "a",
		Resources: map[string]string{"c": "1M", "a": "2M", "b": "3M", "d": "4M"},
	}}
	snap.Diagnostics = &doctor.Diagnostics{Docker: "x"}

	first := report.Render(snap)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, report.Render(snap))
	}
}

func TestDiff(t *testing.T) {
	t.Run("identical reports", func(t *testing.T) {
		require.Equal(t, "No changes\n", report.Diff("a\nb\n", "a\nb\n"))
	})

	t.Run("metadata lines are ignored", func(t *testing.T) {
		earlier := baseSnapshot()
		later := baseSnapshot()
		later.GeneratedAt = later.GeneratedAt.Add(90 * time.Second)
		later.Hostname = "other"
		require.Equal(t, "No changes\n", report.Diff(report.Render(earlier), report.Render(later)))
	})

	t.Run("missing final newline is not a change", func(t *testing.T) {
		require.Equal(t, "No changes\n", report.Diff("a\nb", "a\nb\n"))
		require.Equal(t, "+ c\n\n1 line(s) added, 0 line(s) removed\n", report.Diff("a\nb", "a\nb\nc"))
	})

	t.Run("changed lines", func(t *testing.T) {
		previous := "# Report\n- Status: in-progress\n- Completed Tasks: 1\n"
		current := "# Report\n- Status: done\n- Completed Tasks: 1\n- Last Updated: now\n"

		out := report.Diff(previous, current)
		require.Contains(t, out, "- - Status: in-progress\n")
		require.Contains(t, out, "+ - Status: done\n")
		require.Contains(t, out, "+ - Last Updated: now\n")
		require.NotContains(t, out, "Completed Tasks")
		require.True(t, strings.HasSuffix(out, "2 line(s) added, 1 line(s) removed\n"))
	})
}
