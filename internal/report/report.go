// Package report renders a doctor.Snapshot as a markdown document.
package report

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/newhook/ralph-doctor/internal/doctor"
	"github.com/newhook/ralph-doctor/internal/git"
	"github.com/newhook/ralph-doctor/internal/host"
	"github.com/newhook/ralph-doctor/internal/ralph"
)

const (
	// Title is the first line of every report.
	Title = "# Ralph Workspace Spec Checkup"

	// NoSpecsWarning is the only body line when discovery found nothing.
	NoSpecsWarning = "⚠️ **No Ralph specs found in workspace**"

	// SessionLogRenderLines is how many log lines are shown per spec.
	SessionLogRenderLines = 5
	// CommitRenderLimit is how many recent commits are shown per spec.
	CommitRenderLimit = 3

	generatedLabel = "**Generated:** "
	hostLabel      = "**Host:** "
	goLabel        = "**Go:** "

	timeFormat = "2006-01-02 15:04:05"
)

// Render renders snap. It is a pure function of its input. The result has no
// trailing newline.
func Render(snap *doctor.Snapshot) string {
	lines := []string{
		Title,
		"",
		generatedLabel + snap.GeneratedAt.Format(timeFormat),
		hostLabel + snap.Hostname,
		goLabel + snap.GoVersion,
	}

	if len(snap.Specs) == 0 {
		lines = append(lines, "", NoSpecsWarning)
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "", fmt.Sprintf("## Found %d Ralph Spec(s)", len(snap.Specs)))

	for i := range snap.Specs {
		lines = append(lines, renderSpec(&snap.Specs[i], snap.Verbose)...)
	}

	if snap.Verbose && snap.Diagnostics != nil {
		lines = append(lines, renderDiagnostics(snap.Diagnostics)...)
	}

	return strings.Join(lines, "\n")
}

func renderSpec(spec *doctor.SpecRecord, verbose bool) []string {
	lines := []string{"", "### " + spec.Name}

	lines = append(lines, renderProgress(spec.Progress)...)

	if verbose && len(spec.SessionLog) > 0 {
		lines = append(lines, "", "**Recent Session Activity:**")
		for _, l := range tail(spec.SessionLog, SessionLogRenderLines) {
			lines = append(lines, "  "+strings.TrimRightFunc(l, unicode.IsSpace))
		}
	}

	lines = append(lines, renderGit(spec.Git)...)

	if verbose && len(spec.Resources) > 0 {
		lines = append(lines, "", "**Disk Usage:**")
		for _, name := range host.SortedServices(spec.Resources) {
			lines = append(lines, fmt.Sprintf("- %s: %s", name, spec.Resources[name]))
		}
	}

	return lines
}

func renderProgress(p *ralph.ProgressState) []string {
	if p == nil {
		return nil
	}

	lines := []string{
		"",
		"**Ralph Progress:**",
		fmt.Sprintf("- Status: `%s`", orDefault(p.Status, ralph.StatusUnknown)),
		fmt.Sprintf("- Current Task: `%s`", orDefault(p.CurrentTask, "none")),
		fmt.Sprintf("- Completed: %d tasks", len(p.CompletedTasks)),
	}
	if p.IsBlocked() {
		lines = append(lines, fmt.Sprintf("- 🚫 BLOCKED: %s", orDefault(p.BlockedReason, "unknown")))
	}
	if len(p.FailedTasks) > 0 {
		lines = append(lines, fmt.Sprintf("- Failed Tasks: %d", len(p.FailedTasks)))
	}
	return append(lines, fmt.Sprintf("- Last Updated: `%s`", orDefault(p.LastUpdated, "never")))
}

func renderGit(info *git.Info) []string {
	if info == nil {
		return nil
	}

	lines := []string{"", "**Git Status:**"}
	if info.Branch != "" {
		lines = append(lines, fmt.Sprintf("- Branch: `%s`", info.Branch))
	}
	if len(info.Commits) > 0 {
		lines = append(lines, "- Recent Commits:")
		commits := info.Commits
		if len(commits) > CommitRenderLimit {
			commits = commits[:CommitRenderLimit]
		}
		for _, c := range commits {
			if strings.TrimSpace(c) != "" {
				lines = append(lines, "  - "+strings.TrimRightFunc(c, unicode.IsSpace))
			}
		}
	}
	if info.HasChanges() {
		lines = append(lines, "- Uncommitted Changes:", "```", info.Status, "```")
	}
	return lines
}

func renderDiagnostics(d *doctor.Diagnostics) []string {
	lines := []string{
		"",
		"## System Diagnostics",
		"",
		"**Docker Status:**",
		"```",
		d.Docker,
		"```",
		"",
		"**System Dependencies:**",
	}
	for _, dep := range d.Dependencies {
		status := "❌ Missing"
		if dep.Available {
			status = "✅ Available"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", dep.Name, status))
		if dep.Path != "" {
			lines = append(lines, fmt.Sprintf("  Path: `%s`", dep.Path))
		}
	}
	return lines
}

func tail(lines []string, n int) []string {
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
