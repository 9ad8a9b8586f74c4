// Package ralph reads the state an autonomous Ralph agent persists inside a
// spec directory. Everything here is read-only; absent or malformed files are
// reported as "no data", never as errors.
package ralph

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/muesli/reflow/truncate"
	"github.com/newhook/ralph-doctor/internal/logging"
)

const (
	// MarkerDir is the subdirectory that marks a spec directory as Ralph-managed.
	MarkerDir = ".ralph"
	// ProgressFile is the progress state file inside MarkerDir.
	ProgressFile = "progress.json"
	// SessionLogFile is the agent's free-text log inside MarkerDir.
	SessionLogFile = "session.log"

	// SessionLogReadLines is how many trailing log lines are read.
	SessionLogReadLines = 10
)

// Status tags written by the agent. The set is open-ended.
const (
	StatusInProgress = "in-progress"
	StatusBlocked    = "blocked"
	StatusDone       = "done"
	StatusUnknown    = "unknown"
)

// ProgressState is the agent's persisted status snapshot.
type ProgressState struct {
	Status         string   `json:"status"`
	CurrentTask    string   `json:"current_task"`
	CompletedTasks []string `json:"completed_tasks"`
	FailedTasks    []string `json:"failed_tasks"`
	BlockedReason  string   `json:"blocked_reason"`
	LastUpdated    string   `json:"last_updated"`
}

// IsBlocked reports whether the agent is blocked.
func (p *ProgressState) IsBlocked() bool {
	return p.Status == StatusBlocked
}

// ProgressPath returns the progress state file path for specDir.
func ProgressPath(specDir string) string {
	return filepath.Join(specDir, MarkerDir, ProgressFile)
}

// SessionLogPath returns the session log path for specDir.
func SessionLogPath(specDir string) string {
	return filepath.Join(specDir, MarkerDir, SessionLogFile)
}

// HasMarker reports whether dir contains the marker subdirectory.
func HasMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MarkerDir))
	return err == nil && info.IsDir()
}

// ReadProgressState reads the spec's progress state.
// Returns nil if the file is absent, unreadable, not a JSON object, or an
// empty object (including null).
func ReadProgressState(specDir string) *ProgressState {
	path := ProgressPath(specDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Debug("progress state unreadable", "path", path, "error", err)
		}
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		logging.Debug("progress state malformed", "path", path, "error", err)
		return nil
	}
	if len(fields) == 0 {
		logging.Debug("progress state empty", "path", path)
		return nil
	}

	var state ProgressState
	if err := json.Unmarshal(data, &state); err != nil {
		logging.Debug("progress state malformed", "path", path, "error", err)
		return nil
	}
	return &state
}

// ReadSessionLog returns the last SessionLogReadLines lines of the spec's
// session log in file order. Lines wider than maxWidth are truncated with an
// ellipsis; maxWidth <= 0 disables truncation. Returns nil if the log is
// absent or unreadable.
func ReadSessionLog(specDir string, maxWidth int) []string {
	path := SessionLogPath(specDir)
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	ring := make([]string, 0, SessionLogReadLines)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == SessionLogReadLines {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logging.Debug("session log unreadable", "path", path, "error", err)
		return nil
	}

	if maxWidth > 0 {
		for i, line := range ring {
			ring[i] = truncate.StringWithTail(line, uint(maxWidth), "…")
		}
	}
	return ring
}
