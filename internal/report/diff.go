package report

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares two rendered reports line by line. Changed lines are prefixed
// with "+ " or "- " and followed by a one-line summary. The generated-at, host
// and runtime lines describe the run rather than the workspace and are not
// compared.
func Diff(previous, current string) string {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(diffable(previous), diffable(current))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var out strings.Builder
	var added, removed int
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range splitDiffLines(d.Text) {
			out.WriteString(prefix)
			out.WriteString(line)
			out.WriteString("\n")
			if d.Type == diffmatchpatch.DiffInsert {
				added++
			} else {
				removed++
			}
		}
	}

	if added == 0 && removed == 0 {
		return "No changes\n"
	}
	fmt.Fprintf(&out, "\n%d line(s) added, %d line(s) removed\n", added, removed)
	return out.String()
}

// diffable drops the run metadata lines and normalizes the final newline.
func diffable(text string) string {
	var kept []string
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if isMetadataLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n") + "\n"
}

func isMetadataLine(line string) bool {
	for _, label := range []string{generatedLabel, hostLabel, goLabel} {
		if strings.HasPrefix(line, label) {
			return true
		}
	}
	return false
}

func splitDiffLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
