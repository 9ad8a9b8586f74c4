package cmd

import (
	"fmt"
	"time"

	"github.com/newhook/ralph-doctor/internal/doctor"
	"github.com/newhook/ralph-doctor/internal/logging"
	"github.com/newhook/ralph-doctor/internal/watcher"
	"github.com/spf13/cobra"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [workspace]",
	Short: "Re-render the report whenever a spec's Ralph state changes",
	Long: `Render the report once, then render it again each time a .ralph/progress.json or
.ralph/session.log changes, or a new spec directory appears next to a known one.
Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 0, "quiet period before re-rendering (default from config, 500ms)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	workspace := workspaceArg(args, 0)
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	text, snap, err := collectReport(ctx, workspace)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)

	debounce := flagDebounce
	if debounce <= 0 && cfg != nil {
		debounce = cfg.Watch.Debounce()
	}
	w, err := watcher.New(watcher.Config{Debounce: debounce})
	if err != nil {
		return err
	}
	defer w.Close()
	w.Watch(specPaths(snap))

	fmt.Fprintln(errOut, noticeStyle.Render(fmt.Sprintf("Watching %d spec(s) for changes (Ctrl+C to stop)", len(snap.Specs))))

	return w.Run(ctx, func() {
		text, snap, err := collectReport(ctx, workspace)
		if err != nil {
			logging.WarnContext(ctx, "watch refresh failed", "error", err)
			fmt.Fprintln(errOut, errorStyle.Render(fmt.Sprintf("refresh failed: %v", err)))
			return
		}
		w.Watch(specPaths(snap))
		fmt.Fprintf(out, "\n---\n\n%s\n", text)
	})
}

func specPaths(snap *doctor.Snapshot) []string {
	paths := make([]string, 0, len(snap.Specs))
	for _, spec := range snap.Specs {
		paths = append(paths, spec.Path)
	}
	return paths
}
