package cmd

import (
	"fmt"
	"os"

	"github.com/newhook/ralph-doctor/internal/report"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <previous-report> [workspace]",
	Short: "Compare a fresh report against a previously saved one",
	Long: `Render a fresh report for the workspace and print the lines that changed
since a report previously saved with --output. Use the same --verbose setting
that produced the saved report to avoid spurious differences.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	previous, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read previous report: %w", err)
	}

	current, _, err := collectReport(GetContext(), workspaceArg(args, 1))
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Diff(string(previous), current))
	return nil
}
