package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/newhook/ralph-doctor/internal/config"
	"github.com/newhook/ralph-doctor/internal/doctor"
	"github.com/newhook/ralph-doctor/internal/logging"
	"github.com/newhook/ralph-doctor/internal/report"
	"github.com/newhook/ralph-doctor/internal/runner"
	rdsignal "github.com/newhook/ralph-doctor/internal/signal"
	"github.com/spf13/cobra"
)

var (
	// rootCtx holds the signal-cancellable context for the application
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// cfg is loaded once per invocation in PersistentPreRunE
	cfg *config.Config

	flagVerbose    bool
	flagConfigPath string
	flagDebugLog   string
	flagOutput     string

	// newRunner builds the command runner; tests replace it.
	newRunner = func(c *config.Config) runner.Runner {
		return runner.New(c.Probe.CommandTimeout())
	}
)

var rootCmd = &cobra.Command{
	Use:   "ralph-doctor [workspace]",
	Short: "Report the status of Ralph-managed specs in a workspace",
	Long: `ralph-doctor finds every specs/<name> directory with a .ralph state folder under
the workspace (default: current directory) and prints a markdown report of each
spec's progress, git state and, with --verbose, session logs, service disk usage
and host diagnostics. It never modifies anything it inspects.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = rdsignal.WithSignalCancel(context.Background())

		loaded, err := config.Load(flagConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logPath := flagDebugLog
		if logPath == "" {
			logPath = cfg.Log.File
		}
		if err := logging.Init(logPath); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logging.Debug("command started", "command", cmd.Name(), "args", args, "verbose", flagVerbose)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Close()
		if rootCancel != nil {
			rootCancel()
		}
	},
	RunE: runReport,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns the root context that is cancelled on SIGINT/SIGTERM.
func GetContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "include session logs, resource usage and system diagnostics")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/ralph-doctor/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDebugLog, "debug-log", "", "write a JSON debug log to this file")

	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the report to this file instead of stdout")

	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	text, _, err := collectReport(GetContext(), workspaceArg(args, 0))
	if err != nil {
		return err
	}

	if flagOutput == "" {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	if err := os.WriteFile(flagOutput, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", flagOutput, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✅ Report saved to: %s", flagOutput)))
	return nil
}

// collectReport runs one discovery pass and renders it.
func collectReport(ctx context.Context, workspace string) (string, *doctor.Snapshot, error) {
	snap, err := doctor.Collect(ctx, buildOptions(workspace))
	if err != nil {
		return "", nil, err
	}
	return report.Render(snap), snap, nil
}

// buildOptions threads CLI flags and config into one explicit value.
func buildOptions(workspace string) doctor.Options {
	c := cfg
	if c == nil {
		c = &config.Config{}
	}
	return doctor.Options{
		Workspace:           workspace,
		Verbose:             flagVerbose,
		RequiredExecutables: c.Probe.GetRequiredExecutables(),
		DependencyCacheDir:  c.Probe.GetDependencyCacheDir(),
		MaxLogLineWidth:     c.Log.MaxLineWidth,
		Runner:              newRunner(c),
	}
}

func workspaceArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return "."
}
