package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gopheryan/smokey/internal/config"
	"github.com/gopheryan/smokey/internal/report"
	"github.com/gopheryan/smokey/runner"
	"github.com/spf13/cobra"
)

func init() {
	runCmd.Flags().String("dsn", "", "delivery target DSN (overrides SENTRY_DSN)")
	runCmd.Flags().String("message", "", "message every emitted event carries (overrides SMOKEY_MESSAGE)")
	runCmd.Flags().Duration("flush-timeout", 0, "how long to wait for event hand-off (overrides SMOKEY_FLUSH_TIMEOUT)")
	runCmd.Flags().Bool("debug", true, "enable the reporting client's own diagnostics (overrides SMOKEY_DEBUG)")
	runCmd.Flags().String("count-env", config.RepeatCountVar, "environment variable holding the repeat count")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Emit TEST_N test events through a reporting client, then flush",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.FromEnv()
		if err != nil {
			return err
		}

		// Flags beat the environment, but only when actually given
		if cmd.Flags().Changed("dsn") {
			settings.DSN, _ = cmd.Flags().GetString("dsn")
		}
		if cmd.Flags().Changed("message") {
			settings.Message, _ = cmd.Flags().GetString("message")
		}
		if cmd.Flags().Changed("flush-timeout") {
			settings.FlushTimeout, _ = cmd.Flags().GetDuration("flush-timeout")
		}
		if cmd.Flags().Changed("debug") {
			settings.Debug, _ = cmd.Flags().GetBool("debug")
		}

		countVar, _ := cmd.Flags().GetString("count-env")
		return runSmoke(settings, countVar, cmd.OutOrStdout())
	},
}

// The whole sequence, split out of RunE so tests can drive it:
// initialize the client, read the repeat count, emit, flush.
// The client must exist before the count is read. A missing TEST_N
// still exercises client construction, matching the script this
// harness replaces
func runSmoke(settings config.Harness, countVar string, out io.Writer) error {
	rep, err := report.New(report.Options{
		DSN:   settings.DSN,
		Debug: settings.Debug,
	})
	if err != nil {
		return fmt.Errorf("error initializing reporting client: %w", err)
	}

	count, err := runner.RepeatCountFromEnv(countVar)
	if err != nil {
		return fmt.Errorf("error reading repeat count: %w", err)
	}

	r := runner.New(rep, settings.Message, settings.FlushTimeout, slog.Default())
	if ok := r.Run(count); !ok {
		// A flush timeout is a warning, not a failure. The runner
		// has already logged it
		fmt.Fprintln(out, "run finished, hand-off unconfirmed")
		return nil
	}

	fmt.Fprintf(out, "run finished, %d event(s) handed off\n", max(count, 0))
	return nil
}
