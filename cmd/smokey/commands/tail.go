package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gopheryan/smokey/internal/tail"
	"github.com/spf13/cobra"
)

var follow bool

func init() {
	tailCmd.Flags().BoolVarP(&follow, "follow", "f", true, "keep waiting for new events until interrupted")

	rootCmd.AddCommand(tailCmd)
}

var tailCmd = &cobra.Command{
	Use:   "tail capture-file",
	Short: "Stream a sink capture file as events arrive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt)

		interrupt := make(chan struct{})
		go func() {
			<-signalChan
			close(interrupt)
		}()

		return tailCapture(args[0], follow, interrupt, cmd.OutOrStdout())
	},
}

// The body of the tail command, split off so tests can end a follow
// without a real signal
func tailCapture(path string, followMode bool, interrupt <-chan struct{}, dest io.Writer) error {
	follower, err := tail.NewFollower(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := follower.Close(); err != nil {
			slog.Error("Error closing follower", "error", err)
		}
	}()

	if !followMode {
		// Read what's there now and stop, instead of waiting
		// for a writer that may never come
		follower.Stop()
	} else if interrupt != nil {
		go func() {
			<-interrupt
			follower.Stop()
		}()
	}

	if _, err := io.Copy(dest, follower); err != nil {
		return fmt.Errorf("error streaming capture file: %w", err)
	}
	return nil
}
