package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/gopheryan/smokey/internal/sink"
	"github.com/spf13/cobra"
)

func init() {
	sinkCmd.Flags().String("addr", "localhost:9099", "address to listen on")
	sinkCmd.Flags().String("record", "", "append accepted events to this capture file (NDJSON)")

	rootCmd.AddCommand(sinkCmd)
}

var sinkCmd = &cobra.Command{
	Use:   "sink",
	Short: "Run a local mock ingest server that counts what it receives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		recordPath, _ := cmd.Flags().GetString("record")

		srv, err := startSink(addr, recordPath, slog.Default())
		if err != nil {
			return err
		}

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt)

		// Catch sigint and exit
		go func() {
			<-signalChan
			slog.Info("Caught signal. Stopping sink")
			srv.Stop()
		}()

		slog.Info("Listening for event submissions!", "address", srv.Addr())
		if err := srv.Serve(); err != nil {
			return err
		}

		slog.Info("Sink stopped", "events-received", srv.Sink.Total())
		return nil
	},
}

// The serving side of the sink command, split off so tests can start
// and stop one without delivering a real signal
type sinkServer struct {
	Sink     *sink.Sink
	recorder *sink.Recorder
	listener net.Listener
	server   *http.Server
}

func startSink(addr, recordPath string, logger *slog.Logger) (*sinkServer, error) {
	var recorder *sink.Recorder
	if recordPath != "" {
		var err error
		if recorder, err = sink.NewRecorder(recordPath); err != nil {
			return nil, err
		}
	}

	s := sink.New(recorder, logger)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if recorder != nil {
			_ = recorder.Close()
		}
		return nil, fmt.Errorf("failed to listen on '%s': %w", addr, err)
	}

	return &sinkServer{
		Sink:     s,
		recorder: recorder,
		listener: listener,
		server:   &http.Server{Handler: s.Handler()},
	}, nil
}

func (s *sinkServer) Addr() string {
	return s.listener.Addr().String()
}

// Blocks until Stop is called. A stop-triggered shutdown is not an
// error
func (s *sinkServer) Serve() error {
	err := s.server.Serve(s.listener)
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("sink server returned with error: %w", err)
	}
	return nil
}

func (s *sinkServer) Stop() {
	_ = s.server.Close()
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			slog.Error("Error closing capture file", "error", err)
		}
	}
}
