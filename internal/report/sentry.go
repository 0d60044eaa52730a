package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gopheryan/smokey/runner"
)

// Options for constructing a SentryReporter
// An empty DSN is valid. The sentry client treats it as
// "construct everything, deliver nothing", which still smokes
// client construction
type Options struct {
	DSN         string
	Debug       bool
	Environment string
	Release     string
}

// SentryReporter adapts a sentry client to the runner.Reporter surface.
// It holds an explicitly constructed client and hub rather than going
// through the package-global sentry.Init/CaptureMessage state, so tests
// (and any future multi-run setup) can own several independent handles
// in one process
type SentryReporter struct {
	hub *sentry.Hub
}

var _ runner.Reporter = (*SentryReporter)(nil)

func New(opts Options) (*SentryReporter, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Debug:       opts.Debug,
		Environment: opts.Environment,
		Release:     opts.Release,
	})
	if err != nil {
		return nil, fmt.Errorf("error constructing reporting client: %w", err)
	}

	return &SentryReporter{
		hub: sentry.NewHub(client, sentry.NewScope()),
	}, nil
}

// Emit hands one informational message to the client for asynchronous
// delivery. Delivery failures are the client's concern and never
// surface here
func (s *SentryReporter) Emit(message string) {
	s.hub.CaptureMessage(message)
}

// Flush blocks until the client reports that all previously emitted
// events were handed off to its transport, or the timeout elapses.
// There is deliberately no separate shutdown. Flush is the last word,
// process exit reclaims the rest
func (s *SentryReporter) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
