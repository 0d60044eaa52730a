package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Where the runner is in its emit/flush sequence
type State string

const (
	// New runners start here. No events have been handed
	// to the reporter yet
	StateInitialized State = "INITIALIZED"
	// The runner is handing events to the reporter
	StateEmitting State = "EMITTING"
	// The reporter's flush has returned. No further
	// interaction with the reporter will happen
	StateFlushed State = "FLUSHED"
)

var (
	// The named environment variable was not set at all
	ErrMissingEnv = errors.New("environment variable is not set")
	// The named environment variable was set, but did not
	// parse as a base-10 integer
	ErrInvalidFormat = errors.New("value is not a base-10 integer")
)

// RepeatCountFromEnv reads the repeat count from the named
// environment variable. The value must parse as a base-10 integer.
// Zero and negative values are not an error here. They simply mean
// "emit nothing". Callers that care which way a failure went can use
// errors.Is against ErrMissingEnv / ErrInvalidFormat
func RepeatCountFromEnv(name string) (int, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, fmt.Errorf("'%s': %w", name, ErrMissingEnv)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("'%s'='%s': %w", name, raw, ErrInvalidFormat)
	}
	return count, nil
}

// Reporter is the narrow surface the runner needs from the external
// reporting client. Emit must not block on delivery and must not fail.
// Flush blocks until everything previously emitted has been handed off
// to the client's transport, or the timeout elapses
type Reporter interface {
	Emit(message string)
	Flush(timeout time.Duration) bool
}

// Runner drives one smoke sequence: emit N copies of a message
// through a Reporter, then flush. It owns exactly one reporter
// handle and is not safe for concurrent use (there's no reason to)
type Runner struct {
	reporter     Reporter
	message      string
	flushTimeout time.Duration
	logger       *slog.Logger

	state State
}

func New(rep Reporter, message string, flushTimeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		reporter:     rep,
		message:      message,
		flushTimeout: flushTimeout,
		logger:       logger,
		state:        StateInitialized,
	}
}

func (r *Runner) State() State {
	return r.state
}

// Run emits 'count' events and then flushes the reporter exactly once.
// Non-positive counts emit nothing, but the flush still happens.
// The return value is the reporter's hand-off confirmation. A false
// return is logged as a warning and is not treated as a failure.
// Run must be the caller's last interaction with the reporter before
// process exit, otherwise events can be silently dropped
func (r *Runner) Run(count int) bool {
	r.state = StateEmitting
	for i := 0; i < count; i++ {
		r.reporter.Emit(r.message)
	}
	r.logger.Info("Handed events to reporter", "count", max(count, 0), "message", r.message)

	ok := r.reporter.Flush(r.flushTimeout)
	r.state = StateFlushed
	if ok {
		r.logger.Info("Reporter confirmed event hand-off")
	} else {
		r.logger.Warn("Flush timed out. Some events may not have been delivered", "timeout", r.flushTimeout)
	}
	return ok
}
