package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RepeatCountVar names the environment variable that holds the number
// of events to emit. It is read by runner.RepeatCountFromEnv instead
// of the struct below, because the harness needs to tell "unset" apart
// from "set but not an integer" and envconfig folds both into one error
const RepeatCountVar = "TEST_N"

// Harness settings, bound from the environment.
// Flags on the run command override these
type Harness struct {
	// Where the reporting client should deliver events.
	// Empty means the client constructs fine but delivers nothing
	DSN string `envconfig:"SENTRY_DSN"`

	// Diagnostic verbosity of the reporting client itself
	Debug bool `envconfig:"SMOKEY_DEBUG" default:"true"`

	// The literal message every emitted event carries
	Message string `envconfig:"SMOKEY_MESSAGE" default:"hello"`

	// How long to wait for the client to confirm event hand-off
	FlushTimeout time.Duration `envconfig:"SMOKEY_FLUSH_TIMEOUT" default:"2s"`
}

func FromEnv() (Harness, error) {
	var h Harness
	if err := envconfig.Process("", &h); err != nil {
		return Harness{}, fmt.Errorf("error reading harness settings from environment: %w", err)
	}
	return h, nil
}
