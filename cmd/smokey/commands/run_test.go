package commands

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gopheryan/smokey/internal/config"
	"github.com/gopheryan/smokey/internal/sink"
	"github.com/gopheryan/smokey/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fresh sink per scenario so event counts don't bleed between subtests
func newSmokeTarget(t *testing.T) (*sink.Sink, config.Harness) {
	t.Helper()
	s := sink.New(nil, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return s, config.Harness{
		DSN:          fmt.Sprintf("http://smokekey@%s/42", ts.Listener.Addr()),
		Message:      "hello",
		FlushTimeout: 5 * time.Second,
	}
}

func TestRunSmoke(t *testing.T) {

	t.Run("three-events", func(tt *testing.T) {
		s, settings := newSmokeTarget(tt)
		tt.Setenv("TEST_N", "3")

		var out bytes.Buffer
		require.NoError(tt, runSmoke(settings, "TEST_N", &out))
		assert.Equal(tt, uint64(3), s.Total())
		assert.Contains(tt, out.String(), "3 event(s) handed off")
	})

	t.Run("zero-events", func(tt *testing.T) {
		s, settings := newSmokeTarget(tt)
		tt.Setenv("TEST_N", "0")

		var out bytes.Buffer
		require.NoError(tt, runSmoke(settings, "TEST_N", &out))
		assert.Equal(tt, uint64(0), s.Total())
		assert.Contains(tt, out.String(), "0 event(s) handed off")
	})

	t.Run("missing-count", func(tt *testing.T) {
		s, settings := newSmokeTarget(tt)
		tt.Setenv("TEST_N", "")
		require.NoError(tt, os.Unsetenv("TEST_N"))

		err := runSmoke(settings, "TEST_N", &bytes.Buffer{})
		require.Error(tt, err)
		assert.ErrorIs(tt, err, runner.ErrMissingEnv)
		// The failure happens after client construction but before
		// any emission
		assert.Equal(tt, uint64(0), s.Total())
	})

	t.Run("count-not-a-number", func(tt *testing.T) {
		s, settings := newSmokeTarget(tt)
		tt.Setenv("TEST_N", "abc")

		err := runSmoke(settings, "TEST_N", &bytes.Buffer{})
		require.Error(tt, err)
		assert.ErrorIs(tt, err, runner.ErrInvalidFormat)
		assert.Equal(tt, uint64(0), s.Total())
	})

	t.Run("bad-dsn", func(tt *testing.T) {
		_, settings := newSmokeTarget(tt)
		settings.DSN = "://not-a-dsn"
		tt.Setenv("TEST_N", "3")

		err := runSmoke(settings, "TEST_N", &bytes.Buffer{})
		assert.Error(tt, err)
	})
}
