package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/gopheryan/smokey/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {

	t.Run("defaults", func(tt *testing.T) {
		// Setenv registers the restore, Unsetenv makes sure the
		// test host's environment can't leak into the defaults
		for _, name := range []string{"SENTRY_DSN", "SMOKEY_DEBUG", "SMOKEY_MESSAGE", "SMOKEY_FLUSH_TIMEOUT"} {
			tt.Setenv(name, "")
			require.NoError(tt, os.Unsetenv(name))
		}

		h, err := config.FromEnv()
		require.NoError(tt, err)
		assert.Equal(tt, "hello", h.Message)
		assert.Equal(tt, 2*time.Second, h.FlushTimeout)
		assert.True(tt, h.Debug)
	})

	t.Run("overrides", func(tt *testing.T) {
		tt.Setenv("SENTRY_DSN", "http://key@localhost:9999/1")
		tt.Setenv("SMOKEY_MESSAGE", "goodbye")
		tt.Setenv("SMOKEY_FLUSH_TIMEOUT", "500ms")
		tt.Setenv("SMOKEY_DEBUG", "false")

		h, err := config.FromEnv()
		require.NoError(tt, err)
		assert.Equal(tt, "http://key@localhost:9999/1", h.DSN)
		assert.Equal(tt, "goodbye", h.Message)
		assert.Equal(tt, 500*time.Millisecond, h.FlushTimeout)
		assert.False(tt, h.Debug)
	})

	t.Run("bad-duration", func(tt *testing.T) {
		tt.Setenv("SMOKEY_FLUSH_TIMEOUT", "soon")
		_, err := config.FromEnv()
		assert.Error(tt, err)
	})
}
