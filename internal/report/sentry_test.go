package report_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopheryan/smokey/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Point a real sentry client at a local counting server and make sure
// emitted events actually leave the building before Flush returns
func TestEmitAndFlushDelivers(t *testing.T) {
	var requests atomic.Uint64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer ts.Close()

	rep, err := report.New(report.Options{
		DSN: fmt.Sprintf("http://smokekey@%s/42", ts.Listener.Addr()),
	})
	require.NoError(t, err)

	const n = 3
	for i := 0; i < n; i++ {
		rep.Emit("hello")
	}

	ok := rep.Flush(5 * time.Second)
	require.True(t, ok, "flush should confirm hand-off within the timeout")
	// The transport has handed everything off by the time Flush
	// returns, so the server must have seen every submission
	assert.Equal(t, uint64(n), requests.Load())
}

func TestNewWithBadDSN(t *testing.T) {
	_, err := report.New(report.Options{DSN: "://not-a-dsn"})
	assert.Error(t, err)
}

// An empty DSN constructs a client that quietly drops everything.
// Still a useful smoke of the construction path
func TestNewWithEmptyDSN(t *testing.T) {
	rep, err := report.New(report.Options{})
	require.NoError(t, err)

	rep.Emit("hello")
	assert.True(t, rep.Flush(time.Second))
}
