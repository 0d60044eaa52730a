package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Without follow mode, tail reads what's in the file and returns
func TestTailCaptureNoFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"project\":\"42\"}\n"), 0640))

	var out bytes.Buffer
	require.NoError(t, tailCapture(path, false, nil, &out))
	assert.Equal(t, "{\"project\":\"42\"}\n", out.String())
}

// In follow mode, tail keeps streaming appends until interrupted
func TestTailCaptureFollowUntilInterrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.ndjson")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	require.NoError(t, err)
	defer file.Close()

	_, err = file.Write([]byte("first\n"))
	require.NoError(t, err)

	interrupt := make(chan struct{})
	var out bytes.Buffer
	done := make(chan error)
	go func() {
		done <- tailCapture(path, true, interrupt, &out)
	}()

	// Let the follow catch up, then append while it's live
	time.Sleep(20 * time.Millisecond)
	_, err = file.Write([]byte("second\n"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	close(interrupt)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("tail should stop once interrupted")
	}

	assert.Equal(t, "first\nsecond\n", out.String())
}

func TestTailCaptureMissingFile(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, tailCapture(filepath.Join(t.TempDir(), "notexists"), false, nil, &out))
}
