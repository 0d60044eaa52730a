// Package tail follows sink capture files as they grow, so a human
// can watch events arrive while a smoke run is in flight
package tail

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Follower is a ReadCloser over a capture file with a single active
// writer (the sink's recorder). Reads return existing data
// immediately, then block for new writes. After Stop is called, reads
// drain whatever is left in the file and finish with io.EOF
type Follower struct {
	file    *os.File
	watcher *fileWatcher

	stop     chan struct{}
	stopOnce *sync.Once
	// first Close wins, the rest are no-ops
	closeOnce *sync.Once
}

func NewFollower(path string) (*Follower, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open capture file '%s': %w", path, err)
	}

	watcher, err := newFileWatcher(path)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to watch capture file: %w", err)
	}

	return &Follower{
		file:      file,
		watcher:   watcher,
		stop:      make(chan struct{}),
		stopOnce:  &sync.Once{},
		closeOnce: &sync.Once{},
	}, nil
}

func (f *Follower) Read(p []byte) (int, error) {
	for {
		count, err := f.file.Read(p)
		if err == nil || !errors.Is(err, io.EOF) {
			// Data, or a genuine read failure. The caller gets
			// either one as-is
			return count, err
		}

		// An EOF here only means we've caught up with the writer.
		// Wait for the next write, or for Stop
		select {
		case _, ok := <-f.watcher.Events():
			if !ok {
				if f.watcher.Error() != nil {
					return 0, fmt.Errorf("watcher encountered unexpected error: %w", f.watcher.Error())
				}
				// Watch is gone. One last read catches anything
				// written between our EOF and the watch teardown
				return f.file.Read(p)
			}
		case <-f.stop:
			// nil channel blocks forever, so this arm won't
			// fire again
			f.stop = nil
			if err := f.watcher.Close(); err != nil {
				for range f.watcher.Events() {
				}
				return 0, err
			}
		}
	}
}

// Stop ends the follow gracefully. Subsequent reads drain remaining
// file data and then return io.EOF
func (f *Follower) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
	})
}

// Close tears the follow down and releases the file and the watch.
// Only the first call does any work. Later calls return nil
func (f *Follower) Close() error {
	var err error
	f.closeOnce.Do(func() {
		err = errors.Join(
			f.watcher.Close(),
			f.file.Close(),
		)
		// The watcher wants its channel drained once closed
		for range f.watcher.Events() {
		}
	})
	return err
}
