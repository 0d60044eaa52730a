package tail

import (
	"fmt"
	"io"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Lets a closure stand in as an io.Reader
type readFunc func([]byte) (int, error)

func (r readFunc) Read(p []byte) (int, error) {
	return r(p)
}

type eventReader func(fd int) (unix.InotifyEvent, error)

// Pulls one event off the inotify descriptor
// Returns either a complete event or the raw read error
func readInotifyEvent(fd int) (unix.InotifyEvent, error) {
	data := make([]byte, unix.SizeofInotifyEvent)
	read := func(data []byte) (int, error) {
		return unix.Read(fd, data)
	}

	if _, err := io.ReadFull(readFunc(read), data); err != nil {
		return unix.InotifyEvent{}, err
	}
	return *(*unix.InotifyEvent)(unsafe.Pointer(&data[0])), nil
}

// fileWatcher notifies on every write to a capture file, one message
// on Events per observed write. Whoever holds a watcher has to keep
// receiving from Events until it closes
type fileWatcher struct {
	inotifyFd int
	watchDesc int
	events    chan struct{}
	err       error
	closeOnce *sync.Once
	closeSync chan struct{}
	readEvent eventReader
}

// Stop the watch. The caller must still drain Events
func (w *fileWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		// Removing the watch forces an IN_IGNORED event, which is the
		// signal for the reading goroutine to wind down
		_, e1 := unix.InotifyRmWatch(w.inotifyFd, uint32(w.watchDesc))
		// Hold the goroutine until Close has actually run
		close(w.closeSync)
		err = e1
	})
	return err
}

// Valid once Events has been closed
func (w *fileWatcher) Error() error {
	return w.err
}

func (w *fileWatcher) Events() chan struct{} {
	return w.events
}

// Watch an existing regular file for writes until Close is called
func newFileWatcher(path string) (*fileWatcher, error) {
	return newFileWatcherWithReader(path, readInotifyEvent)
}

// Split out so tests can inject a misbehaving event reader
func newFileWatcherWithReader(path string, re eventReader) (*fileWatcher, error) {
	fd, err := unix.InotifyInit()
	if err != nil {
		return nil, err
	}

	wd, err := unix.InotifyAddWatch(fd, path, unix.IN_MODIFY)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	closeSync := make(chan struct{})
	watcher := &fileWatcher{
		inotifyFd: fd,
		watchDesc: wd,
		events:    make(chan struct{}),
		closeOnce: &sync.Once{},
		closeSync: closeSync,
		readEvent: re,
	}

	go func() {
		var readError error
		for readError == nil {
			var event unix.InotifyEvent
			event, readError = watcher.readEvent(fd)
			if readError != nil {
				break
			}

			if event.Mask&unix.IN_MODIFY > 0 {
				watcher.events <- struct{}{}
			} else {
				// IN_IGNORED means the watch was removed.
				// Anything else is unexpected
				if event.Mask&unix.IN_IGNORED == 0 {
					readError = fmt.Errorf("unexpected event returned from watch '%d'", event.Mask)
				}
				break
			}
		}
		// Publish the error before closing the channel so Error is
		// safe to call as soon as Events is drained
		watcher.err = readError
		close(watcher.events)
		// The descriptor stays open until Close has removed the watch
		<-closeSync
		_ = unix.Close(fd)
	}()

	return watcher, nil
}
