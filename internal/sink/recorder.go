package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// One line in a capture file
type Capture struct {
	Project    string          `json:"project"`
	ReceivedAt time.Time       `json:"received_at"`
	Event      json.RawMessage `json:"event"`
}

// Recorder appends one JSON line per accepted event to a capture file.
// A single recorder is the file's only writer, readers (the tail
// command) follow it concurrently
type Recorder struct {
	mu   sync.Mutex
	file *os.File
}

func NewRecorder(path string) (*Recorder, error) {
	// Append, never truncate. Interrupted runs shouldn't eat the
	// capture from the previous one
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("error opening capture file '%s': %w", path, err)
	}
	return &Recorder{file: file}, nil
}

func (r *Recorder) Record(project string, payload []byte) error {
	line, err := json.Marshal(Capture{
		Project:    project,
		ReceivedAt: time.Now().UTC(),
		Event:      json.RawMessage(payload),
	})
	if err != nil {
		return fmt.Errorf("error encoding capture line: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.file.Write(line); err != nil {
		return fmt.Errorf("error appending to capture file: %w", err)
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
