// Package sink implements a local mock ingest server for smoke runs.
// It speaks just enough of the Sentry ingestion protocol to count and
// capture whatever a real client sends at it. It validates nothing
// about the client's batching or retry behavior. The observable
// contract is "events arrive and the count matches"
package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Sink struct {
	total    atomic.Uint64
	received *prometheus.CounterVec
	registry *prometheus.Registry
	// Optional. When nil, events are counted but not captured
	recorder *Recorder
	logger   *slog.Logger
}

func New(recorder *Recorder, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smokey_sink_events_received_total",
		Help: "Events accepted by the sink, labelled by project id.",
	}, []string{"project"})
	registry.MustRegister(received)

	return &Sink{
		received: received,
		registry: registry,
		recorder: recorder,
		logger:   logger,
	}
}

// Total events accepted across all projects since the sink started.
// This is the counter smoke runs assert against
func (s *Sink) Total() uint64 {
	return s.total.Load()
}

func (s *Sink) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/{project}/envelope/", s.handleEnvelope)
	r.Post("/api/{project}/store/", s.handleStore)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// First line of an envelope body
type envelopeHeader struct {
	EventID string `json:"event_id"`
}

// Precedes each envelope item. When Length is present the payload is
// exactly that many bytes, otherwise it runs to the next newline
type itemHeader struct {
	Type   string `json:"type"`
	Length *int64 `json:"length"`
}

func (s *Sink) handleEnvelope(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	reader := bufio.NewReader(r.Body)

	headerLine, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		http.Error(w, "error reading envelope header", http.StatusBadRequest)
		return
	}

	var header envelopeHeader
	if err := json.Unmarshal(headerLine, &header); err != nil {
		http.Error(w, "malformed envelope header", http.StatusBadRequest)
		return
	}

	accepted := 0
	for {
		itemLine, err := reader.ReadBytes('\n')
		if len(itemLine) <= 1 && err != nil {
			// Clean end of envelope
			break
		}

		var item itemHeader
		if err := json.Unmarshal(itemLine, &item); err != nil {
			http.Error(w, "malformed item header", http.StatusBadRequest)
			return
		}

		payload, err := readItemPayload(reader, item.Length)
		if err != nil {
			http.Error(w, "error reading item payload", http.StatusBadRequest)
			return
		}

		// Anything that isn't an event (sessions, client reports, ...)
		// is accepted and ignored
		if item.Type == "event" {
			s.accept(project, payload)
			accepted++
		}
	}

	s.logger.Info("Accepted envelope", "project", project, "events", accepted)
	writeEventID(w, header.EventID)
}

// The legacy store endpoint carries a single bare event as the body
func (s *Sink) handleStore(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "error reading event body", http.StatusBadRequest)
		return
	}

	var event struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}

	s.accept(project, payload)
	s.logger.Info("Accepted event", "project", project)
	writeEventID(w, event.EventID)
}

func (s *Sink) accept(project string, payload []byte) {
	s.total.Add(1)
	s.received.WithLabelValues(project).Inc()
	if s.recorder != nil {
		if err := s.recorder.Record(project, payload); err != nil {
			s.logger.Error("Failed to record event", "project", project, "error", err)
		}
	}
}

// Item lengths come straight off the wire. Anything negative or
// bigger than this is rejected before any allocation happens
const maxItemPayloadBytes = 10 << 20

func readItemPayload(reader *bufio.Reader, length *int64) ([]byte, error) {
	if length == nil {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		return line, nil
	}

	if *length < 0 || *length > maxItemPayloadBytes {
		return nil, fmt.Errorf("item length %d out of range", *length)
	}

	payload := make([]byte, *length)
	if _, err := io.ReadFull(reader, payload); err != nil {
		return nil, fmt.Errorf("short item payload: %w", err)
	}
	// Consume the newline separating this item from the next
	if _, err := reader.ReadByte(); err != nil && err != io.EOF {
		return nil, err
	}
	return payload, nil
}

// Real ingest replies with the id of the accepted event.
// Mint one if the client didn't send any
func writeEventID(w http.ResponseWriter, id string) {
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}
