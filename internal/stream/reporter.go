package stream

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/threads-agent/pkg/logger"
)

// Event is one NDJSON progress line. Only the fields relevant to the
// event type are populated.
type Event struct {
	Type       string `json:"type"`
	Stage      string `json:"stage,omitempty"`
	Message    string `json:"message,omitempty"`
	Total      int    `json:"total,omitempty"`
	Current    int    `json:"current,omitempty"`
	ElapsedMs  int64  `json:"elapsedMs,omitempty"`
	ItemsCount int    `json:"itemsCount,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Reporter writes progress events as NDJSON to a single sink. The
// pipeline is the only writer; once a write fails (client gone) further
// events are dropped silently instead of surfacing to the caller.
type Reporter struct {
	w      io.Writer
	clock  func() time.Time
	closed bool
	log    *logger.Logger
}

func NewReporter(w io.Writer, log *logger.Logger) *Reporter {
	return &Reporter{w: w, clock: time.Now, log: log.WithComponent("stream")}
}

func (r *Reporter) send(event Event) {
	if r.closed {
		return
	}
	event.Timestamp = r.clock().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(event)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encode stream event")
		return
	}
	if _, err := r.w.Write(append(payload, '\n')); err != nil {
		r.log.Warn().Err(err).Msg("Stream sink closed, dropping further events")
		r.closed = true
		return
	}
	if flusher, ok := r.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Stage announces the pipeline entering a named phase
func (r *Reporter) Stage(stage, message string) {
	r.send(Event{Type: "stage", Stage: stage, Message: message})
}

// Start announces the total number of items the run will produce
func (r *Reporter) Start(total int) {
	r.send(Event{Type: "start", Total: total})
}

// Progress reports per-item advancement within a stage
func (r *Reporter) Progress(stage string, current, total int, elapsed time.Duration) {
	r.send(Event{Type: "progress", Stage: stage, Current: current, Total: total, ElapsedMs: elapsed.Milliseconds()})
}

// Complete ends the stream successfully
func (r *Reporter) Complete(itemsCount int) {
	r.send(Event{Type: "complete", ItemsCount: itemsCount})
}

// Error ends the stream with a protocol-level error event. The transport
// status stays successful; clients must inspect stream contents.
func (r *Reporter) Error(message string) {
	r.send(Event{Type: "error", Message: message})
}
