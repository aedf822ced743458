package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// Writer writes SSE frames to one client. Writes are serialized so keep-alives from another
// goroutine never interleave with events.
type Writer struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	flusher  http.Flusher
	clientID string
}

// NewWriter sets the SSE headers and returns a writer for w.
func NewWriter(w http.ResponseWriter, clientID string) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher, clientID: clientID}, nil
}

// ClientID identifies the connection in logs.
func (s *Writer) ClientID() string {
	return s.clientID
}

// WriteRetry tells the client how long to wait before reconnecting.
func (s *Writer) WriteRetry(d time.Duration) error {
	return s.write(fmt.Sprintf("retry: %d\n\n", d.Milliseconds()))
}

// WriteEvent writes one named event with a JSON payload. A zero id is omitted.
func (s *Writer) WriteEvent(event string, id uint64, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	frame := "event: " + event + "\n"
	if id > 0 {
		frame += "id: " + strconv.FormatUint(id, 10) + "\n"
	}
	frame += "data: " + string(payload) + "\n\n"
	return s.write(frame)
}

// WriteKeepAlive writes an SSE comment (: keepalive\n\n) and flushes
// Returns error if connection is closed or write fails
func (s *Writer) WriteKeepAlive() error {
	if err := s.write(": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	return nil
}

func (s *Writer) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
