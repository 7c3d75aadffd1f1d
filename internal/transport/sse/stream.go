package sse

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/blendin/internal/model"
	"github.com/mcoot/blendin/internal/services/game"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Observable is a lobby that spectator streams can attach to
type Observable interface {
	Observe(sink game.Sink) func()
}

// Stream is a read-only spectator of a lobby. It receives the same broadcasts
// as the players but never their private role or error messages.
type Stream struct {
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewStream creates a new spectator stream
func NewStream(logger *slog.Logger) *Stream {
	return &Stream{
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send encodes the event and queues it. It never blocks; a lagging spectator
// is cut off. lobbyClosed is always the last event a stream delivers.
func (s *Stream) Send(event model.Event) {
	select {
	case <-s.done:
		return
	default:
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("sse failed to encode event",
			slog.String("event", string(event.Type)),
			slog.Any("error", err))
		return
	}

	select {
	case s.send <- formatSSEMessage(string(event.Type), string(data)):
	default:
		s.logger.Warn("sse send buffer full, dropping stream", slog.String("event", string(event.Type)))
		s.finish()
		return
	}

	if event.Type == model.EventLobbyClosed {
		s.finish()
	}
}

// Done is closed once the stream will deliver nothing further
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) finish() {
	s.once.Do(func() {
		close(s.done)
	})
}

// ServeSSE streams lobby broadcasts to the client until it disconnects or
// the lobby closes
func ServeSSE(w http.ResponseWriter, r *http.Request, lobby Observable, logger *slog.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Subscribe before announcing so nothing after "connected" is missed
	stream := NewStream(logger)
	unsubscribe := lobby.Observe(stream)
	defer unsubscribe()

	_, _ = w.Write(formatSSEMessage("connected", `{"status":"connected"}`))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-stream.send:
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-stream.done:
			// Flush whatever was queued before the stream finished
			for {
				select {
				case message := <-stream.send:
					if _, err := w.Write(message); err != nil {
						return
					}
				default:
					flusher.Flush()
					return
				}
			}

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, dropping carriage returns
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
