package middleware

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
)

// PanicHandler writes the response for a request whose handler panicked
type PanicHandler func(w http.ResponseWriter, r *http.Request, err any)

// Recovery turns handler panics into a logged error and a response from
// handler. Nothing is written once the connection has been hijacked for a
// WebSocket, since the HTTP response no longer exists.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracked := &hijackTracker{ResponseWriter: w}
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				// The server's own way of aborting a response
				if e, ok := err.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(err)
				}

				attrs := []any{
					slog.Any("error", err),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("hijacked", tracked.hijacked),
					slog.String("stack", string(debug.Stack())),
				}
				if code := mux.Vars(r)["code"]; code != "" {
					attrs = append(attrs, slog.String("lobby_code", code))
				}
				logger.Error("panic recovered", attrs...)

				if !tracked.hijacked {
					handler(w, r, err)
				}
			}()

			next.ServeHTTP(tracked, r)
		})
	}
}

// DefaultPanicHandler answers with a plain-text 500
func DefaultPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type hijackTracker struct {
	http.ResponseWriter
	hijacked bool
}

func (t *hijackTracker) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := t.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	conn, rw, err := hj.Hijack()
	if err == nil {
		t.hijacked = true
	}
	return conn, rw, err
}

func (t *hijackTracker) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (t *hijackTracker) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
