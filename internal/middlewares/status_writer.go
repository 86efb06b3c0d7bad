package middlewares

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// StatusWriter wraps http.ResponseWriter to capture the response status code
// while still forwarding Flush and Hijack to the underlying writer.
type StatusWriter struct {
	http.ResponseWriter
	Status int
}

// NewStatusWriter wraps w. The status defaults to 200 until WriteHeader runs.
func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: w, Status: http.StatusOK}
}

func (sw *StatusWriter) WriteHeader(code int) {
	sw.Status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *StatusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *StatusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}
