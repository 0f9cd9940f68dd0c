package gateway

import (
	"net/http"

	"github.com/google/uuid"
)

// requestIDFor returns the caller's X-Request-Id or a fresh UUID.
// The ID only tags log lines; it is not forwarded upstream.
func requestIDFor(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}

// responseRecorder captures status and size for the access log
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w}
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer's Flush
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Status returns the written status, or 200 if nothing was written
func (r *responseRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// BytesWritten returns the number of body bytes written
func (r *responseRecorder) BytesWritten() int64 {
	return r.written
}
