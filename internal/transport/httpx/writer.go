package httpx

import "net/http"

// StatusWriter records the status and size of what went through a
// ResponseWriter.
type StatusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	if sw, ok := w.(*StatusWriter); ok {
		return sw
	}
	return &StatusWriter{ResponseWriter: w}
}

func (w *StatusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *StatusWriter) WriteHeader(statusCode int) {
	if w.status != 0 {
		return
	}
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *StatusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// Status returns the status that was sent, or 0 before headers went out.
func (w *StatusWriter) Status() int { return w.status }

// Bytes returns the number of body bytes written.
func (w *StatusWriter) Bytes() int { return w.bytes }
