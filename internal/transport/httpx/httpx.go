// Package httpx adapts net/http requests and responses to the failure
// handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// ErrInvalidStatusCode is returned for codes outside 100..599.
var ErrInvalidStatusCode = errors.New("invalid HTTP status code")

// Request exposes an *http.Request to handlers.
type Request struct {
	r *http.Request
}

func NewRequest(r *http.Request) *Request {
	return &Request{r: r}
}

// HeaderLine returns every value of the header joined by ", ".
func (r *Request) HeaderLine(name string) string {
	return strings.Join(r.r.Header.Values(name), ", ")
}

// ProtocolVersion returns the version part of the protocol, such as "1.1".
func (r *Request) ProtocolVersion() string {
	return fmt.Sprintf("%d.%d", r.r.ProtoMajor, r.r.ProtoMinor)
}

// Response reports failures on an HTTP response. The status is held until
// WriteStatusLine sends the headers; Send writes the body to body, which may
// buffer it until then.
type Response struct {
	w      *StatusWriter
	body   io.Writer
	status int
}

// NewResponse creates a Response over w. A nil body writes straight to w.
func NewResponse(w *StatusWriter, body io.Writer) *Response {
	if body == nil {
		body = w
	}
	return &Response{w: w, body: body}
}

func (r *Response) SetStatusCode(code int) error {
	if code < 100 || code > 599 {
		return fmt.Errorf("%w: %d", ErrInvalidStatusCode, code)
	}
	r.status = code
	return nil
}

// StatusCode returns the pending status, the one already sent, or 200.
func (r *Response) StatusCode() int {
	if r.status != 0 {
		return r.status
	}
	if sent := r.w.Status(); sent != 0 {
		return sent
	}
	return http.StatusOK
}

func (r *Response) ReasonPhrase() string {
	return http.StatusText(r.StatusCode())
}

func (r *Response) HeadersSent() bool {
	return r.w.Status() != 0
}

// WriteStatusLine sends the headers with code. net/http builds the status
// line itself; line is only logged.
func (r *Response) WriteStatusLine(line string, code int) {
	if r.HeadersSent() {
		return
	}
	slog.Debug("Sending status line", "line", line)
	r.w.WriteHeader(code)
}

// Send writes body as JSON. When the body goes straight to the client the
// headers are sent first with the pending status.
func (r *Response) Send(body any) error {
	if body == nil {
		return nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode response body: %w", err)
	}

	if !r.HeadersSent() {
		r.w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.body == io.Writer(r.w) {
			r.w.WriteHeader(r.StatusCode())
		}
	}
	if _, err := r.body.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}
	return nil
}
