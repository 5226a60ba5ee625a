// Package handlers implements the failure handler chain: a handler inspects
// one failure and decides whether the chain goes on.
package handlers

import (
	"errors"

	"github.com/vietddude/crashguard/internal/debug/formatter"
	"github.com/vietddude/crashguard/internal/debug/inspection"
)

// Status is what a handler tells the chain after handling a failure.
type Status int

const (
	// StatusContinue passes the failure on to the next handler.
	StatusContinue Status = iota
	// StatusEndOfQueue stops the chain.
	StatusEndOfQueue
	// StatusTerminate stops the chain and ends the process.
	StatusTerminate
)

func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusEndOfQueue:
		return "end_of_queue"
	case StatusTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

var (
	ErrInspectorUnavailable = errors.New("inspector is not available yet")
	ErrRequestUnavailable   = errors.New("request is not available yet")
	ErrResponseUnavailable  = errors.New("response is not available yet")
)

// Request is the incoming request a failure happened in.
type Request interface {
	HeaderLine(name string) string
	ProtocolVersion() string
}

// Response is the outgoing response a failure is reported on.
type Response interface {
	// SetStatusCode rejects codes the response cannot carry.
	SetStatusCode(code int) error
	StatusCode() int
	ReasonPhrase() string
	HeadersSent() bool
	// WriteStatusLine emits a raw status line such as "HTTP/1.1 500 Internal Server Error".
	WriteStatusLine(line string, code int)
	// Send writes body as the response payload. A nil body sends nothing.
	Send(body any) error
}

// Handler handles failures for the Debug manager.
type Handler interface {
	// Valid reports whether the handler applies to the current failure.
	Valid() bool
	Handle() (Status, error)

	SetInspector(in *inspection.Inspector)
	Inspector() (*inspection.Inspector, error)
	SetRequest(req Request)
	Request() (Request, error)
	SetResponse(resp Response)
	Response() (Response, error)
}

// Base carries the state every handler needs. Embed it to get the accessor
// half of Handler.
type Base struct {
	Config    Config
	Formatter formatter.Formatter

	inspector *inspection.Inspector
	request   Request
	response  Response
}

// NewBase returns a Base with cfg and the default argument formatter.
func NewBase(cfg Config) Base {
	return Base{Config: cfg, Formatter: formatter.New()}
}

func (b *Base) SetInspector(in *inspection.Inspector) {
	b.inspector = in
}

func (b *Base) Inspector() (*inspection.Inspector, error) {
	if b.inspector == nil {
		return nil, ErrInspectorUnavailable
	}
	return b.inspector, nil
}

func (b *Base) SetRequest(req Request) {
	b.request = req
}

func (b *Base) Request() (Request, error) {
	if b.request == nil {
		return nil, ErrRequestUnavailable
	}
	return b.request, nil
}

func (b *Base) SetResponse(resp Response) {
	b.response = resp
}

func (b *Base) Response() (Response, error) {
	if b.response == nil {
		return nil, ErrResponseUnavailable
	}
	return b.response, nil
}

func (b *Base) format(args []any) []string {
	if b.Formatter == nil {
		return formatter.Format(args, true)
	}
	return b.Formatter.Format(args, true)
}
