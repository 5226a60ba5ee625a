package handlers

import (
	"strings"

	"github.com/vietddude/crashguard/internal/debug/inspection"
)

// APIFrame is a stack frame as rendered in an API error payload.
type APIFrame struct {
	File      string   `json:"file"`
	Line      int      `json:"line"`
	Class     string   `json:"class"`
	Type      string   `json:"type"`
	Function  string   `json:"function"`
	Arguments []string `json:"arguments"`
}

// APIPayload is the body of an API error response.
type APIPayload struct {
	Title   string     `json:"title"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	File    string     `json:"file"`
	Line    int        `json:"line"`
	Frames  []APIFrame `json:"frames"`
}

// ApiResponseErrorHandler answers requests that do not want HTML with a
// structured error body, then ends the chain.
type ApiResponseErrorHandler struct {
	Base
}

func NewApiResponseErrorHandler(cfg Config) *ApiResponseErrorHandler {
	return &ApiResponseErrorHandler{Base: NewBase(cfg)}
}

// Valid reports whether the request's Accept header leaves out text/html.
func (h *ApiResponseErrorHandler) Valid() bool {
	req, err := h.Request()
	if err != nil {
		return false
	}
	return !strings.Contains(req.HeaderLine("Accept"), "text/html")
}

func (h *ApiResponseErrorHandler) Handle() (Status, error) {
	in, err := h.Inspector()
	if err != nil {
		return StatusContinue, err
	}
	resp, err := h.Response()
	if err != nil {
		return StatusContinue, err
	}

	status, err := in.StatusCode()
	if err != nil {
		return StatusContinue, err
	}

	var body any
	if !h.Config.Production {
		body = h.payload(in, status)
	}

	if err := resp.SetStatusCode(status); err != nil {
		return StatusContinue, err
	}
	if err := resp.Send(body); err != nil {
		return StatusContinue, err
	}
	return StatusTerminate, nil
}

func (h *ApiResponseErrorHandler) payload(in *inspection.Inspector, status int) APIPayload {
	frames := make([]APIFrame, 0, in.Frames().Len())
	for _, fr := range in.Frames().All() {
		frames = append(frames, APIFrame{
			File:      fr.File(),
			Line:      fr.Line(),
			Class:     fr.Class(),
			Type:      fr.Type(),
			Function:  fr.Function(),
			Arguments: h.format(fr.Arguments()),
		})
	}

	return APIPayload{
		Title:   in.Name(),
		Code:    status,
		Message: in.Message(),
		File:    in.File(),
		Line:    in.Line(),
		Frames:  frames,
	}
}
