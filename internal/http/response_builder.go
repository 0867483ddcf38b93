package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finset/internal/chart"
	"finset/internal/core"
	"finset/internal/log"
)

// Error bodies are {"error": message}.
type errorBody struct {
	Error string `json:"error"`
}

const (
	msgNotFound      = "Not found"
	msgInternalError = "Internal server error"
	msgRateLimited   = "Rate limit exceeded. Please try again later."
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	contentType string
	body        []byte
	err         error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body. An encoding failure turns the response into a
// 500 when written.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.contentType = "application/json"
	b.body, b.err = json.Marshal(v)
	return b
}

// Raw sets a pre-rendered body.
func (b *ResponseBuilder) Raw(contentType string, body []byte) *ResponseBuilder {
	b.contentType = contentType
	b.body = body
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		ErrorResponse(http.StatusInternalServerError, msgInternalError).Write(w)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.contentType != "" {
		w.Header().Set("Content-Type", b.contentType)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError() *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, msgNotFound)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, msgInternalError)
}

// errorResponseFor classifies err: validation errors are 400 with their
// message, missing records and unknown charts 404, oversized bodies 413 and
// everything else a generic 500.
func errorResponseFor(err error) *ResponseBuilder {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return BadRequestError(verr.Message)
	case errors.Is(err, core.ErrNotFound), errors.Is(err, chart.ErrUnknownKind):
		return NotFoundError()
	case errors.Is(err, errBodyTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, errBodyTooLarge.Error())
	default:
		return InternalServerError()
	}
}

// writeError logs server-side failures with their details and writes the
// classified response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	resp := errorResponseFor(err)
	if resp.statusCode >= http.StatusInternalServerError && !isClientGone(err) {
		s.structured.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, operation,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	}
	resp.Write(w)
}
