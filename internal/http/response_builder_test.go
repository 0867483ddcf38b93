package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finset/internal/chart"
	"finset/internal/core"
	"finset/internal/services"
)

func TestResponseBuilder(t *testing.T) {
	tests := []struct {
		name        string
		builder     *ResponseBuilder
		status      int
		contentType string
		body        string
		headers     map[string]string
	}{
		{
			name:        "json",
			builder:     NewResponse().JSON(map[string]int{"count": 2}),
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"count":2}`,
		},
		{
			name:        "status and header",
			builder:     NewResponse().Status(http.StatusCreated).Header("Location", "/api/transactions/1").JSON(struct{}{}),
			status:      http.StatusCreated,
			contentType: "application/json",
			body:        `{}`,
			headers:     map[string]string{"Location": "/api/transactions/1"},
		},
		{
			name:        "raw",
			builder:     NewResponse().Raw("image/svg+xml", []byte("<svg/>")),
			status:      http.StatusOK,
			contentType: "image/svg+xml",
			body:        "<svg/>",
		},
		{
			name:        "encoding failure",
			builder:     NewResponse().JSON(make(chan int)),
			status:      http.StatusInternalServerError,
			contentType: "application/json",
			body:        `{"error":"Internal server error"}`,
		},
		{
			name:        "bad request",
			builder:     BadRequestError("nope"),
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"error":"nope"}`,
		},
		{
			name:        "not found",
			builder:     NotFoundError(),
			status:      http.StatusNotFound,
			contentType: "application/json",
			body:        `{"error":"Not found"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.builder.Write(rr)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			if got := rr.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tt.body {
				t.Errorf("body = %s, want %s", got, tt.body)
			}
			for k, v := range tt.headers {
				if got := rr.Header().Get(k); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestErrorResponseFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", core.ErrInvalidAmount, http.StatusBadRequest, `{"error":"amount must be a positive number"}`},
		{"wrapped validation", fmt.Errorf("create: %w", core.ErrMissingFields), http.StatusBadRequest, `{"error":"category and date are required"}`},
		{"id required", services.ErrIDRequired, http.StatusBadRequest, `{"error":"id required"}`},
		{"not found", fmt.Errorf("get: %w", core.ErrNotFound), http.StatusNotFound, `{"error":"Not found"}`},
		{"unknown chart", chart.ErrUnknownKind, http.StatusNotFound, `{"error":"Not found"}`},
		{"too large", errBodyTooLarge, http.StatusRequestEntityTooLarge, `{"error":"request body too large"}`},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			errorResponseFor(tt.err).Write(rr)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			if got := rr.Body.String(); got != tt.body {
				t.Errorf("body = %s, want %s", got, tt.body)
			}
		})
	}
}
