// Package client is a typed HTTP client for the finset REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finset/internal/core"
	"finset/internal/log"
)

// DefaultTimeout bounds every request made with the default http.Client.
const DefaultTimeout = 10 * time.Second

// maxErrorBody limits how much of an error response is read.
const maxErrorBody = 4096

// APIError is a non-2xx response. It unwraps to core.ErrNotFound for 404 and
// to a *core.ValidationError for 400 so callers can classify it with
// errors.Is / errors.As.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusBadRequest:
		for _, known := range core.ValidationErrors() {
			if known.Message == e.Message {
				return known
			}
		}
		return &core.ValidationError{Message: e.Message}
	default:
		return nil
	}
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string    `json:"status"`
	Time    time.Time `json:"time,omitempty"`
	Message string    `json:"message,omitempty"`
}

type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
	now    func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default client (DefaultTimeout, default transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentClient) }
}

// New parses baseURL (e.g. http://localhost:8080) and returns a client for
// the API mounted under /api.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https, got %q", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health calls GET /api/health. An unhealthy server is returned as an error
// carrying its message.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &h)
	return h, err
}

// List fetches every transaction and normalizes each record.
func (c *Client) List(ctx context.Context) ([]core.Transaction, error) {
	var raw []map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &raw); err != nil {
		return nil, err
	}
	return core.NormalizeAll(raw, core.DateOf(c.now())), nil
}

// Create posts a new transaction and returns the stored record.
func (c *Client) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var raw map[string]any
	if err := c.do(ctx, http.MethodPost, "/api/transactions", createBody(in), &raw); err != nil {
		return core.Transaction{}, err
	}
	return core.Normalize(raw, core.DateOf(c.now())), nil
}

// Delete removes a transaction by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &core.ValidationError{Field: "id", Message: "id required"}
	}
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+pathSegment(id), nil, nil)
}

// pathSegment escapes id as a single path segment. Dots are escaped too so
// "." and ".." are never resolved against the route.
func pathSegment(id string) string {
	return strings.ReplaceAll(url.PathEscape(id), ".", "%2E")
}

// Import bulk inserts transactions; records already present are skipped.
func (c *Client) Import(ctx context.Context, txs []core.Transaction) (core.ImportResult, error) {
	body := struct {
		Transactions []core.TransactionInput `json:"transactions"`
	}{Transactions: make([]core.TransactionInput, len(txs))}
	for i, tx := range txs {
		body.Transactions[i] = tx.Input()
	}

	var res core.ImportResult
	err := c.do(ctx, http.MethodPost, "/api/import", body, &res)
	return res, err
}

// createBody sends the amount as a JSON number the way browsers do.
func createBody(in core.TransactionInput) map[string]any {
	body := map[string]any{
		"type":     in.Type,
		"amount":   in.Amount,
		"category": in.Category,
		"date":     in.Date,
	}
	if amount, err := core.ParseAmount(in.Amount); err == nil {
		body["amount"] = json.Number(amount.String())
	}
	if in.ID != "" {
		body["id"] = in.ID
	}
	if in.Note != "" {
		body["note"] = in.Note
	}
	if in.Method != "" {
		body["method"] = in.Method
	}
	return body
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	// path is already escaped; JoinPath would clean it.
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "API request failed", log.FieldMethod, method, log.FieldPath, path, log.FieldError, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// IsUnavailable reports whether err means the server could not serve the
// request at all, as opposed to rejecting it.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return !core.IsValidation(err) && !errors.Is(err, core.ErrNotFound)
}
