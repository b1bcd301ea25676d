package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL               = "https://api.airtable.com/v0"
	defaultRequestsPerSec        = 5
	errorBodyReadLimit     int64 = 2048
)

var (
	errAPIKeyRequired = errors.New("airtable api key is required")
	errBaseIDRequired = errors.New("airtable base id is required")
)

// Record is a single row as the REST API returns it.
type Record struct {
	ID          string         `json:"id,omitempty"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

// Sort orders List results by a field.
type Sort struct {
	Field     string
	Direction string // "asc" or "desc"
}

// ListParams narrows a List call.
type ListParams struct {
	FilterByFormula string
	Sort            []Sort
	MaxRecords      int
	Fields          []string
}

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("airtable: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("airtable: status %d: %s: %s", e.Status, e.Type, e.Message)
}

// StatusCode exposes the upstream status for error dumps.
func (e *APIError) StatusCode() int {
	return e.Status
}

// IsNotFound reports whether err is an Airtable 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to one Airtable base.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	baseID     string
	view       string
	limiter    *rate.Limiter
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithView restricts List calls to a named view.
func WithView(view string) Option {
	return func(c *Client) {
		c.view = strings.TrimSpace(view)
	}
}

// WithRequestsPerSecond paces outgoing calls. Airtable allows 5 per base.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient builds an Airtable client for a base.
func NewClient(apiKey, baseID string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}
	trimmedBase := strings.TrimSpace(baseID)
	if trimmedBase == "" {
		return nil, errBaseIDRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseID:     trimmedBase,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSec), 1),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// List returns every record matching params, following pagination offsets.
func (c *Client) List(ctx context.Context, table string, params ListParams) ([]Record, error) {
	query := url.Values{}
	if params.FilterByFormula != "" {
		query.Set("filterByFormula", params.FilterByFormula)
	}
	if params.MaxRecords > 0 {
		query.Set("maxRecords", strconv.Itoa(params.MaxRecords))
	}
	if c.view != "" {
		query.Set("view", c.view)
	}
	for i, s := range params.Sort {
		query.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		if s.Direction != "" {
			query.Set(fmt.Sprintf("sort[%d][direction]", i), s.Direction)
		}
	}
	for _, f := range params.Fields {
		query.Add("fields[]", f)
	}

	var records []Record
	for {
		var page struct {
			Records []Record `json:"records"`
			Offset  string   `json:"offset"`
		}
		if err := c.do(ctx, http.MethodGet, c.tableURL(table, "", query), nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Offset == "" {
			return records, nil
		}
		query.Set("offset", page.Offset)
	}
}

// FindFirst returns the first record matching formula, or an APIError 404.
func (c *Client) FindFirst(ctx context.Context, table, formula string) (*Record, error) {
	records, err := c.List(ctx, table, ListParams{FilterByFormula: formula, MaxRecords: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &APIError{Status: http.StatusNotFound, Type: "NOT_FOUND", Message: "no record matches formula"}
	}
	return &records[0], nil
}

// Get fetches a record by id.
func (c *Client) Get(ctx context.Context, table, id string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, c.tableURL(table, id, nil), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a record. Typecast lets select options and links accept plain strings.
func (c *Client) Create(ctx context.Context, table string, fields map[string]any) (*Record, error) {
	body := map[string]any{"fields": fields, "typecast": true}
	var rec Record
	if err := c.do(ctx, http.MethodPost, c.tableURL(table, "", nil), body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update patches the given fields of a record.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]any) (*Record, error) {
	body := map[string]any{"fields": fields, "typecast": true}
	var rec Record
	if err := c.do(ctx, http.MethodPatch, c.tableURL(table, id, nil), body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, http.MethodDelete, c.tableURL(table, id, nil), nil, nil)
}

// Ping checks the base is reachable with the configured key.
func (c *Client) Ping(ctx context.Context, table string) error {
	_, err := c.List(ctx, table, ListParams{MaxRecords: 1})
	return err
}

func (c *Client) tableURL(table, id string, query url.Values) string {
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.baseID), url.PathEscape(table))
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("airtable: rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("airtable: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("airtable: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("airtable: %s %s: %w", method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("airtable: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}

	// errors come back as {"error":{"type","message"}} or {"error":"NOT_FOUND"}
	var structured struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &structured) == nil && len(structured.Error) > 0 {
		var detail struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		var plain string
		switch {
		case json.Unmarshal(structured.Error, &detail) == nil:
			apiErr.Type = detail.Type
			apiErr.Message = detail.Message
		case json.Unmarshal(structured.Error, &plain) == nil:
			apiErr.Type = plain
			apiErr.Message = plain
		}
	}
	return apiErr
}
