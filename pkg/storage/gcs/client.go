package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	scope          = "https://www.googleapis.com/auth/devstorage.read_write"
	defaultAPIURL  = "https://storage.googleapis.com"
	pingTimeout    = 5 * time.Second
	errorReadLimit = 2048
)

// Client uploads objects to one bucket through the GCS JSON API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	bucket     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient replaces the OAuth-authenticated client. Tests use it to skip credentials.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIURL points the client at another storage endpoint.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(apiURL), "/"); trimmed != "" {
			c.apiURL = trimmed
		}
	}
}

// APIError is a non-2xx response from storage.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gcs: status %d: %s", e.Status, e.Body)
}

// StatusCode exposes the upstream status for error dumps.
func (e *APIError) StatusCode() int {
	return e.Status
}

// NewClient builds a bucket client. Credentials come from the JSON in
// gcp.CredentialsJSON, falling back to application default credentials.
func NewClient(ctx context.Context, bucket string, gcp config.GCPConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	client := &Client{apiURL: defaultAPIURL, bucket: bucket}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		ts, err := tokenSource(ctx, gcp)
		if err != nil {
			return nil, err
		}
		client.httpClient = oauth2.NewClient(ctx, ts)
		client.httpClient.Timeout = 30 * time.Second
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs client initialized")
	}

	return client, nil
}

func tokenSource(ctx context.Context, gcp config.GCPConfig) (oauth2.TokenSource, error) {
	if strings.TrimSpace(gcp.CredentialsJSON) != "" {
		creds, err := google.CredentialsFromJSON(ctx, []byte(gcp.CredentialsJSON), scope)
		if err != nil {
			return nil, fmt.Errorf("parsing service account credentials: %w", err)
		}
		return creds.TokenSource, nil
	}
	ts, err := google.DefaultTokenSource(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("resolving default gcp credentials: %w", err)
	}
	return ts, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Put uploads body under name and returns the object's public URL.
func (c *Client) Put(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	if c == nil || c.httpClient == nil {
		return "", errors.New("gcs client not initialized")
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", name)
	endpoint := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.apiURL, url.PathEscape(c.bucket), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("gcs: build upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gcs: upload %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorReadLimit))
		return "", &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return c.PublicURL(name), nil
}

// PublicURL is where a public-read bucket serves the object.
func (c *Client) PublicURL(name string) string {
	escaped := make([]string, 0)
	for _, part := range strings.Split(name, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return fmt.Sprintf("%s/%s/%s", c.apiURL, c.bucket, strings.Join(escaped, "/"))
}

// Ping lists at most one object to prove the bucket and credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("gcs client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.apiURL, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorReadLimit))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return nil
}
