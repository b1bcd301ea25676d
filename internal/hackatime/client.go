package hackatime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://hackatime.hackclub.com/api/v1"
	errorBodyReadLimit   int64 = 1024
	defaultClientTimeout       = 10 * time.Second
)

// ErrProjectNotFound is returned by ProjectHours when the user has no
// Hackatime project with the requested name.
var ErrProjectNotFound = errors.New("hackatime project not found")

// Project is one entry of the stats projects breakdown.
type Project struct {
	Name         string  `json:"name"`
	TotalSeconds float64 `json:"total_seconds"`
	Text         string  `json:"text"`
	Hours        int     `json:"hours"`
	Minutes      int     `json:"minutes"`
	Percent      float64 `json:"percent"`
	Digital      string  `json:"digital"`
}

// Stats is the data block of the stats endpoint.
type Stats struct {
	Username                  string    `json:"username"`
	UserID                    string    `json:"user_id"`
	IsCodingActivityVisible   bool      `json:"is_coding_activity_visible"`
	IsOtherUsageVisible       bool      `json:"is_other_usage_visible"`
	Status                    string    `json:"status"`
	Start                     string    `json:"start"`
	End                       string    `json:"end"`
	Range                     string    `json:"range"`
	HumanReadableRange        string    `json:"human_readable_range"`
	TotalSeconds              float64   `json:"total_seconds"`
	DailyAverage              float64   `json:"daily_average"`
	HumanReadableTotal        string    `json:"human_readable_total"`
	HumanReadableDailyAverage string    `json:"human_readable_daily_average"`
	Projects                  []Project `json:"projects"`
}

// TrustFactor is Hackatime's anti-cheat verdict for the user.
type TrustFactor struct {
	TrustLevel string  `json:"trust_level"`
	TrustValue float64 `json:"trust_value"`
}

// StatsResponse is the full payload, passed through to API callers as is.
type StatsResponse struct {
	Data        Stats       `json:"data"`
	TrustFactor TrustFactor `json:"trust_factor"`
}

// APIError carries a non-2xx upstream response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hackatime: status %d: %s", e.Status, e.Body)
}

func (e *APIError) StatusCode() int {
	return e.Status
}

// Client reads per-user coding stats from Hackatime.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// WithBaseURL overrides the configured API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds a Hackatime client from config.
func NewClient(cfg config.HackatimeConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
	}
	WithBaseURL(cfg.BaseURL)(client)

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// UserStats fetches the stats for a Slack user, including the projects breakdown.
func (c *Client) UserStats(ctx context.Context, slackID string) (*StatsResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "hackatime client not configured")
	}
	slackID = strings.TrimSpace(slackID)
	if slackID == "" {
		return nil, pkgerrors.Validation("Missing Slack ID.")
	}

	endpoint := fmt.Sprintf("%s/users/%s/stats?features=projects", c.baseURL, url.PathEscape(slackID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build hackatime request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute hackatime request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			&APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))},
			"hackatime stats request failed")
	}

	var stats StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode hackatime stats")
	}
	return &stats, nil
}

// FindProject returns the named project from stats, or nil.
func FindProject(stats *Stats, name string) *Project {
	if stats == nil {
		return nil
	}
	for i := range stats.Projects {
		if stats.Projects[i].Name == name {
			return &stats.Projects[i]
		}
	}
	return nil
}

// ProjectHours returns the tracked hours for one project, rounded to 2 places.
func (c *Client) ProjectHours(ctx context.Context, slackID, projectName string) (float64, error) {
	stats, err := c.UserStats(ctx, slackID)
	if err != nil {
		return 0, err
	}
	project := FindProject(&stats.Data, projectName)
	if project == nil {
		return 0, ErrProjectNotFound
	}
	return models.RoundHours(project.TotalSeconds / 3600), nil
}
