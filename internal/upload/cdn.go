package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var errNoDeployedFile = errors.New("cdn: response has no deployed file")

// CDN asks the Hack Club CDN to mirror a public URL.
type CDN struct {
	url    string
	token  string
	client *http.Client
}

func NewCDN(url, token string, client *http.Client) *CDN {
	if client == nil {
		client = http.DefaultClient
	}
	return &CDN{url: url, token: token, client: client}
}

type cdnResponse struct {
	Files []struct {
		DeployedURL string `json:"deployedUrl"`
	} `json:"files"`
}

// Mirror returns the CDN URL for source.
func (c *CDN) Mirror(ctx context.Context, source string) (string, error) {
	payload, err := json.Marshal([]string{source})
	if err != nil {
		return "", fmt.Errorf("cdn: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("cdn: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdn: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return "", &HopError{Hop: HopCDN, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var decoded cdnResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseReadLimit)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("cdn: decode response: %w", err)
	}
	if len(decoded.Files) == 0 || decoded.Files[0].DeployedURL == "" {
		return "", errNoDeployedFile
	}
	return decoded.Files[0].DeployedURL, nil
}
