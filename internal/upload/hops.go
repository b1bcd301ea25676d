package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	HopBucky = "bucky"
	HopGCS   = "gcs"
	HopS3    = "s3"
	HopCDN   = "cdn"

	responseReadLimit = 64 << 10
	objectPrefix      = "screenshots"
)

var errEmptyURL = errors.New("first hop returned an empty url")

// FirstHop stores the raw file somewhere the CDN can fetch it from.
type FirstHop interface {
	Name() string
	Put(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// HopError carries the upstream status of a failed relay call.
type HopError struct {
	Hop    string
	Status int
	Body   string
}

func (e *HopError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Hop, e.Status, e.Body)
}

// StatusCode exposes the upstream status for error dumps.
func (e *HopError) StatusCode() int {
	return e.Status
}

// BuckyHop posts the file as multipart form data and reads the URL back
// from the plain-text body.
type BuckyHop struct {
	url    string
	client *http.Client
}

func NewBuckyHop(url string, client *http.Client) *BuckyHop {
	if client == nil {
		client = http.DefaultClient
	}
	return &BuckyHop{url: url, client: client}
}

func (b *BuckyHop) Name() string { return HopBucky }

func (b *BuckyHop) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("bucky: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("bucky: write form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("bucky: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, &body)
	if err != nil {
		return "", fmt.Errorf("bucky: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("bucky: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return "", fmt.Errorf("bucky: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HopError{Hop: HopBucky, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	url := strings.TrimSpace(string(raw))
	if url == "" {
		return "", errEmptyURL
	}
	return url, nil
}

type gcsPutter interface {
	Put(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

type s3Putter interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// BucketHop writes the file to a GCS or S3 bucket under a unique prefix.
type BucketHop struct {
	name string
	put  func(ctx context.Context, key, contentType string, data []byte) (string, error)
}

func NewGCSHop(client gcsPutter) *BucketHop {
	return &BucketHop{
		name: HopGCS,
		put: func(ctx context.Context, key, contentType string, data []byte) (string, error) {
			return client.Put(ctx, key, contentType, bytes.NewReader(data))
		},
	}
}

func NewS3Hop(client s3Putter) *BucketHop {
	return &BucketHop{name: HopS3, put: client.Put}
}

func (b *BucketHop) Name() string { return b.name }

func (b *BucketHop) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := fmt.Sprintf("%s/%s/%s", objectPrefix, uuid.NewString(), filename)
	return b.put(ctx, key, contentType, data)
}
