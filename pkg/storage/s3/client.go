package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/logger"
)

const defaultRegion = "us-east-1"

// Client writes screenshots to an S3-compatible bucket.
type Client struct {
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	publicURL string
	pathStyle bool
}

// NewClient builds a client from the upload configuration.
func NewClient(ctx context.Context, cfg config.UploadConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.S3Bucket) == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	region := cfg.S3Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = region
			if cfg.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			}
			if cfg.S3PathStyle {
				o.UsePathStyle = true
			}
			if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
			}
		},
	}

	c := &Client{
		client:    s3.New(s3.Options{}, opts...),
		bucket:    cfg.S3Bucket,
		region:    region,
		endpoint:  strings.TrimRight(cfg.S3Endpoint, "/"),
		publicURL: strings.TrimRight(cfg.S3PublicURL, "/"),
		pathStyle: cfg.S3PathStyle,
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"bucket": c.bucket, "region": region}), "s3 client initialized")
	}
	return c, nil
}

// Put stores body under key with a public-read ACL and returns its URL.
func (c *Client) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("s3 client not initialized")
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("PutObject s3://%s/%s: %w", c.bucket, key, err)
	}
	return c.PublicURL(key), nil
}

// PublicURL resolves where the object is readable.
func (c *Client) PublicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	escaped := strings.Join(parts, "/")

	switch {
	case c.publicURL != "":
		return c.publicURL + "/" + escaped
	case c.endpoint != "" && c.pathStyle:
		return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, escaped)
	case c.endpoint != "":
		u, err := url.Parse(c.endpoint)
		if err == nil && u.Host != "" {
			return fmt.Sprintf("%s://%s.%s/%s", u.Scheme, c.bucket, u.Host, escaped)
		}
		return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, escaped)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, escaped)
	}
}

// Ping checks the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("s3 client not initialized")
	}
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("HeadBucket %s: %w", c.bucket, err)
	}
	return nil
}
