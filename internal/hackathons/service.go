package hackathons

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/config"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/logger"
	"github.com/jetfund/jetfund-backend/pkg/metrics"
	"github.com/jetfund/jetfund-backend/pkg/redis"
)

const (
	defaultURL            = "https://hackathons.hackclub.com/api/events/upcoming"
	defaultCacheTTL       = 10 * time.Minute
	cacheName             = "hackathons:upcoming"
	maxBodyBytes    int64 = 4 << 20
)

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(name string) string
}

// ServiceParams groups dependencies for the hackathons proxy. Cache is optional.
type ServiceParams struct {
	Config     config.HackathonsConfig
	Cache      cache
	HTTPClient *http.Client
	Metrics    *metrics.DomainMetrics
	Logger     *logger.Logger
}

// Service proxies the upcoming hackathons feed through a short-lived cache.
type Service struct {
	url     string
	ttl     time.Duration
	cache   cache
	client  *http.Client
	metrics *metrics.DomainMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) *Service {
	svc := &Service{
		url:     strings.TrimSpace(params.Config.URL),
		ttl:     params.Config.CacheTTL,
		cache:   params.Cache,
		client:  params.HTTPClient,
		metrics: params.Metrics,
		logg:    params.Logger,
	}
	if svc.url == "" {
		svc.url = defaultURL
	}
	if svc.ttl <= 0 {
		svc.ttl = defaultCacheTTL
	}
	if svc.client == nil {
		timeout := params.Config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		svc.client = &http.Client{Timeout: timeout}
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	return svc
}

// Upcoming returns the upstream JSON unchanged. Cache errors are logged and
// fall through to the upstream call.
func (s *Service) Upcoming(ctx context.Context) (json.RawMessage, error) {
	var key string
	if s.cache != nil {
		key = s.cache.CacheKey(cacheName)
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil && cached != "":
			return json.RawMessage(cached), nil
		case err != nil && !redis.IsMiss(err):
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "hackathons cache read failed")
		}
	}

	body, err := s.fetch(ctx)
	if err != nil {
		s.metrics.IncUpstreamFailure("hackathons")
		return nil, pkgerrors.Dependency(err, "fetch upcoming hackathons")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, string(body), s.ttl); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "hackathons cache write failed")
		}
	}
	return body, nil
}

func (s *Service) fetch(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hackathons upstream returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("hackathons upstream returned invalid json")
	}
	return json.RawMessage(raw), nil
}
