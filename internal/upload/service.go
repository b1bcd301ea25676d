package upload

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
	"github.com/jetfund/jetfund-backend/pkg/logger"
	"github.com/jetfund/jetfund-backend/pkg/metrics"
)

const (
	MsgNoFile       = "No file provided"
	MsgImagesOnly   = "Only image uploads are allowed."
	defaultExt      = "jpg"
	renamedBaseName = "screenshot"
)

var hopLabels = map[string]string{HopBucky: "Bucky", HopGCS: "GCS", HopS3: "S3"}

// File is an uploaded screenshot read into memory.
type File struct {
	Filename string
	Data     []byte
}

// Result is the response body of POST /upload.
type Result struct {
	URL string `json:"url"`
}

type mirror interface {
	Mirror(ctx context.Context, source string) (string, error)
}

// Service relays screenshots through the first hop and the CDN.
type Service interface {
	Upload(ctx context.Context, file File) (*Result, error)
}

type ServiceParams struct {
	FirstHop FirstHop
	CDN      mirror
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
}

type service struct {
	first   FirstHop
	cdn     mirror
	metrics *metrics.DomainMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.FirstHop == nil {
		return nil, errors.New("upload first hop is required")
	}
	if params.CDN == nil {
		return nil, errors.New("cdn client is required")
	}
	return &service{
		first:   params.FirstHop,
		cdn:     params.CDN,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) Upload(ctx context.Context, file File) (*Result, error) {
	if len(file.Data) == 0 {
		return nil, pkgerrors.Validation(MsgNoFile)
	}

	detected := mimetype.Detect(file.Data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, pkgerrors.Validation(MsgImagesOnly).
			WithDetails(map[string]any{"detected": detected.String()})
	}

	name := RenamedFilename(file.Filename)

	firstURL, err := s.first.Put(ctx, name, detected.String(), file.Data)
	s.metrics.ObserveUpload(s.first.Name(), err)
	if err != nil {
		s.logFailure(ctx, s.first.Name(), err)
		return nil, pkgerrors.Dependency(err, hopLabels[s.first.Name()]+" upload failed").
			WithDetails(map[string]any{"step": s.first.Name()})
	}

	finalURL, err := s.cdn.Mirror(ctx, firstURL)
	s.metrics.ObserveUpload(HopCDN, err)
	if err != nil {
		s.logFailure(ctx, HopCDN, err)
		return nil, pkgerrors.Dependency(err, "CDN upload failed").
			WithDetails(map[string]any{"step": HopCDN})
	}

	return &Result{URL: finalURL}, nil
}

func (s *service) logFailure(ctx context.Context, hop string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "hop", hop), "upload hop failed", err)
}

// RenamedFilename keeps the original extension and falls back to jpg.
func RenamedFilename(original string) string {
	ext := strings.TrimPrefix(path.Ext(strings.TrimSpace(original)), ".")
	if ext == "" {
		ext = defaultExt
	}
	return renamedBaseName + "." + ext
}
