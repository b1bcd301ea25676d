package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jetfund/jetfund-backend/api/controllers"
	"github.com/jetfund/jetfund-backend/internal/projects"
	"github.com/jetfund/jetfund-backend/internal/sessions"
	"github.com/jetfund/jetfund-backend/internal/upload"
	"github.com/jetfund/jetfund-backend/internal/users"
	"github.com/jetfund/jetfund-backend/pkg/airtable"
	"github.com/jetfund/jetfund-backend/pkg/config"
	"github.com/jetfund/jetfund-backend/pkg/db"
	"github.com/jetfund/jetfund-backend/pkg/logger"
	"github.com/jetfund/jetfund-backend/pkg/metrics"
	"github.com/jetfund/jetfund-backend/pkg/migrate"
	"github.com/jetfund/jetfund-backend/pkg/storage/gcs"
	"github.com/jetfund/jetfund-backend/pkg/storage/s3"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// stores holds the three repositories for whichever backend is configured.
type stores struct {
	users    users.Repository
	projects projects.Repository
	sessions sessions.Repository
	ping     controllers.Pinger
	close    func() error
}

func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*stores, error) {
	if !cfg.Store.UsesSQL() {
		return openAirtable(cfg.Airtable)
	}

	client, err := db.New(ctx, cfg.Store.Driver, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	conn := client.DB()
	return &stores{
		users:    users.NewGormRepository(conn),
		projects: projects.NewGormRepository(conn),
		sessions: sessions.NewGormRepository(conn),
		ping:     client,
		close:    client.Close,
	}, nil
}

func openAirtable(cfg config.AirtableConfig) (*stores, error) {
	client, err := airtable.NewClient(cfg.APIKey, cfg.BaseID,
		airtable.WithBaseURL(cfg.BaseURL),
		airtable.WithView(cfg.View),
		airtable.WithRequestsPerSecond(cfg.RequestsPerSec),
		airtable.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap airtable: %w", err)
	}
	return &stores{
		users:    users.NewAirtableRepository(client, cfg.UsersTable),
		projects: projects.NewAirtableRepository(client, cfg.ProjectsTable),
		sessions: sessions.NewAirtableRepository(client, cfg.SessionsTable),
		ping: pingFunc(func(ctx context.Context) error {
			return client.Ping(ctx, cfg.UsersTable)
		}),
		close: func() error { return nil },
	}, nil
}

// buildUpload picks the first hop named by JETFUND_UPLOAD_FIRST_HOP. Bucket
// hops also report a readiness check.
func buildUpload(ctx context.Context, cfg *config.Config, m *metrics.DomainMetrics, logg *logger.Logger) (upload.Service, controllers.Pinger, error) {
	httpClient := &http.Client{Timeout: cfg.Upload.Timeout}

	var (
		first upload.FirstHop
		check controllers.Pinger
	)
	switch cfg.Upload.FirstHop {
	case config.UploadHopGCS:
		client, err := gcs.NewClient(ctx, cfg.Upload.GCSBucket, cfg.GCP, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap gcs: %w", err)
		}
		first, check = upload.NewGCSHop(client), client
	case config.UploadHopS3:
		client, err := s3.NewClient(ctx, cfg.Upload, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap s3: %w", err)
		}
		first, check = upload.NewS3Hop(client), client
	default:
		first = upload.NewBuckyHop(cfg.Upload.BuckyURL, httpClient)
	}

	svc, err := upload.NewService(upload.ServiceParams{
		FirstHop: first,
		CDN:      upload.NewCDN(cfg.Upload.CDNURL, cfg.Upload.CDNToken, httpClient),
		Metrics:  m,
		Logger:   logg,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, check, nil
}
