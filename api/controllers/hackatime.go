package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jetfund/jetfund-backend/api/responses"
	"github.com/jetfund/jetfund-backend/internal/hackatime"
	"github.com/jetfund/jetfund-backend/pkg/logger"
)

type hackatimeStats interface {
	StatsForUser(ctx context.Context, userID string) (*hackatime.StatsResponse, error)
}

type hackathonFeed interface {
	Upcoming(ctx context.Context) (json.RawMessage, error)
}

func HackatimeStats(svc hackatimeStats, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("hackatime"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.StatsForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// Hackathons is public and served from cache when possible.
func Hackathons(svc hackathonFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("hackathons"))
			return
		}

		feed, err := svc.Upcoming(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feed)
	}
}
