package controllers

import (
	"context"
	"net/http"

	"github.com/jetfund/jetfund-backend/api/responses"
	"github.com/jetfund/jetfund-backend/internal/earnings"
	"github.com/jetfund/jetfund-backend/pkg/logger"
)

type earningsReader interface {
	ForUser(ctx context.Context, userID string) (*earnings.DTO, error)
}

func Earnings(svc earningsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("earnings"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
