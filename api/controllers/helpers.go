package controllers

import (
	"net/http"

	"github.com/jetfund/jetfund-backend/api/middleware"
	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
)

func requireUserID(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return userID, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
