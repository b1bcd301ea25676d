package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/jetfund/jetfund-backend/pkg/errors"
)

const msgMissingCredentials = "missing credentials"

// BearerToken pulls the token out of the Authorization header. The scheme
// prefix is optional.
func BearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, msgMissingCredentials)
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, msgMissingCredentials)
	}
	return token, nil
}
