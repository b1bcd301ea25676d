package instance

import (
	"os"

	"github.com/jetfund/jetfund-backend/pkg/env"
)

// GetID returns the identifier of the running process, preferring platform-provided values.
func GetID() string {
	if id := env.First("", "JETFUND_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
