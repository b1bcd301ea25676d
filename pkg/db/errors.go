package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned by every repository backend when a record does not exist.
var ErrNotFound = errors.New("record not found")

// NotFound maps gorm's missing-record error onto ErrNotFound and passes
// everything else through.
func NotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation (Postgres or SQLite). When constraintName is provided,
// the helper looks for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
