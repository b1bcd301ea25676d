package airtable

import (
	"strconv"
	"time"
)

// String reads a text field, tolerating missing values.
func (r Record) String(name string) string {
	switch v := r.Fields[name].(type) {
	case string:
		return v
	case []any:
		// lookup fields come back as arrays
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// Float reads a numeric field. Strings are parsed for formula fields that emit text.
func (r Record) Float(name string) float64 {
	switch v := r.Fields[name].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case []any:
		if len(v) > 0 {
			if f, ok := v[0].(float64); ok {
				return f
			}
		}
	}
	return 0
}

// Links returns the record ids of a linked-record field.
func (r Record) Links(name string) []string {
	raw, ok := r.Fields[name].([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids
}

// FirstLink returns the first linked id, the primary owner for multi-valued relations.
func (r Record) FirstLink(name string) string {
	if ids := r.Links(name); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// Time parses an ISO-8601 date-time field. Missing or malformed values yield nil.
func (r Record) Time(name string) *time.Time {
	return ParseTime(r.String(name))
}

// ParseTime parses the ISO-8601 timestamps Airtable emits, including createdTime.
func ParseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &t
}

// FormatTime renders t the way Airtable date-time fields expect.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
