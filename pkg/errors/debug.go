package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the flattened, log-friendly view of an error chain.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	// set when an HTTP client error (Airtable, Hackatime, upload hops) is in the chain
	UpstreamStatus int `json:"upstream_status,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Fields renders the dump as logger fields, leaving out empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	add := func(key string, value any, present bool) {
		if present {
			fields[key] = value
		}
	}
	add("error_code", d.Code, d.Code != "")
	add("error_chain", d.Chain, len(d.Chain) > 1)
	add("upstream_status", d.UpstreamStatus, d.UpstreamStatus != 0)
	add("pg_code", d.PGCode, d.PGCode != "")
	add("pg_constraint", d.PGConstraint, d.PGConstraint != "")
	add("pg_table", d.PGTable, d.PGTable != "")
	add("pg_column", d.PGColumn, d.PGColumn != "")
	add("pg_detail", d.PGDetail, d.PGDetail != "")
	add("pg_message", d.PGMessage, d.PGMessage != "")
	return fields
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var upstream interface{ StatusCode() int }
	if errors.As(err, &upstream) {
		d.UpstreamStatus = upstream.StatusCode()
	}
	d.fillPostgres(err)
	return d
}

// fillPostgres copies server error fields from either postgres driver.
func (d *ErrorDump) fillPostgres(err error) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode, d.PGMessage, d.PGDetail = pgxErr.Code, pgxErr.Message, pgxErr.Detail
		d.PGTable, d.PGColumn, d.PGConstraint = pgxErr.TableName, pgxErr.ColumnName, pgxErr.ConstraintName
		return
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode, d.PGMessage, d.PGDetail = string(pqErr.Code), pqErr.Message, pqErr.Detail
		d.PGTable, d.PGColumn, d.PGConstraint = pqErr.Table, pqErr.Column, pqErr.Constraint
	}
}
