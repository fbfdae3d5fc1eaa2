// Package repository implements the domain repository ports over SQLite.
// JSON-encoded list fields are (de)serialized here and nowhere else.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"expertmarket/internal/domain"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need. Repos are
// constructed over a pool and rebound to a transaction via WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapDBError converts driver errors into domain errors.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return domain.ErrNotFound("not found")
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return domain.ErrConflict("resource already exists")
	}
	return domain.ErrStorage(err, "database error")
}

// encodeList serializes a string list for a TEXT column. Nil encodes as [].
func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

// decodeList parses a TEXT column into a string list. Unparseable or empty
// input decodes as nil.
func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// encodeMetadata serializes audit metadata for a TEXT column.
func encodeMetadata(m map[string]string) string {
	if m == nil {
		m = map[string]string{}
	}
	b, _ := json.Marshal(m)
	return string(b)
}

// decodeMetadata parses audit metadata from a TEXT column.
func decodeMetadata(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
