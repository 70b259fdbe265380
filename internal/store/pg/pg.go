// Package pg implements every database-backed service on a single Store over
// database/sql with the pgx driver. A nil or unconfigured Store applies the
// read-soft-fail / write-hard-fail policy: reads return empty results, writes
// fail with a "not configured" error.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fieldops.app/internal/svcerr"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle; used by tests with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// configured reports whether a database handle is available.
func (s *Store) configured() bool { return s != nil && s.db != nil }

// errNotConfigured is the uniform write-path failure when no backend exists.
// The message deliberately contains "not configured".
func errNotConfigured() error {
	return svcerr.New(svcerr.NotConfigured, "database backend not configured")
}

// serverManaged columns are stripped from every update patch before it is
// sent: the backend owns them.
var serverManaged = map[string]bool{
	"id":            true,
	"uid":           true,
	"po_number":     true,
	"label":         true,
	"created_at":    true,
	"updated_at":    true,
	"search_vector": true,
}

// buildUpdate renders "set" clauses from a patch map, skipping server-managed
// columns, and always touches updated_at. Returns clause text and args
// starting at placeholder $start.
func buildUpdate(patch map[string]any, start int) (string, []any) {
	cols := make([]string, 0, len(patch))
	for k := range patch {
		if !serverManaged[k] {
			cols = append(cols, k)
		}
	}
	// Stable order keeps queries reproducible for tests.
	sort.Strings(cols)

	var b strings.Builder
	args := make([]any, 0, len(cols))
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=$%d", c, start+i)
		args = append(args, patch[c])
	}
	if b.Len() > 0 {
		b.WriteString(", ")
	}
	b.WriteString("updated_at=now()")
	return b.String(), args
}

// normalizeWriteErr converts a backend rejection into the typed error the
// caller surfaces. Row-level-security denials are detected by message match,
// which is the only signal the backend gives us.
func normalizeWriteErr(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var se *svcerr.Error
	if errors.As(err, &se) {
		return err
	}
	msg := err.Error()
	if strings.Contains(strings.ToLower(msg), "policy") {
		return svcerr.Wrap(svcerr.PermissionDenied, "you do not have permission to modify this record", err)
	}
	if msg == "" {
		msg = fallback
	}
	return svcerr.Wrap(svcerr.Internal, msg, err)
}

// jsonPatch renders a patch map as the jsonb argument the secure-data update
// procedure expects, with server-managed columns stripped first.
func jsonPatch(patch map[string]any) string {
	clean := make(map[string]any, len(patch))
	for k, v := range patch {
		if !serverManaged[k] {
			clean[k] = v
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// rpc invokes a named server-side procedure returning a single row.
func (s *Store) rpc(ctx context.Context, call string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, call, args...)
}
