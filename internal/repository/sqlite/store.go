// Package sqlite is a single-file audit sink for deployments without
// Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/pagination"
)

// timestampLayout is fixed width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id          TEXT PRIMARY KEY,
	request_id  TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	query       TEXT,
	result      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp_id ON audit_logs(timestamp DESC, id DESC);
`

// AuditStore implements service.AuditRepository on SQLite.
type AuditStore struct {
	db   *sql.DB
	path string
}

// NewAuditStore opens (creating if needed) the database at path.
func NewAuditStore(path string) (*AuditStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &AuditStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *AuditStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *AuditStore) Path() string {
	return s.path
}

func (s *AuditStore) Save(ctx context.Context, entry *domain.AuditLog) error {
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return domain.PersistenceFailure(fmt.Errorf("encode result: %w", err))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, request_id, user_id, timestamp, query, result)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RequestID, entry.UserID, formatTime(entry.Timestamp), entry.Query, string(result),
	)
	if err != nil {
		return domain.PersistenceFailure(err)
	}
	return nil
}

func (s *AuditStore) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.AuditLog, error) {
	query := `SELECT id, request_id, user_id, timestamp, query, result FROM audit_logs`
	var args []any

	if cursor != nil {
		ts := formatTime(cursor.Timestamp)
		query += ` WHERE timestamp < ? OR (timestamp = ? AND id < ?)`
		args = append(args, ts, ts, cursor.LastID)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.PersistenceFailure(err)
	}
	defer rows.Close()

	var results []*domain.AuditLog
	for rows.Next() {
		var e domain.AuditLog
		var ts, result string
		var q sql.NullString
		if err := rows.Scan(&e.ID, &e.RequestID, &e.UserID, &ts, &q, &result); err != nil {
			return nil, domain.PersistenceFailure(err)
		}
		if e.Timestamp, err = time.Parse(timestampLayout, ts); err != nil {
			return nil, domain.PersistenceFailure(fmt.Errorf("parse timestamp of %s: %w", e.ID, err))
		}
		if q.Valid {
			e.Query = &q.String
		}
		if err := json.Unmarshal([]byte(result), &e.Result); err != nil {
			return nil, domain.PersistenceFailure(fmt.Errorf("decode result of %s: %w", e.ID, err))
		}
		results = append(results, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceFailure(err)
	}
	return results, nil
}

func (s *AuditStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE timestamp < ?`, formatTime(cutoff))
	if err != nil {
		return 0, domain.PersistenceFailure(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.PersistenceFailure(err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
