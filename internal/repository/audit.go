package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository stores audit entries in the audit_logs table.
type AuditRepository struct {
	db dbtx
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

func NewAuditRepositoryWithTx(tx pgx.Tx) *AuditRepository {
	return &AuditRepository{db: tx}
}

func (r *AuditRepository) Save(ctx context.Context, entry *domain.AuditLog) error {
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return domain.PersistenceFailure(fmt.Errorf("encode result: %w", err))
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO audit_logs (id, request_id, user_id, timestamp, query, result)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.RequestID, entry.UserID, entry.Timestamp, entry.Query, result,
	)
	if err != nil {
		return domain.PersistenceFailure(err)
	}
	return nil
}

// List returns up to limit entries, newest first, strictly after cursor.
func (r *AuditRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.AuditLog, error) {
	query := `SELECT id, request_id, user_id, timestamp, query, result FROM audit_logs`
	args := []any{}

	if cursor != nil {
		if _, err := uuid.Parse(cursor.LastID); err != nil {
			return nil, domain.ErrInvalidCursor
		}
		query += ` WHERE (timestamp, id) < ($1, $2::uuid)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}

	query += fmt.Sprintf(` ORDER BY timestamp DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.PersistenceFailure(err)
	}
	defer rows.Close()

	entries, err := scanAuditRows(rows)
	if err != nil {
		return nil, domain.PersistenceFailure(err)
	}
	return entries, nil
}

func (r *AuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM audit_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, domain.PersistenceFailure(err)
	}
	return tag.RowsAffected(), nil
}

func scanAuditRows(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var results []*domain.AuditLog
	for rows.Next() {
		var e domain.AuditLog
		var result []byte
		if err := rows.Scan(&e.ID, &e.RequestID, &e.UserID, &e.Timestamp, &e.Query, &result); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(result, &e.Result); err != nil {
			return nil, fmt.Errorf("decode result of %s: %w", e.ID, err)
		}
		e.Timestamp = e.Timestamp.UTC()
		results = append(results, &e)
	}
	return results, rows.Err()
}
