package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed audit store using pgx/v5.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PostgreSQL audit store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id          BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			session_id  TEXT NOT NULL,
			subject_id  TEXT NOT NULL DEFAULT '',
			operation   TEXT NOT NULL,
			model       TEXT NOT NULL DEFAULT '',
			record_id   BIGINT NOT NULL DEFAULT 0,
			method      TEXT NOT NULL DEFAULT '',
			success     BOOLEAN NOT NULL,
			detail      TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS audit_entries_session_idx
		ON audit_entries (session_id, occurred_at DESC)`)
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}

func (s *PgStore) Append(ctx context.Context, entry Entry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_entries (
			occurred_at, session_id, subject_id, operation,
			model, record_id, method, success, detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.OccurredAt, entry.SessionID, entry.SubjectID, entry.Operation,
		entry.Model, entry.RecordID, entry.Method, entry.Success, entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PgStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		conds []string
		args  []any
	)
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		conds = append(conds, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.Model != "" {
		args = append(args, filter.Model)
		conds = append(conds, fmt.Sprintf("model = $%d", len(args)))
	}
	if filter.Operation != "" {
		args = append(args, filter.Operation)
		conds = append(conds, fmt.Sprintf("operation = $%d", len(args)))
	}

	query := `
		SELECT id, occurred_at, session_id, subject_id, operation,
		       model, record_id, method, success, detail
		FROM audit_entries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.OccurredAt, &e.SessionID, &e.SubjectID, &e.Operation,
			&e.Model, &e.RecordID, &e.Method, &e.Success, &e.Detail,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

// HealthCheck pings the database.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
