package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
)

// AuditStore persists the session audit trail.
type AuditStore interface {
	Record(ctx context.Context, entry AuditEntry) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Schema creates the audit table when missing.
const Schema = `
CREATE TABLE IF NOT EXISTS admin_session_audit (
	id          BIGSERIAL PRIMARY KEY,
	session_key TEXT        NOT NULL,
	event       TEXT        NOT NULL,
	user_id     TEXT,
	username    TEXT,
	reason      TEXT,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS admin_session_audit_occurred_at_idx ON admin_session_audit (occurred_at);
`

const (
	insertAuditSQL = `INSERT INTO admin_session_audit (session_key, event, user_id, username, reason, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	pruneAuditSQL = `DELETE FROM admin_session_audit WHERE occurred_at < $1`
)

// PGAuditRepository implements AuditStore using PostgreSQL.
type PGAuditRepository struct {
	db DBTX
}

// NewAuditRepository constructs a PostgreSQL repository.
func NewAuditRepository(conn DBTX) *PGAuditRepository {
	return &PGAuditRepository{db: conn}
}

// EnsureSchema creates the audit table.
func (r *PGAuditRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("auth: ensure audit schema: %w", err)
	}
	return nil
}

// Record inserts one audit row.
func (r *PGAuditRepository) Record(ctx context.Context, entry AuditEntry) error {
	_, err := r.db.Exec(ctx, insertAuditSQL,
		entry.SessionKey,
		entry.Event,
		pgtype.Text{String: entry.UserID, Valid: entry.UserID != ""},
		pgtype.Text{String: entry.Username, Valid: entry.Username != ""},
		pgtype.Text{String: entry.Reason, Valid: entry.Reason != ""},
		pgtype.Timestamptz{Time: entry.OccurredAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("auth: record audit: %w", err)
	}
	return nil
}

// Prune deletes rows older than before and reports how many were removed.
func (r *PGAuditRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, pruneAuditSQL, pgtype.Timestamptz{Time: before.UTC(), Valid: true})
		if err != nil {
			return fmt.Errorf("auth: prune audit: %w", err)
		}
		removed = tag.RowsAffected()
		return nil
	})
	return removed, err
}

var _ AuditStore = (*PGAuditRepository)(nil)
