package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"expertmarket/internal/domain"
)

type AuditRepo struct {
	db DBTX
}

func NewAuditRepo(db DBTX) *AuditRepo {
	return &AuditRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *AuditRepo) WithTx(tx DBTX) *AuditRepo {
	return &AuditRepo{db: tx}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, actor_id, action, entity_type, entity_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, e.ActorID, e.Action, e.EntityType, e.EntityID,
		encodeMetadata(e.Metadata), created)
	return mapDBError(err)
}

// Prune deletes entries created before the cutoff and returns the count.
func (r *AuditRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM activity_logs WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapDBError(err)
	}
	return n, nil
}

// List returns entries matching the filter, newest first. A zero Limit
// defaults to 100.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	where := []string{"1 = 1"}
	var args []any
	if filter.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, action, entity_type, entity_id, metadata, created_at
		 FROM activity_logs WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC LIMIT ?`,
		args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e        domain.AuditEntry
			metadata string
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&metadata, &e.CreatedAt); err != nil {
			return nil, mapDBError(err)
		}
		e.Metadata = decodeMetadata(metadata)
		entries = append(entries, e)
	}
	return entries, mapDBError(rows.Err())
}
