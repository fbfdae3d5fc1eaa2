package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"expertmarket/internal/domain"
)

type ApplicationRepo struct {
	db DBTX
}

func NewApplicationRepo(db DBTX) *ApplicationRepo {
	return &ApplicationRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *ApplicationRepo) WithTx(tx DBTX) *ApplicationRepo {
	return &ApplicationRepo{db: tx}
}

const applicationColumns = `id, owner_id, status, skills, domains, languages,
	reviewer_id, reviewed_at, rejection_reason, created_at, updated_at`

func (r *ApplicationRepo) Create(ctx context.Context, a *domain.Application) (*domain.Application, error) {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := a.Status
	if status == "" {
		status = domain.ApplicationDraft
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expert_applications
		   (id, owner_id, status, skills, domains, languages, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, a.OwnerID, string(status),
		encodeList(a.Skills), encodeList(a.Domains), encodeList(a.Languages),
		now, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *ApplicationRepo) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM expert_applications WHERE id = ?`, id)
	return scanApplication(row)
}

func (r *ApplicationRepo) GetByOwner(ctx context.Context, ownerID string) (*domain.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM expert_applications WHERE owner_id = ?`, ownerID)
	return scanApplication(row)
}

func (r *ApplicationRepo) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]domain.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM expert_applications WHERE status = ? ORDER BY updated_at`,
		string(status))
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var apps []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, mapDBError(rows.Err())
}

// SetStatus updates the lifecycle fields in one statement. Reviewer and
// reason are cleared when nil.
func (r *ApplicationRepo) SetStatus(ctx context.Context, id string, status domain.ApplicationStatus, reviewerID, reason *string) error {
	now := time.Now().UTC()
	var reviewedAt sql.NullTime
	if reviewerID != nil {
		reviewedAt = sql.NullTime{Time: now, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expert_applications
		 SET status = ?, reviewer_id = ?, reviewed_at = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ?`,
		string(status), nullString(reviewerID), reviewedAt, nullString(reason), now, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("application %s not found", id)
	}
	return nil
}

// Submit moves the application to pending and writes the profile lists in
// one statement, so the lists land atomically with the status change.
func (r *ApplicationRepo) Submit(ctx context.Context, id string, skills, domains, languages []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expert_applications
		 SET status = ?, skills = ?, domains = ?, languages = ?, updated_at = ?
		 WHERE id = ?`,
		string(domain.ApplicationPending),
		encodeList(skills), encodeList(domains), encodeList(languages),
		time.Now().UTC(), id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("application %s not found", id)
	}
	return nil
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	var (
		a          domain.Application
		status     string
		skills     string
		domains    string
		languages  string
		reviewerID sql.NullString
		reviewedAt sql.NullTime
		reason     sql.NullString
	)
	err := row.Scan(&a.ID, &a.OwnerID, &status, &skills, &domains, &languages,
		&reviewerID, &reviewedAt, &reason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	a.Status = domain.ApplicationStatus(status)
	a.Skills = decodeList(skills)
	a.Domains = decodeList(domains)
	a.Languages = decodeList(languages)
	a.ReviewerID = stringPtr(reviewerID)
	a.ReviewedAt = timePtr(reviewedAt)
	a.RejectionReason = stringPtr(reason)
	return &a, nil
}
