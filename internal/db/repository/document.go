package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"expertmarket/internal/domain"
)

type DocumentRepo struct {
	db DBTX
}

func NewDocumentRepo(db DBTX) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *DocumentRepo) WithTx(tx DBTX) *DocumentRepo {
	return &DocumentRepo{db: tx}
}

const documentColumns = `id, owner_id, application_id, document_type, file_name,
	content_type, size_bytes, storage_key, review_status, application_status,
	review_note, created_at, updated_at`

func (r *DocumentRepo) Insert(ctx context.Context, d *domain.Document) (*domain.Document, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	review := d.ReviewStatus
	if review == "" {
		review = domain.ReviewPending
	}
	appStatus := d.ApplicationStatus
	if appStatus == "" {
		appStatus = domain.DocumentDraft
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expert_documents
		   (id, owner_id, application_id, document_type, file_name, content_type,
		    size_bytes, storage_key, review_status, application_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, d.OwnerID, nullString(d.ApplicationID), d.DocumentType, d.FileName,
		d.ContentType, d.SizeBytes, d.StorageKey, string(review), string(appStatus),
		now, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM expert_documents WHERE id = ?`, id)
	return scanDocument(row)
}

// List returns documents matching the filter. SubmittedOnly hides drafts,
// which is mandatory for reviewer queries.
func (r *DocumentRepo) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	var (
		where []string
		args  []any
	)
	if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.SubmittedOnly {
		where = append(where, "application_status = ?")
		args = append(args, string(domain.DocumentSubmitted))
	}
	q := `SELECT ` + documentColumns + ` FROM expert_documents`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, mapDBError(rows.Err())
}

func (r *DocumentRepo) SetReview(ctx context.Context, id string, status domain.ReviewStatus, note *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expert_documents SET review_status = ?, review_note = ?, updated_at = ? WHERE id = ?`,
		string(status), nullString(note), time.Now().UTC(), id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("document %s not found", id)
	}
	return nil
}

// SubmitDrafts transitions all of one owner's draft documents to submitted
// in a single statement and returns the count affected.
func (r *DocumentRepo) SubmitDrafts(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expert_documents SET application_status = ?, updated_at = ?
		 WHERE owner_id = ? AND application_status = ?`,
		string(domain.DocumentSubmitted), time.Now().UTC(),
		ownerID, string(domain.DocumentDraft))
	if err != nil {
		return 0, mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapDBError(err)
	}
	return n, nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expert_documents WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("document %s not found", id)
	}
	return nil
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		d         domain.Document
		appID     sql.NullString
		review    string
		appStatus string
		note      sql.NullString
	)
	err := row.Scan(&d.ID, &d.OwnerID, &appID, &d.DocumentType, &d.FileName,
		&d.ContentType, &d.SizeBytes, &d.StorageKey, &review, &appStatus,
		&note, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	d.ApplicationID = stringPtr(appID)
	d.ReviewStatus = domain.ReviewStatus(review)
	d.ApplicationStatus = domain.DocumentStatus(appStatus)
	d.ReviewNote = stringPtr(note)
	return &d, nil
}
