package domain

import (
	"context"
	"io"
	"time"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// List returns users whose role is in visibleRoles, further narrowed by
	// the filter. visibleRoles must never be empty for a non-error call.
	List(ctx context.Context, visibleRoles []Role, filter UserFilter) ([]User, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error)
	SetRole(ctx context.Context, id string, role Role) error
	Delete(ctx context.Context, id string) error
}

// ApplicationRepository persists expert applications.
type ApplicationRepository interface {
	Create(ctx context.Context, a *Application) (*Application, error)
	GetByID(ctx context.Context, id string) (*Application, error)
	GetByOwner(ctx context.Context, ownerID string) (*Application, error)
	ListByStatus(ctx context.Context, status ApplicationStatus) ([]Application, error)
	// SetStatus updates the lifecycle fields in one statement.
	SetStatus(ctx context.Context, id string, status ApplicationStatus, reviewerID, reason *string) error
	// Submit moves the application to pending and stores the profile
	// lists in the same statement.
	Submit(ctx context.Context, id string, skills, domains, languages []string) error
}

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Insert(ctx context.Context, d *Document) (*Document, error)
	GetByID(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, filter DocumentFilter) ([]Document, error)
	SetReview(ctx context.Context, id string, status ReviewStatus, note *string) error
	// SubmitDrafts transitions all of one owner's draft documents to
	// submitted in a single statement and returns the count affected.
	SubmitDrafts(ctx context.Context, ownerID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// AuditRepository persists activity log entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	// Prune deletes entries created before the cutoff and returns the count.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// AuditReader serves audit trail queries. It is split from AuditRepository
// so listings can run on the read pool while writes stay transactional.
type AuditReader interface {
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// Stores groups the repositories that participate in a transaction.
type Stores interface {
	Users() UserRepository
	Applications() ApplicationRepository
	Documents() DocumentRepository
	Audit() AuditRepository
}

// TxRunner executes fn against transaction-bound stores. A non-nil error
// from fn rolls the transaction back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	ContentType   string
	ContentLength int64
}

// ObjectStore is the key-addressed blob store collaborator. The core issues
// put/get/delete/head calls and does not own storage-engine behavior.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Head(ctx context.Context, key string) (*ObjectInfo, error)
}
