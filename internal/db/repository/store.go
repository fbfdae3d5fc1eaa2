package repository

import (
	"context"
	"database/sql"
	"fmt"

	"expertmarket/internal/domain"
)

// Store bundles the repositories over one pool and runs transactions.
// It implements domain.Stores and domain.TxRunner.
type Store struct {
	db           *sql.DB
	users        *UserRepo
	applications *ApplicationRepo
	documents    *DocumentRepo
	audit        *AuditRepo
	auditReader  *AuditRepo
}

// NewStore creates a Store. Mutations and read-after-write queries run on
// the write pool; audit trail listings run on the read pool. Passing the
// same handle for both is fine for tests and CLI use.
func NewStore(writeDB, readDB *sql.DB) *Store {
	if readDB == nil {
		readDB = writeDB
	}
	return &Store{
		db:           writeDB,
		users:        NewUserRepo(writeDB),
		applications: NewApplicationRepo(writeDB),
		documents:    NewDocumentRepo(writeDB),
		audit:        NewAuditRepo(writeDB),
		auditReader:  NewAuditRepo(readDB),
	}
}

func (s *Store) Users() domain.UserRepository               { return s.users }
func (s *Store) Applications() domain.ApplicationRepository { return s.applications }
func (s *Store) Documents() domain.DocumentRepository       { return s.documents }
func (s *Store) Audit() domain.AuditRepository              { return s.audit }

// AuditLog returns the read-pool audit trail reader.
func (s *Store) AuditLog() domain.AuditReader { return s.auditReader }

// txStores is the transaction-bound repository set handed to InTx callbacks.
type txStores struct {
	users        *UserRepo
	applications *ApplicationRepo
	documents    *DocumentRepo
	audit        *AuditRepo
}

func (t *txStores) Users() domain.UserRepository               { return t.users }
func (t *txStores) Applications() domain.ApplicationRepository { return t.applications }
func (t *txStores) Documents() domain.DocumentRepository       { return t.documents }
func (t *txStores) Audit() domain.AuditRepository              { return t.audit }

// InTx runs fn against transaction-bound stores. A non-nil error from fn
// rolls everything back, so a state mutation and its audit record either
// both land or neither does.
func (s *Store) InTx(ctx context.Context, fn func(st domain.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrStorage(err, "begin transaction")
	}

	stores := &txStores{
		users:        s.users.WithTx(tx),
		applications: s.applications.WithTx(tx),
		documents:    s.documents.WithTx(tx),
		audit:        s.audit.WithTx(tx),
	}

	if err := fn(stores); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrStorage(err, "commit transaction")
	}
	return nil
}
