// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"bytes"
	"context"
	"io"
	"time"

	"expertmarket/internal/domain"
)

// === Audit Repository Mock ===

// MockAuditRepo implements domain.AuditRepository for testing.
type MockAuditRepo struct {
	InsertFn func(ctx context.Context, e *domain.AuditEntry) error
	PruneFn  func(ctx context.Context, before time.Time) (int64, error)
	ListFn   func(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error)
	Entries  []*domain.AuditEntry // collected entries for assertions
}

// Insert implements the interface method for testing.
func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.Entries = append(m.Entries, e)
	return nil
}

// Prune implements the interface method for testing.
func (m *MockAuditRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	if m.PruneFn != nil {
		return m.PruneFn(ctx, before)
	}
	return 0, nil
}

// List implements domain.AuditReader. Without a ListFn it returns the
// collected entries in insertion order.
func (m *MockAuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	out := make([]domain.AuditEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, *e)
	}
	return out, nil
}

// LastEntry returns the last collected audit entry, or nil if none.
func (m *MockAuditRepo) LastEntry() *domain.AuditEntry {
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

// HasAction returns true if any collected entry has the given action.
func (m *MockAuditRepo) HasAction(action string) bool {
	for _, e := range m.Entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

// === User Repository Mock ===

// MockUserRepo implements domain.UserRepository for testing.
type MockUserRepo struct {
	CreateFn     func(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByIDFn    func(ctx context.Context, id string) (*domain.User, error)
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	ListFn       func(ctx context.Context, visibleRoles []domain.Role, filter domain.UserFilter) ([]domain.User, error)
	UpdateFn     func(ctx context.Context, id string, req domain.UpdateUserRequest) (*domain.User, error)
	SetRoleFn    func(ctx context.Context, id string, role domain.Role) error
	DeleteFn     func(ctx context.Context, id string) error

	RoleChanges map[string]domain.Role // id -> last role set via SetRole
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	panic("unexpected call to MockUserRepo.Create")
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockUserRepo.GetByID")
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	panic("unexpected call to MockUserRepo.GetByEmail")
}

func (m *MockUserRepo) List(ctx context.Context, visibleRoles []domain.Role, filter domain.UserFilter) ([]domain.User, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, visibleRoles, filter)
	}
	panic("unexpected call to MockUserRepo.List")
}

func (m *MockUserRepo) Update(ctx context.Context, id string, req domain.UpdateUserRequest) (*domain.User, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	panic("unexpected call to MockUserRepo.Update")
}

func (m *MockUserRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	if m.RoleChanges == nil {
		m.RoleChanges = map[string]domain.Role{}
	}
	m.RoleChanges[id] = role
	if m.SetRoleFn != nil {
		return m.SetRoleFn(ctx, id, role)
	}
	return nil
}

func (m *MockUserRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to MockUserRepo.Delete")
}

// === Application Repository Mock ===

// MockApplicationRepo implements domain.ApplicationRepository for testing.
type MockApplicationRepo struct {
	CreateFn       func(ctx context.Context, a *domain.Application) (*domain.Application, error)
	GetByIDFn      func(ctx context.Context, id string) (*domain.Application, error)
	GetByOwnerFn   func(ctx context.Context, ownerID string) (*domain.Application, error)
	ListByStatusFn func(ctx context.Context, status domain.ApplicationStatus) ([]domain.Application, error)
	SetStatusFn    func(ctx context.Context, id string, status domain.ApplicationStatus, reviewerID, reason *string) error
	SubmitFn       func(ctx context.Context, id string, skills, domains, languages []string) error

	StatusChanges map[string]domain.ApplicationStatus // id -> last status set
	Submissions   map[string]SubmittedProfile         // id -> profile lists from Submit
}

// SubmittedProfile records the list fields a Submit call carried.
type SubmittedProfile struct {
	Skills    []string
	Domains   []string
	Languages []string
}

func (m *MockApplicationRepo) Create(ctx context.Context, a *domain.Application) (*domain.Application, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	panic("unexpected call to MockApplicationRepo.Create")
}

func (m *MockApplicationRepo) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockApplicationRepo.GetByID")
}

func (m *MockApplicationRepo) GetByOwner(ctx context.Context, ownerID string) (*domain.Application, error) {
	if m.GetByOwnerFn != nil {
		return m.GetByOwnerFn(ctx, ownerID)
	}
	panic("unexpected call to MockApplicationRepo.GetByOwner")
}

func (m *MockApplicationRepo) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]domain.Application, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status)
	}
	panic("unexpected call to MockApplicationRepo.ListByStatus")
}

func (m *MockApplicationRepo) SetStatus(ctx context.Context, id string, status domain.ApplicationStatus, reviewerID, reason *string) error {
	if m.StatusChanges == nil {
		m.StatusChanges = map[string]domain.ApplicationStatus{}
	}
	m.StatusChanges[id] = status
	if m.SetStatusFn != nil {
		return m.SetStatusFn(ctx, id, status, reviewerID, reason)
	}
	return nil
}

func (m *MockApplicationRepo) Submit(ctx context.Context, id string, skills, domains, languages []string) error {
	if m.StatusChanges == nil {
		m.StatusChanges = map[string]domain.ApplicationStatus{}
	}
	m.StatusChanges[id] = domain.ApplicationPending
	if m.Submissions == nil {
		m.Submissions = map[string]SubmittedProfile{}
	}
	m.Submissions[id] = SubmittedProfile{Skills: skills, Domains: domains, Languages: languages}
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, id, skills, domains, languages)
	}
	return nil
}

// === Document Repository Mock ===

// MockDocumentRepo implements domain.DocumentRepository for testing.
type MockDocumentRepo struct {
	InsertFn       func(ctx context.Context, d *domain.Document) (*domain.Document, error)
	GetByIDFn      func(ctx context.Context, id string) (*domain.Document, error)
	ListFn         func(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	SetReviewFn    func(ctx context.Context, id string, status domain.ReviewStatus, note *string) error
	SubmitDraftsFn func(ctx context.Context, ownerID string) (int64, error)
	DeleteFn       func(ctx context.Context, id string) error
}

func (m *MockDocumentRepo) Insert(ctx context.Context, d *domain.Document) (*domain.Document, error) {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, d)
	}
	panic("unexpected call to MockDocumentRepo.Insert")
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockDocumentRepo.GetByID")
}

func (m *MockDocumentRepo) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	panic("unexpected call to MockDocumentRepo.List")
}

func (m *MockDocumentRepo) SetReview(ctx context.Context, id string, status domain.ReviewStatus, note *string) error {
	if m.SetReviewFn != nil {
		return m.SetReviewFn(ctx, id, status, note)
	}
	return nil
}

func (m *MockDocumentRepo) SubmitDrafts(ctx context.Context, ownerID string) (int64, error) {
	if m.SubmitDraftsFn != nil {
		return m.SubmitDraftsFn(ctx, ownerID)
	}
	panic("unexpected call to MockDocumentRepo.SubmitDrafts")
}

func (m *MockDocumentRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// === Stores / TxRunner Fake ===

// FakeStores bundles the repository mocks and satisfies both domain.Stores
// and domain.TxRunner. InTx simply invokes the callback against the same
// mocks — transactional semantics are covered by the repository tests.
type FakeStores struct {
	UsersRepo        MockUserRepo
	ApplicationsRepo MockApplicationRepo
	DocumentsRepo    MockDocumentRepo
	AuditRepo        MockAuditRepo

	TxErr error // returned by InTx without invoking fn, when set
}

func (f *FakeStores) Users() domain.UserRepository               { return &f.UsersRepo }
func (f *FakeStores) Applications() domain.ApplicationRepository { return &f.ApplicationsRepo }
func (f *FakeStores) Documents() domain.DocumentRepository       { return &f.DocumentsRepo }
func (f *FakeStores) Audit() domain.AuditRepository              { return &f.AuditRepo }

func (f *FakeStores) InTx(_ context.Context, fn func(s domain.Stores) error) error {
	if f.TxErr != nil {
		return f.TxErr
	}
	return fn(f)
}

// === Object Store Mock ===

// storedObject is a blob captured by MockObjectStore.Put.
type storedObject struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// MockObjectStore implements domain.ObjectStore in memory.
type MockObjectStore struct {
	PutFn    func(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error
	GetFn    func(ctx context.Context, key string) (io.ReadCloser, *domain.ObjectInfo, error)
	DeleteFn func(ctx context.Context, key string) error
	HeadFn   func(ctx context.Context, key string) (*domain.ObjectInfo, error)

	Objects map[string]storedObject
	Deleted []string
}

func (m *MockObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, key, body, size, contentType, metadata)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if m.Objects == nil {
		m.Objects = map[string]storedObject{}
	}
	m.Objects[key] = storedObject{Data: data, ContentType: contentType, Metadata: metadata}
	return nil
}

func (m *MockObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, *domain.ObjectInfo, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	obj, ok := m.Objects[key]
	if !ok {
		return nil, nil, domain.ErrNotFound("object %q not found", key)
	}
	info := &domain.ObjectInfo{ContentType: obj.ContentType, ContentLength: int64(len(obj.Data))}
	return io.NopCloser(bytes.NewReader(obj.Data)), info, nil
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	m.Deleted = append(m.Deleted, key)
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	delete(m.Objects, key)
	return nil
}

func (m *MockObjectStore) Head(ctx context.Context, key string) (*domain.ObjectInfo, error) {
	if m.HeadFn != nil {
		return m.HeadFn(ctx, key)
	}
	obj, ok := m.Objects[key]
	if !ok {
		return nil, domain.ErrNotFound("object %q not found", key)
	}
	return &domain.ObjectInfo{ContentType: obj.ContentType, ContentLength: int64(len(obj.Data))}, nil
}
