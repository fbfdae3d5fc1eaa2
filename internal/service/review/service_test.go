package review

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertmarket/internal/domain"
	"expertmarket/internal/policy"
	"expertmarket/internal/testutil"
	"expertmarket/internal/token"
)

func newTestService(t *testing.T) (*Service, *testutil.FakeStores, *testutil.MockObjectStore) {
	t.Helper()
	caps, err := token.NewCapabilityService("cap-secret", 10*time.Minute)
	require.NoError(t, err)
	stores := &testutil.FakeStores{}
	objects := &testutil.MockObjectStore{}
	return NewService(stores, stores, policy.New(), caps, objects, nil), stores, objects
}

func asUser(id string, role domain.Role) context.Context {
	return domain.WithPrincipal(context.Background(), domain.Principal{
		UserID: id, Email: id + "@example.com", Role: role,
	})
}

func existingApplication(stores *testutil.FakeStores, app *domain.Application) {
	stores.ApplicationsRepo.GetByOwnerFn = func(_ context.Context, ownerID string) (*domain.Application, error) {
		if app != nil && app.OwnerID == ownerID {
			return app, nil
		}
		return nil, domain.ErrNotFound("no application for %s", ownerID)
	}
}

func validUpload() UploadRequest {
	return UploadRequest{
		DocumentType: "certificate",
		FileName:     "cert.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    1024,
		Body:         strings.NewReader(strings.Repeat("x", 1024)),
	}
}

func TestUploadDocumentStoresBlobAndAudits(t *testing.T) {
	svc, stores, objects := newTestService(t)
	existingApplication(stores, &domain.Application{ID: "app1", OwnerID: "owner", Status: domain.ApplicationDraft})
	stores.DocumentsRepo.InsertFn = func(_ context.Context, d *domain.Document) (*domain.Document, error) {
		d.ID = "doc1"
		return d, nil
	}

	doc, err := svc.UploadDocument(asUser("owner", domain.RoleCustomer), validUpload())
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDraft, doc.ApplicationStatus)
	assert.Equal(t, domain.ReviewPending, doc.ReviewStatus)
	require.NotNil(t, doc.ApplicationID)
	assert.Equal(t, "app1", *doc.ApplicationID)

	require.Len(t, objects.Objects, 1)
	assert.Contains(t, doc.StorageKey, "documents/owner/")
	assert.True(t, stores.AuditRepo.HasAction(domain.ActionUploadDocument))
}

func TestUploadDocumentCreatesDraftApplication(t *testing.T) {
	svc, stores, _ := newTestService(t)
	existingApplication(stores, nil)
	stores.ApplicationsRepo.CreateFn = func(_ context.Context, a *domain.Application) (*domain.Application, error) {
		assert.Equal(t, domain.ApplicationDraft, a.Status)
		a.ID = "app-new"
		return a, nil
	}
	stores.DocumentsRepo.InsertFn = func(_ context.Context, d *domain.Document) (*domain.Document, error) {
		d.ID = "doc1"
		return d, nil
	}

	doc, err := svc.UploadDocument(asUser("owner", domain.RoleCustomer), validUpload())
	require.NoError(t, err)
	assert.Equal(t, "app-new", *doc.ApplicationID)
}

func TestUploadDocumentRejectsOversizeAndBadType(t *testing.T) {
	svc, _, objects := newTestService(t)
	ctx := asUser("owner", domain.RoleCustomer)

	big := validUpload()
	big.SizeBytes = domain.MaxDocumentSize + 1
	_, err := svc.UploadDocument(ctx, big)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	exe := validUpload()
	exe.ContentType = "application/x-msdownload"
	_, err = svc.UploadDocument(ctx, exe)
	assert.ErrorAs(t, err, &verr)

	assert.Empty(t, objects.Objects) // nothing reached storage
}

func TestUploadDocumentCleansBlobOnInsertFailure(t *testing.T) {
	svc, stores, objects := newTestService(t)
	existingApplication(stores, &domain.Application{ID: "app1", OwnerID: "owner", Status: domain.ApplicationDraft})
	stores.DocumentsRepo.InsertFn = func(_ context.Context, d *domain.Document) (*domain.Document, error) {
		return nil, domain.ErrStorage(errors.New("disk full"), "insert document")
	}

	_, err := svc.UploadDocument(asUser("owner", domain.RoleCustomer), validUpload())
	require.Error(t, err)
	require.Len(t, objects.Deleted, 1)
	assert.Empty(t, objects.Objects)
}

func TestGetDocumentDraftInvisibleToReviewer(t *testing.T) {
	svc, stores, _ := newTestService(t)
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{ID: id, OwnerID: "owner", ApplicationStatus: domain.DocumentDraft}, nil
	}

	_, err := svc.GetDocument(asUser("analyst", domain.RoleAnalyst), "doc1")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf) // draft reads as absent, not forbidden
}

func TestGetDocumentOwnerSeesOwnDraft(t *testing.T) {
	svc, stores, _ := newTestService(t)
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{ID: id, OwnerID: "owner", ApplicationStatus: domain.DocumentDraft}, nil
	}

	doc, err := svc.GetDocument(asUser("owner", domain.RoleCustomer), "doc1")
	require.NoError(t, err)
	assert.Equal(t, "doc1", doc.ID)
}

func TestListDocumentsReviewerForcesSubmittedOnly(t *testing.T) {
	svc, stores, _ := newTestService(t)
	var gotFilter domain.DocumentFilter
	stores.DocumentsRepo.ListFn = func(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
		gotFilter = filter
		return nil, nil
	}

	_, err := svc.ListDocuments(asUser("admin", domain.RoleAdmin), "owner")
	require.NoError(t, err)
	assert.True(t, gotFilter.SubmittedOnly)
	assert.Equal(t, "owner", gotFilter.OwnerID)
}

func TestListDocumentsStrangerDenied(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ListDocuments(asUser("other", domain.RoleCustomer), "owner")
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestDeleteDocumentOwnerBlockedAfterReview(t *testing.T) {
	svc, stores, _ := newTestService(t)
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{
			ID: id, OwnerID: "owner",
			ReviewStatus:      domain.ReviewApproved,
			ApplicationStatus: domain.DocumentSubmitted,
		}, nil
	}

	err := svc.DeleteDocument(asUser("owner", domain.RoleCustomer), "doc1")
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestDeleteDocumentRemovesBlob(t *testing.T) {
	svc, stores, objects := newTestService(t)
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{
			ID: id, OwnerID: "owner", StorageKey: "documents/owner/k1",
			ReviewStatus:      domain.ReviewPending,
			ApplicationStatus: domain.DocumentDraft,
		}, nil
	}

	err := svc.DeleteDocument(asUser("owner", domain.RoleCustomer), "doc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"documents/owner/k1"}, objects.Deleted)
	assert.True(t, stores.AuditRepo.HasAction(domain.ActionDeleteDocument))
}

func TestReviewDocumentDraftReadsAsNotFound(t *testing.T) {
	svc, stores, _ := newTestService(t)
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{ID: id, OwnerID: "owner", ApplicationStatus: domain.DocumentDraft}, nil
	}

	_, err := svc.ReviewDocument(asUser("admin", domain.RoleAdmin), "doc1", domain.ReviewApproved, nil)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestReviewDocumentApprove(t *testing.T) {
	svc, stores, _ := newTestService(t)
	status := domain.ReviewPending
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{
			ID: id, OwnerID: "owner",
			ReviewStatus:      status,
			ApplicationStatus: domain.DocumentSubmitted,
		}, nil
	}
	stores.DocumentsRepo.SetReviewFn = func(_ context.Context, _ string, s domain.ReviewStatus, _ *string) error {
		status = s
		return nil
	}

	doc, err := svc.ReviewDocument(asUser("analyst", domain.RoleAnalyst), "doc1", domain.ReviewApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewApproved, doc.ReviewStatus)
	assert.True(t, stores.AuditRepo.HasAction(domain.ActionReviewDocument))
}

func TestReviewDocumentBadStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ReviewDocument(asUser("admin", domain.RoleAdmin), "doc1", domain.ReviewPending, nil)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGrantAndStreamDocumentLink(t *testing.T) {
	svc, stores, objects := newTestService(t)
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{
			ID: id, OwnerID: "owner", StorageKey: "documents/owner/k1",
			ApplicationStatus: domain.DocumentSubmitted,
		}, nil
	}
	ctx := context.Background()
	require.NoError(t, objects.Put(ctx, "documents/owner/k1", strings.NewReader("pdf-bytes"), 9, "application/pdf", nil))

	grant, err := svc.GrantDocumentLink(asUser("owner", domain.RoleCustomer), "doc1")
	require.NoError(t, err)
	assert.True(t, stores.AuditRepo.HasAction(domain.ActionGrantDocumentLink))

	body, info, err := svc.StreamDocument(ctx, "doc1", grant.Token)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))
	assert.Equal(t, "application/pdf", info.ContentType)
}

func TestStreamDocumentRejectsTamperedToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, _, err := svc.StreamDocument(context.Background(), "", "not-a-token")
	var autherr *domain.AuthenticationError
	assert.ErrorAs(t, err, &autherr)
}

func TestStreamDocumentRejectsMismatchedDocument(t *testing.T) {
	svc, stores, objects := newTestService(t)
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		if id == "other" {
			return &domain.Document{
				ID: id, OwnerID: "owner", StorageKey: "documents/owner/other-key",
				ApplicationStatus: domain.DocumentSubmitted,
			}, nil
		}
		return &domain.Document{
			ID: id, OwnerID: "owner", StorageKey: "documents/owner/k1",
			ApplicationStatus: domain.DocumentSubmitted,
		}, nil
	}
	ctx := context.Background()
	require.NoError(t, objects.Put(ctx, "documents/owner/k1", strings.NewReader("pdf-bytes"), 9, "application/pdf", nil))

	grant, err := svc.GrantDocumentLink(asUser("owner", domain.RoleCustomer), "doc1")
	require.NoError(t, err)

	// A token minted for one document does not open another.
	_, _, err = svc.StreamDocument(ctx, "other", grant.Token)
	var autherr *domain.AuthenticationError
	assert.ErrorAs(t, err, &autherr)
}

func TestStreamDocumentHidesMissingBlob(t *testing.T) {
	svc, stores, _ := newTestService(t)
	stores.DocumentsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Document, error) {
		return &domain.Document{
			ID: id, OwnerID: "owner", StorageKey: "documents/owner/gone",
			ApplicationStatus: domain.DocumentSubmitted,
		}, nil
	}

	grant, err := svc.GrantDocumentLink(asUser("owner", domain.RoleCustomer), "doc1")
	require.NoError(t, err)

	// Nothing was stored under the key; the caller cannot tell that apart
	// from a bad token.
	_, _, err = svc.StreamDocument(context.Background(), "doc1", grant.Token)
	var autherr *domain.AuthenticationError
	assert.ErrorAs(t, err, &autherr)
}

func TestGetOrCreateApplicationLazyDraft(t *testing.T) {
	svc, stores, _ := newTestService(t)
	existingApplication(stores, nil)
	stores.ApplicationsRepo.CreateFn = func(_ context.Context, a *domain.Application) (*domain.Application, error) {
		a.ID = "app1"
		return a, nil
	}

	app, err := svc.GetOrCreateApplication(asUser("owner", domain.RoleCustomer))
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationDraft, app.Status)
	assert.Equal(t, "owner", app.OwnerID)
}

func TestSubmitApplicationMovesDraftsAndCounts(t *testing.T) {
	svc, stores, _ := newTestService(t)
	existingApplication(stores, &domain.Application{ID: "app1", OwnerID: "owner", Status: domain.ApplicationDraft})
	stores.DocumentsRepo.SubmitDraftsFn = func(_ context.Context, ownerID string) (int64, error) {
		assert.Equal(t, "owner", ownerID)
		return 3, nil
	}

	res, err := svc.SubmitApplication(asUser("owner", domain.RoleCustomer), []string{"go"}, []string{"infra"}, []string{"en"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.DocumentsSubmitted)
	assert.Equal(t, domain.ApplicationPending, res.Application.Status)
	assert.Equal(t, domain.ApplicationPending, stores.ApplicationsRepo.StatusChanges["app1"])

	// The profile lists must reach the store, not just the response.
	submitted := stores.ApplicationsRepo.Submissions["app1"]
	assert.Equal(t, []string{"go"}, submitted.Skills)
	assert.Equal(t, []string{"infra"}, submitted.Domains)
	assert.Equal(t, []string{"en"}, submitted.Languages)

	entry := stores.AuditRepo.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, domain.ActionSubmitApplication, entry.Action)
	assert.Equal(t, "3", entry.Metadata["documentsSubmitted"])
}

func TestSubmitApplicationConflictWhilePending(t *testing.T) {
	svc, stores, _ := newTestService(t)
	existingApplication(stores, &domain.Application{ID: "app1", OwnerID: "owner", Status: domain.ApplicationPending})

	_, err := svc.SubmitApplication(asUser("owner", domain.RoleCustomer), nil, nil, nil)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestSubmitApplicationConflictWhenApproved(t *testing.T) {
	svc, stores, _ := newTestService(t)
	existingApplication(stores, &domain.Application{ID: "app1", OwnerID: "owner", Status: domain.ApplicationApproved})

	_, err := svc.SubmitApplication(asUser("owner", domain.RoleCustomer), nil, nil, nil)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestListPendingApplicationsGate(t *testing.T) {
	svc, stores, _ := newTestService(t)
	stores.ApplicationsRepo.ListByStatusFn = func(_ context.Context, status domain.ApplicationStatus) ([]domain.Application, error) {
		assert.Equal(t, domain.ApplicationPending, status)
		return []domain.Application{{ID: "app1"}}, nil
	}

	apps, err := svc.ListPendingApplications(asUser("admin", domain.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	_, err = svc.ListPendingApplications(asUser("analyst", domain.RoleAnalyst))
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied) // analysts review documents, not applications
}

func TestApproveApplicationPromotesOwner(t *testing.T) {
	svc, stores, _ := newTestService(t)
	status := domain.ApplicationPending
	stores.ApplicationsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Application, error) {
		return &domain.Application{ID: id, OwnerID: "owner", Status: status}, nil
	}
	stores.ApplicationsRepo.SetStatusFn = func(_ context.Context, _ string, s domain.ApplicationStatus, reviewerID, _ *string) error {
		status = s
		require.NotNil(t, reviewerID)
		assert.Equal(t, "admin", *reviewerID)
		return nil
	}

	app, err := svc.ApproveApplication(asUser("admin", domain.RoleAdmin), "app1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, app.Status)
	assert.Equal(t, domain.RoleExpert, stores.UsersRepo.RoleChanges["owner"])
	assert.True(t, stores.AuditRepo.HasAction(domain.ActionApproveExpert))
}

func TestApproveApplicationNotPending(t *testing.T) {
	svc, stores, _ := newTestService(t)
	stores.ApplicationsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Application, error) {
		return &domain.Application{ID: id, OwnerID: "owner", Status: domain.ApplicationDraft}, nil
	}

	_, err := svc.ApproveApplication(asUser("admin", domain.RoleAdmin), "app1")
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Empty(t, stores.UsersRepo.RoleChanges)
}

func TestRejectApplicationRequiresReason(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.RejectApplication(asUser("admin", domain.RoleAdmin), "app1", "")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRejectApplicationRecordsReason(t *testing.T) {
	svc, stores, _ := newTestService(t)
	status := domain.ApplicationPending
	var gotReason *string
	stores.ApplicationsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Application, error) {
		return &domain.Application{ID: id, OwnerID: "owner", Status: status}, nil
	}
	stores.ApplicationsRepo.SetStatusFn = func(_ context.Context, _ string, s domain.ApplicationStatus, _, reason *string) error {
		status = s
		gotReason = reason
		return nil
	}

	app, err := svc.RejectApplication(asUser("admin", domain.RoleAdmin), "app1", "incomplete documents")
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationRejected, app.Status)
	require.NotNil(t, gotReason)
	assert.Equal(t, "incomplete documents", *gotReason)
	assert.True(t, stores.AuditRepo.HasAction(domain.ActionRejectApplication))
}

func TestRevokeExpertOnlyFromApproved(t *testing.T) {
	svc, stores, _ := newTestService(t)
	stores.ApplicationsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Application, error) {
		return &domain.Application{ID: id, OwnerID: "owner", Status: domain.ApplicationPending}, nil
	}

	_, err := svc.RevokeExpert(asUser("admin", domain.RoleAdmin), "app1", domain.ApplicationReview{})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.EqualError(t, err, "can only remove approved experts")
}

func TestRevokeExpertDemotesToCustomer(t *testing.T) {
	svc, stores, _ := newTestService(t)
	status := domain.ApplicationApproved
	stores.ApplicationsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Application, error) {
		return &domain.Application{ID: id, OwnerID: "owner", Status: status}, nil
	}
	stores.ApplicationsRepo.SetStatusFn = func(_ context.Context, _ string, s domain.ApplicationStatus, _, _ *string) error {
		status = s
		return nil
	}

	app, err := svc.RevokeExpert(asUser("admin", domain.RoleAdmin), "app1", domain.ApplicationReview{})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationRevoked, app.Status)
	assert.Equal(t, domain.RoleCustomer, stores.UsersRepo.RoleChanges["owner"])
	assert.True(t, stores.AuditRepo.HasAction(domain.ActionRemoveExpert))
}

func TestRevokeExpertPermanentBanSuspends(t *testing.T) {
	svc, stores, _ := newTestService(t)
	status := domain.ApplicationApproved
	stores.ApplicationsRepo.GetByIDFn = func(_ context.Context, id string) (*domain.Application, error) {
		return &domain.Application{ID: id, OwnerID: "owner", Status: status}, nil
	}
	stores.ApplicationsRepo.SetStatusFn = func(_ context.Context, _ string, s domain.ApplicationStatus, _, _ *string) error {
		status = s
		return nil
	}

	_, err := svc.RevokeExpert(asUser("sa", domain.RoleSuperadmin), "app1", domain.ApplicationReview{
		Reason: "fraud", PermanentBan: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuspended, stores.UsersRepo.RoleChanges["owner"])
	entry := stores.AuditRepo.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "suspended", entry.Metadata["newRole"])
}
