// Package review implements the expert application and document lifecycles:
// upload, bulk submit, reviewer decisions, and the capability-token link flow
// for streaming stored files.
package review

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"expertmarket/internal/domain"
	"expertmarket/internal/policy"
	"expertmarket/internal/token"
)

// Service coordinates repositories, the object store, and the policy engine.
// Mutations and their audit rows commit in one transaction; blob writes
// happen before the transaction and are compensated on failure.
type Service struct {
	stores  domain.Stores
	tx      domain.TxRunner
	policy  *policy.Engine
	caps    *token.CapabilityService
	objects domain.ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates the review service.
func NewService(stores domain.Stores, tx domain.TxRunner, pol *policy.Engine, caps *token.CapabilityService, objects domain.ObjectStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		stores: stores, tx: tx, policy: pol, caps: caps,
		objects: objects, logger: logger, now: time.Now,
	}
}

// UploadRequest carries one document upload.
type UploadRequest struct {
	DocumentType string
	FileName     string
	ContentType  string
	SizeBytes    int64
	Body         io.Reader
}

// UploadDocument stores the blob and records document metadata as a draft
// attached to the caller's application. The application is created as a
// draft on first touch.
func (s *Service) UploadDocument(ctx context.Context, req UploadRequest) (*domain.Document, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if req.FileName == "" {
		return nil, domain.ErrValidation("file name is required")
	}
	if req.DocumentType == "" {
		return nil, domain.ErrValidation("document type is required")
	}
	if req.SizeBytes <= 0 || req.SizeBytes > domain.MaxDocumentSize {
		return nil, domain.ErrValidation("file size must be between 1 byte and %d bytes", domain.MaxDocumentSize)
	}
	if !domain.AllowedDocumentTypes[req.ContentType] {
		return nil, domain.ErrValidation("unsupported content type %q", req.ContentType)
	}

	app, err := s.getOrCreateApplication(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("documents/%s/%s", actor.UserID, uuid.NewString())
	err = s.objects.Put(ctx, key, req.Body, req.SizeBytes, req.ContentType, map[string]string{
		"ownerId":  actor.UserID,
		"fileName": req.FileName,
	})
	if err != nil {
		return nil, err
	}

	var doc *domain.Document
	err = s.tx.InTx(ctx, func(st domain.Stores) error {
		var err error
		doc, err = st.Documents().Insert(ctx, &domain.Document{
			OwnerID:           actor.UserID,
			ApplicationID:     &app.ID,
			DocumentType:      req.DocumentType,
			FileName:          req.FileName,
			ContentType:       req.ContentType,
			SizeBytes:         req.SizeBytes,
			StorageKey:        key,
			ReviewStatus:      domain.ReviewPending,
			ApplicationStatus: domain.DocumentDraft,
		})
		if err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionUploadDocument,
			EntityType: "document", EntityID: doc.ID,
			Metadata: map[string]string{"fileName": req.FileName, "documentType": req.DocumentType},
		})
	})
	if err != nil {
		// The blob is orphaned if it stays; remove it so a retry can reuse
		// the same upload without leaking storage.
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Error("orphaned object cleanup failed", "key", key, "error", delErr)
		}
		return nil, err
	}
	return doc, nil
}

// GetDocument returns document metadata, subject to owner/reviewer visibility.
func (s *Service) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	doc, err := s.stores.Documents().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ActionViewDocument, documentResource(doc)); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns the caller's own documents, or — for reviewer
// roles — the submitted documents of the given owner.
func (s *Service) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if ownerID == "" {
		ownerID = actor.UserID
	}
	filter := domain.DocumentFilter{OwnerID: ownerID}
	if ownerID != actor.UserID {
		// Only reviewers may look at someone else's documents, and drafts
		// stay out of reviewer listings.
		if err := s.policy.Authorize(actor, policy.ActionReviewDocument, policy.Resource{
			DocumentStatus: domain.DocumentSubmitted,
		}); err != nil {
			return nil, err
		}
		filter.SubmittedOnly = true
	}
	return s.stores.Documents().List(ctx, filter)
}

// DeleteDocument removes the metadata row and its blob. Owners may delete
// only documents still pending review.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrAuthentication("no principal in context")
	}
	doc, err := s.stores.Documents().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(actor, policy.ActionDeleteDocument, documentResource(doc)); err != nil {
		return err
	}

	err = s.tx.InTx(ctx, func(st domain.Stores) error {
		if err := st.Documents().Delete(ctx, id); err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionDeleteDocument,
			EntityType: "document", EntityID: id,
			Metadata: map[string]string{"fileName": doc.FileName},
		})
	})
	if err != nil {
		return err
	}
	if delErr := s.objects.Delete(ctx, doc.StorageKey); delErr != nil {
		// The row is gone; a leaked blob is recoverable, a dangling row is not.
		s.logger.Error("blob delete failed after row delete", "key", doc.StorageKey, "error", delErr)
	}
	return nil
}

// ReviewDocument records a reviewer's approve/reject decision on a
// submitted document.
func (s *Service) ReviewDocument(ctx context.Context, id string, status domain.ReviewStatus, note *string) (*domain.Document, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if status != domain.ReviewApproved && status != domain.ReviewRejected {
		return nil, domain.ErrValidation("review status must be approved or rejected")
	}
	doc, err := s.stores.Documents().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ActionReviewDocument, documentResource(doc)); err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(st domain.Stores) error {
		if err := st.Documents().SetReview(ctx, id, status, note); err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionReviewDocument,
			EntityType: "document", EntityID: id,
			Metadata: map[string]string{"reviewStatus": string(status)},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.stores.Documents().GetByID(ctx, id)
}

// LinkGrant is a minted capability token for one document's blob.
type LinkGrant struct {
	Token     string
	ExpiresAt time.Time
}

// GrantDocumentLink mints a short-lived token that lets its holder stream
// the document's blob without a bearer credential. Visibility rules match
// GetDocument.
func (s *Service) GrantDocumentLink(ctx context.Context, id string) (*LinkGrant, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	doc, err := s.stores.Documents().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ActionViewDocument, documentResource(doc)); err != nil {
		return nil, err
	}
	raw, err := s.caps.Grant(doc.StorageKey)
	if err != nil {
		return nil, err
	}
	// Granting writes no row of its own, so there is no transaction to
	// join. The audit insert happens before the token is returned: if it
	// fails the grant is discarded and no unaudited link escapes.
	if err := s.stores.Audit().Insert(ctx, &domain.AuditEntry{
		ActorID: actor.UserID, Action: domain.ActionGrantDocumentLink,
		EntityType: "document", EntityID: id,
	}); err != nil {
		return nil, err
	}
	return &LinkGrant{Token: raw, ExpiresAt: s.now().Add(s.caps.TTL())}, nil
}

// StreamDocument redeems a capability token and opens the blob it grants.
// A non-empty documentID must match the token's key. Every failure short of
// a storage outage reads as the same authentication error: an invalid or
// expired token, a mismatched document, and a missing blob are
// indistinguishable to the caller, so the endpoint never discloses whether
// a key exists.
func (s *Service) StreamDocument(ctx context.Context, documentID, rawToken string) (io.ReadCloser, *domain.ObjectInfo, error) {
	key, ok := s.caps.Redeem(rawToken)
	if !ok {
		return nil, nil, domain.ErrAuthentication("invalid or expired link token")
	}
	if documentID != "" {
		doc, err := s.stores.Documents().GetByID(ctx, documentID)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil, nil, domain.ErrAuthentication("invalid or expired link token")
			}
			return nil, nil, err
		}
		if doc.StorageKey != key {
			return nil, nil, domain.ErrAuthentication("invalid or expired link token")
		}
	}
	body, info, err := s.objects.Get(ctx, key)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil, domain.ErrAuthentication("invalid or expired link token")
		}
		return nil, nil, err
	}
	return body, info, nil
}

// GetOrCreateApplication returns the caller's application, creating an
// empty draft on first access.
func (s *Service) GetOrCreateApplication(ctx context.Context) (*domain.Application, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	return s.getOrCreateApplication(ctx, actor.UserID)
}

func (s *Service) getOrCreateApplication(ctx context.Context, ownerID string) (*domain.Application, error) {
	app, err := s.stores.Applications().GetByOwner(ctx, ownerID)
	if err == nil {
		return app, nil
	}
	if !domain.IsNotFound(err) {
		return nil, err
	}
	return s.stores.Applications().Create(ctx, &domain.Application{
		OwnerID: ownerID,
		Status:  domain.ApplicationDraft,
	})
}

// SubmitResult reports a submit outcome.
type SubmitResult struct {
	Application        *domain.Application
	DocumentsSubmitted int64
}

// SubmitApplication moves the caller's draft application to pending and
// bulk-transitions all of the caller's draft documents to submitted in the
// same transaction. Submitting while the application is already pending or
// approved is a conflict.
func (s *Service) SubmitApplication(ctx context.Context, skills, domains, languages []string) (*SubmitResult, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	app, err := s.getOrCreateApplication(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	switch app.Status {
	case domain.ApplicationPending:
		return nil, domain.ErrConflict("application is already pending review")
	case domain.ApplicationApproved:
		return nil, domain.ErrConflict("application is already approved")
	}

	var count int64
	err = s.tx.InTx(ctx, func(st domain.Stores) error {
		app.Status = domain.ApplicationPending
		app.Skills, app.Domains, app.Languages = skills, domains, languages
		if err := st.Applications().Submit(ctx, app.ID, skills, domains, languages); err != nil {
			return err
		}
		var err error
		count, err = st.Documents().SubmitDrafts(ctx, actor.UserID)
		if err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionSubmitApplication,
			EntityType: "application", EntityID: app.ID,
			Metadata: map[string]string{"documentsSubmitted": fmt.Sprintf("%d", count)},
		})
	})
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Application: app, DocumentsSubmitted: count}, nil
}

// ListPendingApplications returns applications awaiting review.
func (s *Service) ListPendingApplications(ctx context.Context) ([]domain.Application, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if err := s.policy.Authorize(actor, policy.ActionReviewApplication, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.stores.Applications().ListByStatus(ctx, domain.ApplicationPending)
}

// ApproveApplication approves a pending application and promotes its owner
// to expert. The promotion is a side effect of the approval, in the same
// transaction.
func (s *Service) ApproveApplication(ctx context.Context, id string) (*domain.Application, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if err := s.policy.Authorize(actor, policy.ActionReviewApplication, policy.Resource{}); err != nil {
		return nil, err
	}
	app, err := s.stores.Applications().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationPending {
		return nil, domain.ErrConflict("only pending applications can be approved")
	}

	err = s.tx.InTx(ctx, func(st domain.Stores) error {
		if err := st.Applications().SetStatus(ctx, id, domain.ApplicationApproved, &actor.UserID, nil); err != nil {
			return err
		}
		if err := st.Users().SetRole(ctx, app.OwnerID, domain.RoleExpert); err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionApproveExpert,
			EntityType: "application", EntityID: id,
			Metadata: map[string]string{"ownerId": app.OwnerID},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.stores.Applications().GetByID(ctx, id)
}

// RejectApplication rejects a pending application with a required reason.
func (s *Service) RejectApplication(ctx context.Context, id, reason string) (*domain.Application, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if reason == "" {
		return nil, domain.ErrValidation("rejection reason is required")
	}
	if err := s.policy.Authorize(actor, policy.ActionReviewApplication, policy.Resource{}); err != nil {
		return nil, err
	}
	app, err := s.stores.Applications().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationPending {
		return nil, domain.ErrConflict("only pending applications can be rejected")
	}

	err = s.tx.InTx(ctx, func(st domain.Stores) error {
		if err := st.Applications().SetStatus(ctx, id, domain.ApplicationRejected, &actor.UserID, &reason); err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionRejectApplication,
			EntityType: "application", EntityID: id,
			Metadata: map[string]string{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.stores.Applications().GetByID(ctx, id)
}

// RevokeExpert revokes an approved application and demotes its owner back
// to customer, or suspends the account when permanentBan is set.
func (s *Service) RevokeExpert(ctx context.Context, id string, review domain.ApplicationReview) (*domain.Application, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if err := s.policy.Authorize(actor, policy.ActionReviewApplication, policy.Resource{}); err != nil {
		return nil, err
	}
	app, err := s.stores.Applications().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationApproved {
		return nil, domain.ErrValidation("can only remove approved experts")
	}

	newRole := domain.RoleCustomer
	if review.PermanentBan {
		newRole = domain.RoleSuspended
	}
	err = s.tx.InTx(ctx, func(st domain.Stores) error {
		var reason *string
		if review.Reason != "" {
			reason = &review.Reason
		}
		if err := st.Applications().SetStatus(ctx, id, domain.ApplicationRevoked, &actor.UserID, reason); err != nil {
			return err
		}
		if err := st.Users().SetRole(ctx, app.OwnerID, newRole); err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionRemoveExpert,
			EntityType: "application", EntityID: id,
			Metadata: map[string]string{"ownerId": app.OwnerID, "newRole": string(newRole)},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.stores.Applications().GetByID(ctx, id)
}

func documentResource(d *domain.Document) policy.Resource {
	return policy.Resource{
		OwnerID:        d.OwnerID,
		ReviewStatus:   d.ReviewStatus,
		DocumentStatus: d.ApplicationStatus,
	}
}
