package domain

import "time"

// ApplicationStatus is the lifecycle state of an expert application.
type ApplicationStatus string

const (
	ApplicationDraft    ApplicationStatus = "draft"
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
	// ApplicationRevoked is only reachable from ApplicationApproved.
	ApplicationRevoked ApplicationStatus = "revoked"
)

// Application is a customer's request to become an expert. One per owner,
// created lazily as a draft on first access.
type Application struct {
	ID              string
	OwnerID         string
	Status          ApplicationStatus
	Skills          []string
	Domains         []string
	Languages       []string
	ReviewerID      *string
	ReviewedAt      *time.Time
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ApplicationReview carries the outcome of a reviewer decision.
type ApplicationReview struct {
	ReviewerID string
	Reason     string
	// PermanentBan controls the owner's role after a revoke: true suspends
	// the account instead of returning it to customer.
	PermanentBan bool
}
