package domain

import "time"

// AuditEntry represents a single activity log record. Every mutating
// lifecycle transition appends one, in the same transaction as the mutation.
type AuditEntry struct {
	ID         string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// AuditFilter narrows audit trail listings. Zero fields match everything;
// Limit caps the result set (0 means the repository default).
type AuditFilter struct {
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	Limit      int
}

// Audit action names.
const (
	ActionCreateUser        = "CREATE_USER"
	ActionUpdateUser        = "UPDATE_USER"
	ActionDeleteUser        = "DELETE_USER"
	ActionUploadDocument    = "UPLOAD_DOCUMENT"
	ActionDeleteDocument    = "DELETE_DOCUMENT"
	ActionReviewDocument    = "REVIEW_DOCUMENT"
	ActionGrantDocumentLink = "GRANT_DOCUMENT_LINK"
	ActionSubmitApplication = "SUBMIT_APPLICATION"
	ActionApproveExpert     = "APPROVE_EXPERT"
	ActionRejectApplication = "REJECT_APPLICATION"
	ActionRemoveExpert      = "REMOVE_EXPERT"
	ActionAssignTicket      = "ASSIGN_TICKET"
)
