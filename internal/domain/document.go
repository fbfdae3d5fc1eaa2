package domain

import "time"

// ReviewStatus is the per-document review state.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// DocumentStatus tracks whether a document belongs to a draft or a submitted
// application. Draft documents are never visible to reviewer queries.
type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "draft"
	DocumentSubmitted DocumentStatus = "submitted"
)

// MaxDocumentSize is the upload size limit in bytes.
const MaxDocumentSize = 10 << 20 // 10 MiB

// AllowedDocumentTypes maps accepted MIME types for uploads.
var AllowedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// Document is an uploaded file supporting an expert application. The blob
// itself lives in the object store under StorageKey; clients never see the
// storage key directly.
type Document struct {
	ID                string
	OwnerID           string
	ApplicationID     *string
	DocumentType      string // caller-declared kind, e.g. "certificate", "id_proof"
	FileName          string
	ContentType       string
	SizeBytes         int64
	StorageKey        string
	ReviewStatus      ReviewStatus
	ApplicationStatus DocumentStatus
	ReviewNote        *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	OwnerID string
	// SubmittedOnly restricts results to submitted documents; reviewer
	// listings always set it.
	SubmittedOnly bool
}
