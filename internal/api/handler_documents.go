package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"expertmarket/internal/domain"
	"expertmarket/internal/service/review"
)

type documentResponse struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"ownerId"`
	ApplicationID     *string   `json:"applicationId,omitempty"`
	DocumentType      string    `json:"documentType"`
	FileName          string    `json:"fileName"`
	ContentType       string    `json:"contentType"`
	SizeBytes         int64     `json:"sizeBytes"`
	ReviewStatus      string    `json:"reviewStatus"`
	ApplicationStatus string    `json:"applicationStatus"`
	ReviewNote        *string   `json:"reviewNote,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toDocumentResponse(d *domain.Document) documentResponse {
	return documentResponse{
		ID: d.ID, OwnerID: d.OwnerID, ApplicationID: d.ApplicationID,
		DocumentType: d.DocumentType, FileName: d.FileName,
		ContentType: d.ContentType, SizeBytes: d.SizeBytes,
		ReviewStatus:      string(d.ReviewStatus),
		ApplicationStatus: string(d.ApplicationStatus),
		ReviewNote:        d.ReviewNote,
		CreatedAt:         d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type documentListResponse struct {
	Documents []documentResponse `json:"documents"`
}

// uploadDocument accepts a multipart form with a "file" part and a
// "documentType" field. Size and content type are validated server-side;
// the declared Content-Type of the part is what gets checked.
func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxDocumentSize+4096)
	if err := r.ParseMultipartForm(domain.MaxDocumentSize); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, domain.ErrValidation("file part is required"))
		return
	}
	defer file.Close()

	doc, err := h.review.UploadDocument(r.Context(), review.UploadRequest{
		DocumentType: r.FormValue("documentType"),
		FileName:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		SizeBytes:    header.Size,
		Body:         file,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.review.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.review.ListDocuments(r.Context(), r.URL.Query().Get("ownerId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := documentListResponse{Documents: make([]documentResponse, 0, len(docs))}
	for i := range docs {
		out.Documents = append(out.Documents, toDocumentResponse(&docs[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.review.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reviewDocumentRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
}

func (h *Handler) reviewDocument(w http.ResponseWriter, r *http.Request) {
	var req reviewDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body"))
		return
	}
	doc, err := h.review.ReviewDocument(r.Context(), chi.URLParam(r, "id"), domain.ReviewStatus(req.Status), req.Note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

type linkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) grantDocumentLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	grant, err := h.review.GrantDocumentLink(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, linkResponse{
		Token:     grant.Token,
		URL:       "/v1/documents/" + id + "/stream?token=" + grant.Token,
		ExpiresAt: grant.ExpiresAt,
	})
}

// streamDocument serves a blob to the holder of a valid capability token.
// It carries no Authorization header; the token is the whole credential.
// The id segment is empty on the bare alias route.
func (h *Handler) streamDocument(w http.ResponseWriter, r *http.Request) {
	body, info, err := h.review.StreamDocument(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer body.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.ContentLength, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("stream interrupted", "error", err)
	}
}
