package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"expertmarket/internal/domain"
)

type applicationResponse struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId"`
	Status          string     `json:"status"`
	Skills          []string   `json:"skills"`
	Domains         []string   `json:"domains"`
	Languages       []string   `json:"languages"`
	ReviewerID      *string    `json:"reviewerId,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func toApplicationResponse(a *domain.Application) applicationResponse {
	return applicationResponse{
		ID: a.ID, OwnerID: a.OwnerID, Status: string(a.Status),
		Skills: emptyIfNil(a.Skills), Domains: emptyIfNil(a.Domains), Languages: emptyIfNil(a.Languages),
		ReviewerID: a.ReviewerID, ReviewedAt: a.ReviewedAt, RejectionReason: a.RejectionReason,
		CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (h *Handler) getMyApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.review.GetOrCreateApplication(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

type submitApplicationRequest struct {
	Skills    []string `json:"skills"`
	Domains   []string `json:"domains"`
	Languages []string `json:"languages"`
}

type submitApplicationResponse struct {
	Application        applicationResponse `json:"application"`
	DocumentsSubmitted int64               `json:"documentsSubmitted"`
}

func (h *Handler) submitApplication(w http.ResponseWriter, r *http.Request) {
	var req submitApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body"))
		return
	}
	res, err := h.review.SubmitApplication(r.Context(), req.Skills, req.Domains, req.Languages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, submitApplicationResponse{
		Application:        toApplicationResponse(res.Application),
		DocumentsSubmitted: res.DocumentsSubmitted,
	})
}

type applicationListResponse struct {
	Applications []applicationResponse `json:"applications"`
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.review.ListPendingApplications(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := applicationListResponse{Applications: make([]applicationResponse, 0, len(apps))}
	for i := range apps {
		out.Applications = append(out.Applications, toApplicationResponse(&apps[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) approveApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.review.ApproveApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

type rejectApplicationRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) rejectApplication(w http.ResponseWriter, r *http.Request) {
	var req rejectApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body"))
		return
	}
	app, err := h.review.RejectApplication(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toApplicationResponse(app))
}

type revokeExpertRequest struct {
	Reason       string `json:"reason,omitempty"`
	PermanentBan bool   `json:"permanentBan,omitempty"`
}

func (h *Handler) revokeExpert(w http.ResponseWriter, r *http.Request) {
	var req revokeExpertRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body"))
		return
	}
	actor, _ := domain.PrincipalFromContext(r.Context())
	app, err := h.review.RevokeExpert(r.Context(), chi.URLParam(r, "id"), domain.ApplicationReview{
		ReviewerID:   actor.UserID,
		Reason:       req.Reason,
		PermanentBan: req.PermanentBan,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toApplicationResponse(app))
}
