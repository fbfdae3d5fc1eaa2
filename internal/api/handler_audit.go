package api

import (
	"net/http"
	"strconv"
	"time"

	"expertmarket/internal/domain"
)

type auditEntryResponse struct {
	ID         string            `json:"id"`
	ActorID    string            `json:"actorId"`
	Action     string            `json:"action"`
	EntityType string            `json:"entityType"`
	EntityID   string            `json:"entityId"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type auditListResponse struct {
	Entries []auditEntryResponse `json:"entries"`
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AuditFilter{
		ActorID:    q.Get("actorId"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		Action:     q.Get("action"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, domain.ErrValidation("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	entries, err := h.identity.AuditTrail(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := auditListResponse{Entries: make([]auditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, auditEntryResponse{
			ID: e.ID, ActorID: e.ActorID, Action: e.Action,
			EntityType: e.EntityType, EntityID: e.EntityID,
			Metadata: e.Metadata, CreatedAt: e.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}
