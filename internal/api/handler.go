// Package api provides the HTTP handlers for the marketplace core REST API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"expertmarket/internal/middleware"
	"expertmarket/internal/service/identity"
	"expertmarket/internal/service/review"
)

// Handler holds the services behind the REST surface.
type Handler struct {
	identity  *identity.Service
	review    *review.Service
	validator middleware.JWTValidator
	logger    *slog.Logger
}

// NewHandler creates a Handler. validator authenticates the external
// identity-provider token presented to the exchange endpoint.
func NewHandler(identitySvc *identity.Service, reviewSvc *review.Service, validator middleware.JWTValidator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{identity: identitySvc, review: reviewSvc, validator: validator, logger: logger}
}

// Routes mounts the authenticated API surface. The caller wraps the router
// with the bearer authenticator; only the exchange and stream endpoints live
// outside it.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Get("/{id}", h.getUser)
		r.Patch("/{id}", h.updateUser)
		r.Delete("/{id}", h.deleteUser)
	})

	r.Post("/tickets/{id}/assign", h.assignTicket)

	r.Get("/audit", h.listAudit)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", h.listDocuments)
		r.Post("/", h.uploadDocument)
		r.Get("/{id}", h.getDocument)
		r.Delete("/{id}", h.deleteDocument)
		r.Post("/{id}/review", h.reviewDocument)
		r.Post("/{id}/link", h.grantDocumentLink)
	})

	r.Route("/applications", func(r chi.Router) {
		r.Get("/", h.listApplications)
		r.Get("/me", h.getMyApplication)
		r.Post("/me/submit", h.submitApplication)
		r.Post("/{id}/approve", h.approveApplication)
		r.Post("/{id}/reject", h.rejectApplication)
		r.Post("/{id}/revoke", h.revokeExpert)
	})
}

// PublicRoutes mounts the endpoints that do not carry a bearer credential:
// the exchange endpoint and the capability-token stream endpoint.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/auth/exchange", h.exchange)
	r.Get("/documents/{id}/stream", h.streamDocument)
	// Bare alias; the token alone identifies the object.
	r.Get("/documents/stream", h.streamDocument)
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.logger.Error("encode response", "error", err)
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"requestId", middleware.RequestIDFromContext(r.Context()),
			"error", err)
	}
	h.writeJSON(w, status, errorBody{Code: status, Message: clientMessage(err, status)})
}

// decodeJSON decodes the request body into v. An empty body leaves v at its
// zero value, so endpoints with optional bodies accept a bare POST.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
