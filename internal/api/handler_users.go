package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"expertmarket/internal/domain"
)

type createUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

type updateUserRequest struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
}

type userListResponse struct {
	Users []userResponse `json:"users"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter := domain.UserFilter{Email: r.URL.Query().Get("email")}
	if roles := r.URL.Query().Get("roles"); roles != "" {
		for _, raw := range strings.Split(roles, ",") {
			filter.Roles = append(filter.Roles, domain.Role(strings.TrimSpace(raw)))
		}
	}

	users, err := h.identity.ListUsers(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := userListResponse{Users: make([]userResponse, 0, len(users))}
	for i := range users {
		out.Users = append(out.Users, toUserResponse(&users[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body"))
		return
	}
	user, err := h.identity.CreateUser(r.Context(), domain.CreateUserRequest{
		Email: req.Email, Name: req.Name, Role: domain.Role(req.Role),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body"))
		return
	}
	update := domain.UpdateUserRequest{Name: req.Name}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		update.Role = &role
	}
	user, err := h.identity.UpdateUser(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignTicketRequest struct {
	AssigneeID string `json:"assigneeId"`
}

func (h *Handler) assignTicket(w http.ResponseWriter, r *http.Request) {
	var req assignTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body"))
		return
	}
	if err := h.identity.AssignTicket(r.Context(), chi.URLParam(r, "id"), req.AssigneeID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
