package api

import (
	"net/http"
	"time"

	"expertmarket/internal/domain"
)

type exchangeRequest struct {
	Token string `json:"token"`
	// Email is accepted only when the server runs with dev login enabled
	// and no validator is configured.
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type exchangeResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role),
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

// exchange trades an identity-provider token for a marketplace bearer token.
// When no validator is configured (dev login), the request body names the
// account directly.
func (h *Handler) exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body"))
		return
	}

	email, name := req.Email, req.Name
	if h.validator != nil {
		if req.Token == "" {
			h.writeError(w, r, domain.ErrValidation("token is required"))
			return
		}
		claims, err := h.validator.Validate(r.Context(), req.Token)
		if err != nil {
			h.writeError(w, r, domain.ErrAuthentication("token verification failed"))
			return
		}
		email, name = "", ""
		if claims.Email != nil {
			email = *claims.Email
		}
		if claims.Name != nil {
			name = *claims.Name
		}
		if email == "" {
			h.writeError(w, r, domain.ErrAuthentication("token carries no email claim"))
			return
		}
	}

	res, err := h.identity.Exchange(r.Context(), email, name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exchangeResponse{Token: res.Token, User: toUserResponse(res.User)})
}
