package domain

import "time"

// Role is a user's role in the marketplace. Roles are not a rank order —
// visibility and mutation rights differ per action (see the policy package).
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleExpert     Role = "expert"
	RoleAnalyst    Role = "analyst"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
	// RoleSuspended is assigned when an expert is removed with a permanent ban.
	RoleSuspended Role = "suspended"
)

// ValidRole reports whether r is a known role value.
func ValidRole(r Role) bool {
	switch r {
	case RoleCustomer, RoleExpert, RoleAnalyst, RoleAdmin, RoleSuperadmin, RoleSuspended:
		return true
	}
	return false
}

// User represents an account in the marketplace.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserFilter narrows user listings. Role filters are intersected with the
// caller's visible role set, never used to widen it.
type UserFilter struct {
	Roles []Role
	Email string
}

// CreateUserRequest holds parameters for creating a new user.
type CreateUserRequest struct {
	Email string
	Name  string
	Role  Role
}

// Validate checks that the request is well-formed.
func (r *CreateUserRequest) Validate() error {
	if r.Email == "" {
		return ErrValidation("email is required")
	}
	if r.Name == "" {
		return ErrValidation("name is required")
	}
	if r.Role == "" {
		r.Role = RoleCustomer
	}
	if !ValidRole(r.Role) {
		return ErrValidation("invalid role %q", r.Role)
	}
	return nil
}

// UpdateUserRequest holds parameters for updating a user. Nil fields are
// left unchanged.
type UpdateUserRequest struct {
	Name *string
	Role *Role
}

// Validate checks that the request is well-formed.
func (r *UpdateUserRequest) Validate() error {
	if r.Name == nil && r.Role == nil {
		return ErrValidation("no fields to update")
	}
	if r.Name != nil && *r.Name == "" {
		return ErrValidation("name must not be empty")
	}
	if r.Role != nil && !ValidRole(*r.Role) {
		return ErrValidation("invalid role %q", *r.Role)
	}
	return nil
}
