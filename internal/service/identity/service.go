// Package identity provides credential issuance and user administration.
package identity

import (
	"context"
	"errors"
	"log/slog"

	"expertmarket/internal/domain"
	"expertmarket/internal/policy"
	"expertmarket/internal/token"
)

// Service handles the auth exchange and user account management. Every
// entry point resolves the actor from the request context and goes through
// the policy engine — there are no inline role comparisons here.
type Service struct {
	stores   domain.Stores
	tx       domain.TxRunner
	policy   *policy.Engine
	tokens   *token.IdentityService
	auditLog domain.AuditReader
	logger   *slog.Logger
}

// NewService creates the identity service. auditLog may be nil when the
// audit trail endpoint is not served.
func NewService(stores domain.Stores, tx domain.TxRunner, pol *policy.Engine, tokens *token.IdentityService, auditLog domain.AuditReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{stores: stores, tx: tx, policy: pol, tokens: tokens, auditLog: auditLog, logger: logger}
}

// ExchangeResult is the outcome of a successful credential exchange.
type ExchangeResult struct {
	Token string
	User  *domain.User
}

// Exchange resolves the externally-authenticated subject to a local account
// and issues a bearer credential. Unknown subjects are provisioned as
// customers; the external provider owns authentication, this service owns
// the account and its role.
func (s *Service) Exchange(ctx context.Context, email, name string) (*ExchangeResult, error) {
	if email == "" {
		return nil, domain.ErrValidation("email is required")
	}

	user, err := s.stores.Users().GetByEmail(ctx, email)
	var notFound *domain.NotFoundError
	switch {
	case err == nil:
	case errors.As(err, &notFound):
		if name == "" {
			name = email
		}
		user, err = s.stores.Users().Create(ctx, &domain.User{
			Email: email, Name: name, Role: domain.RoleCustomer,
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("provisioned user", "userId", user.ID, "email", email)
	default:
		return nil, err
	}

	if user.Role == domain.RoleSuspended {
		return nil, domain.ErrAccessDenied("account is suspended")
	}

	raw, err := s.tokens.Issue(domain.Principal{
		UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role,
	})
	if err != nil {
		return nil, err
	}
	return &ExchangeResult{Token: raw, User: user}, nil
}

// ListUsers returns the accounts visible to the actor, intersected with the
// requested filter.
func (s *Service) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if err := s.policy.Authorize(actor, policy.ActionListUsers, policy.Resource{}); err != nil {
		return nil, err
	}
	visible := s.policy.IntersectVisible(actor.Role, filter.Roles)
	filter.Roles = nil
	return s.stores.Users().List(ctx, visible, filter)
}

// GetUser returns a single account, subject to the actor's visibility.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	user, err := s.stores.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ActionViewUser, policy.Resource{TargetRole: user.Role}); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates an account with the requested role.
func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, policy.ActionCreateUser, policy.Resource{AssignedRole: req.Role}); err != nil {
		return nil, err
	}

	var created *domain.User
	err := s.tx.InTx(ctx, func(st domain.Stores) error {
		var err error
		created, err = st.Users().Create(ctx, &domain.User{
			Email: req.Email, Name: req.Name, Role: req.Role,
		})
		if err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionCreateUser,
			EntityType: "user", EntityID: created.ID,
			Metadata: map[string]string{"role": string(req.Role)},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateUser changes name and/or role, honoring the asymmetric policy rules
// against the target's current role.
func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UpdateUserRequest) (*domain.User, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	target, err := s.stores.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := policy.Resource{TargetRole: target.Role}
	if req.Role != nil {
		res.AssignedRole = *req.Role
	}
	if err := s.policy.Authorize(actor, policy.ActionUpdateUser, res); err != nil {
		return nil, err
	}

	var updated *domain.User
	err = s.tx.InTx(ctx, func(st domain.Stores) error {
		var err error
		updated, err = st.Users().Update(ctx, id, req)
		if err != nil {
			return err
		}
		meta := map[string]string{}
		if req.Role != nil {
			meta["role"] = string(*req.Role)
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionUpdateUser,
			EntityType: "user", EntityID: id, Metadata: meta,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrAuthentication("no principal in context")
	}
	target, err := s.stores.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(actor, policy.ActionDeleteUser, policy.Resource{TargetRole: target.Role}); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(st domain.Stores) error {
		if err := st.Users().Delete(ctx, id); err != nil {
			return err
		}
		return st.Audit().Insert(ctx, &domain.AuditEntry{
			ActorID: actor.UserID, Action: domain.ActionDeleteUser,
			EntityType: "user", EntityID: id,
			Metadata: map[string]string{"role": string(target.Role)},
		})
	})
}

// AuditTrail returns audit entries matching the filter, newest first.
func (s *Service) AuditTrail(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthentication("no principal in context")
	}
	if err := s.policy.Authorize(actor, policy.ActionViewAudit, policy.Resource{}); err != nil {
		return nil, err
	}
	if s.auditLog == nil {
		return nil, domain.ErrNotFound("audit trail not available")
	}
	return s.auditLog.List(ctx, filter)
}

// AssignTicket validates that the actor may assign a ticket to the given
// user and records the assignment. Ticket storage itself lives outside this
// core; the check and the audit trail are what the policy owns.
func (s *Service) AssignTicket(ctx context.Context, ticketID, assigneeID string) error {
	actor, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrAuthentication("no principal in context")
	}
	if ticketID == "" {
		return domain.ErrValidation("ticket id is required")
	}
	assignee, err := s.stores.Users().GetByID(ctx, assigneeID)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(actor, policy.ActionAssignTicket, policy.Resource{TargetRole: assignee.Role}); err != nil {
		return err
	}
	return s.stores.Audit().Insert(ctx, &domain.AuditEntry{
		ActorID: actor.UserID, Action: domain.ActionAssignTicket,
		EntityType: "ticket", EntityID: ticketID,
		Metadata: map[string]string{"assigneeId": assigneeID, "assigneeRole": string(assignee.Role)},
	})
}
