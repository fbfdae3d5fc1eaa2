// Package policy implements role-based access decisions as one explicit
// decision table. The roles are not a rank order: several rules are
// asymmetric per-resource exceptions (an admin may not touch another admin,
// a superadmin may touch an admin but never a peer), so every entry point
// must go through Authorize rather than comparing role strings inline.
package policy

import (
	"expertmarket/internal/domain"
)

// Action names a policy-checked operation.
type Action string

const (
	ActionListUsers         Action = "users.list"
	ActionViewUser          Action = "users.view"
	ActionCreateUser        Action = "users.create"
	ActionUpdateUser        Action = "users.update"
	ActionDeleteUser        Action = "users.delete"
	ActionReviewApplication Action = "applications.review"
	ActionReviewDocument    Action = "documents.review"
	ActionViewDocument      Action = "documents.view"
	ActionDeleteDocument    Action = "documents.delete"
	ActionAssignTicket      Action = "tickets.assign"
	ActionViewAudit         Action = "audit.view"
)

// Resource describes the target of an action. Only the fields relevant to
// the action need to be set.
type Resource struct {
	// TargetRole is the current role of the user being acted on, or the
	// ticket assignee's role for ActionAssignTicket.
	TargetRole domain.Role
	// AssignedRole is the role being granted on create/update.
	AssignedRole domain.Role
	// OwnerID is the owning user of a document.
	OwnerID string
	// ReviewStatus and DocumentStatus describe a document target.
	ReviewStatus   domain.ReviewStatus
	DocumentStatus domain.DocumentStatus
}

type rule func(actor domain.Principal, res Resource) error

// Engine evaluates the decision table. It is stateless and safe for
// concurrent use.
type Engine struct {
	rules map[Action]rule
}

// New creates the policy engine with the canonical rule table.
func New() *Engine {
	e := &Engine{}
	e.rules = map[Action]rule{
		ActionListUsers:         e.requireUserManager,
		ActionViewUser:          e.viewUser,
		ActionCreateUser:        e.writeUser,
		ActionUpdateUser:        e.writeUser,
		ActionDeleteUser:        e.deleteUser,
		ActionReviewApplication: e.reviewApplication,
		ActionReviewDocument:    e.reviewDocument,
		ActionViewDocument:      e.viewDocument,
		ActionDeleteDocument:    e.deleteDocument,
		ActionAssignTicket:      e.assignTicket,
		ActionViewAudit:         e.requireUserManager,
	}
	return e
}

// Authorize decides whether the actor may perform the action on the
// resource. It returns nil on allow and a typed domain error on deny.
func (e *Engine) Authorize(actor domain.Principal, action Action, res Resource) error {
	r, ok := e.rules[action]
	if !ok {
		return domain.ErrAccessDenied("unknown action %q", action)
	}
	return r(actor, res)
}

// VisibleRoles returns the role set the actor may see in user listings.
// Filters supplied by the caller are intersected with this set, never used
// to widen it. Non-managers see nothing.
func (e *Engine) VisibleRoles(actor domain.Role) []domain.Role {
	switch actor {
	case domain.RoleAdmin:
		// Admins never see other admins or superadmins.
		return []domain.Role{domain.RoleCustomer, domain.RoleExpert, domain.RoleAnalyst, domain.RoleSuspended}
	case domain.RoleSuperadmin:
		// Superadmin peers are hidden from listings.
		return []domain.Role{domain.RoleCustomer, domain.RoleExpert, domain.RoleAnalyst, domain.RoleAdmin, domain.RoleSuspended}
	default:
		return nil
	}
}

// IntersectVisible narrows requested role filters to the actor's visible
// set. An empty request means "everything visible".
func (e *Engine) IntersectVisible(actor domain.Role, requested []domain.Role) []domain.Role {
	visible := e.VisibleRoles(actor)
	if len(requested) == 0 {
		return visible
	}
	allowed := make(map[domain.Role]bool, len(visible))
	for _, r := range visible {
		allowed[r] = true
	}
	var out []domain.Role
	for _, r := range requested {
		if allowed[r] {
			out = append(out, r)
		}
	}
	return out
}

func isUserManager(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleSuperadmin
}

func isReviewer(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleSuperadmin || role == domain.RoleAnalyst
}

func (e *Engine) requireUserManager(actor domain.Principal, _ Resource) error {
	if !isUserManager(actor.Role) {
		return domain.ErrAccessDenied("role %s may not manage user accounts", actor.Role)
	}
	return nil
}

func (e *Engine) viewUser(actor domain.Principal, res Resource) error {
	if err := e.requireUserManager(actor, res); err != nil {
		return err
	}
	// Superadmins may address any individual account, including peers.
	if actor.Role == domain.RoleSuperadmin {
		return nil
	}
	for _, r := range e.VisibleRoles(actor.Role) {
		if r == res.TargetRole {
			return nil
		}
	}
	return domain.ErrAccessDenied("role %s may not view a %s account", actor.Role, res.TargetRole)
}

// writeUser covers create and update. Assigning admin or superadmin is
// reserved to superadmins; an admin actor may never touch an account whose
// current role is admin or superadmin.
func (e *Engine) writeUser(actor domain.Principal, res Resource) error {
	if err := e.requireUserManager(actor, res); err != nil {
		return err
	}
	if err := e.modifyTarget(actor, res.TargetRole); err != nil {
		return err
	}
	if res.AssignedRole == domain.RoleAdmin || res.AssignedRole == domain.RoleSuperadmin {
		if actor.Role != domain.RoleSuperadmin {
			return domain.ErrAccessDenied("only superadmin may assign role %s", res.AssignedRole)
		}
	}
	return nil
}

func (e *Engine) deleteUser(actor domain.Principal, res Resource) error {
	if err := e.requireUserManager(actor, res); err != nil {
		return err
	}
	return e.modifyTarget(actor, res.TargetRole)
}

// modifyTarget enforces the asymmetric modification rules against the
// target's current role. TargetRole is empty on create.
func (e *Engine) modifyTarget(actor domain.Principal, target domain.Role) error {
	if target == "" {
		return nil
	}
	switch actor.Role {
	case domain.RoleSuperadmin:
		if target == domain.RoleSuperadmin {
			return domain.ErrAccessDenied("superadmin accounts may not be modified by peers")
		}
	case domain.RoleAdmin:
		if target == domain.RoleAdmin || target == domain.RoleSuperadmin {
			return domain.ErrAccessDenied("admin may not modify a %s account", target)
		}
	}
	return nil
}

func (e *Engine) reviewApplication(actor domain.Principal, _ Resource) error {
	if !isUserManager(actor.Role) {
		return domain.ErrAccessDenied("role %s may not review expert applications", actor.Role)
	}
	return nil
}

// reviewDocument allows reviewer roles on submitted documents only.
// Draft documents are invisible even to reviewers.
func (e *Engine) reviewDocument(actor domain.Principal, res Resource) error {
	if !isReviewer(actor.Role) {
		return domain.ErrAccessDenied("role %s may not review documents", actor.Role)
	}
	if res.DocumentStatus != domain.DocumentSubmitted {
		return domain.ErrNotFound("document not found")
	}
	return nil
}

func (e *Engine) viewDocument(actor domain.Principal, res Resource) error {
	if actor.UserID == res.OwnerID {
		return nil
	}
	if isReviewer(actor.Role) && res.DocumentStatus != domain.DocumentDraft {
		return nil
	}
	if isReviewer(actor.Role) {
		return domain.ErrNotFound("document not found")
	}
	return domain.ErrAccessDenied("not the document owner")
}

// deleteDocument allows the owner while review is still pending, and
// reviewer roles on non-draft documents.
func (e *Engine) deleteDocument(actor domain.Principal, res Resource) error {
	if actor.UserID == res.OwnerID {
		if res.ReviewStatus != domain.ReviewPending {
			return domain.ErrAccessDenied("documents may not be deleted after review")
		}
		return nil
	}
	if isReviewer(actor.Role) && res.DocumentStatus != domain.DocumentDraft {
		return nil
	}
	if isReviewer(actor.Role) {
		return domain.ErrNotFound("document not found")
	}
	return domain.ErrAccessDenied("not the document owner")
}

// assignTicket restricts both the actor and the assignee's role.
func (e *Engine) assignTicket(actor domain.Principal, res Resource) error {
	if !isUserManager(actor.Role) {
		return domain.ErrAccessDenied("role %s may not assign tickets", actor.Role)
	}
	switch res.TargetRole {
	case domain.RoleExpert, domain.RoleAdmin, domain.RoleCustomer:
		return nil
	default:
		return domain.ErrValidation("tickets cannot be assigned to role %q", res.TargetRole)
	}
}
