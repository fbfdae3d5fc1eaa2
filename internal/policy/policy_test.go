package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertmarket/internal/domain"
)

func actor(role domain.Role) domain.Principal {
	return domain.Principal{UserID: "actor-1", Role: role}
}

func TestVisibleRoles(t *testing.T) {
	e := New()

	assert.ElementsMatch(t,
		[]domain.Role{domain.RoleCustomer, domain.RoleExpert, domain.RoleAnalyst, domain.RoleSuspended},
		e.VisibleRoles(domain.RoleAdmin))

	assert.ElementsMatch(t,
		[]domain.Role{domain.RoleCustomer, domain.RoleExpert, domain.RoleAnalyst, domain.RoleAdmin, domain.RoleSuspended},
		e.VisibleRoles(domain.RoleSuperadmin))

	assert.Empty(t, e.VisibleRoles(domain.RoleCustomer))
	assert.Empty(t, e.VisibleRoles(domain.RoleExpert))
	assert.Empty(t, e.VisibleRoles(domain.RoleAnalyst))
}

func TestIntersectVisible_FilterNeverWidens(t *testing.T) {
	e := New()

	// An admin asking for superadmins gets nothing extra.
	got := e.IntersectVisible(domain.RoleAdmin, []domain.Role{domain.RoleSuperadmin, domain.RoleCustomer})
	assert.Equal(t, []domain.Role{domain.RoleCustomer}, got)

	// Empty request means the full visible set.
	got = e.IntersectVisible(domain.RoleAdmin, nil)
	assert.ElementsMatch(t, e.VisibleRoles(domain.RoleAdmin), got)
}

func TestAuthorize_ListUsers(t *testing.T) {
	e := New()

	for _, role := range []domain.Role{domain.RoleCustomer, domain.RoleExpert, domain.RoleAnalyst} {
		err := e.Authorize(actor(role), ActionListUsers, Resource{})
		var denied *domain.AccessDeniedError
		assert.ErrorAs(t, err, &denied, "role %s", role)
	}
	assert.NoError(t, e.Authorize(actor(domain.RoleAdmin), ActionListUsers, Resource{}))
	assert.NoError(t, e.Authorize(actor(domain.RoleSuperadmin), ActionListUsers, Resource{}))
}

func TestAuthorize_AssignPrivilegedRoles(t *testing.T) {
	e := New()

	// Admin creating an admin is denied; superadmin is allowed.
	err := e.Authorize(actor(domain.RoleAdmin), ActionCreateUser, Resource{AssignedRole: domain.RoleAdmin})
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	err = e.Authorize(actor(domain.RoleSuperadmin), ActionCreateUser, Resource{AssignedRole: domain.RoleAdmin})
	assert.NoError(t, err)

	// Same asymmetry on update.
	err = e.Authorize(actor(domain.RoleAdmin), ActionUpdateUser, Resource{
		TargetRole: domain.RoleCustomer, AssignedRole: domain.RoleSuperadmin,
	})
	require.ErrorAs(t, err, &denied)
}

func TestAuthorize_ModifyPrivilegedTargets(t *testing.T) {
	e := New()
	var denied *domain.AccessDeniedError

	// Admin may not update or delete an admin or superadmin.
	for _, target := range []domain.Role{domain.RoleAdmin, domain.RoleSuperadmin} {
		err := e.Authorize(actor(domain.RoleAdmin), ActionUpdateUser, Resource{TargetRole: target})
		assert.ErrorAs(t, err, &denied, "update %s", target)
		err = e.Authorize(actor(domain.RoleAdmin), ActionDeleteUser, Resource{TargetRole: target})
		assert.ErrorAs(t, err, &denied, "delete %s", target)
	}

	// Superadmin may modify an admin but never a peer.
	assert.NoError(t, e.Authorize(actor(domain.RoleSuperadmin), ActionUpdateUser, Resource{TargetRole: domain.RoleAdmin}))
	err := e.Authorize(actor(domain.RoleSuperadmin), ActionUpdateUser, Resource{TargetRole: domain.RoleSuperadmin})
	assert.ErrorAs(t, err, &denied)
	err = e.Authorize(actor(domain.RoleSuperadmin), ActionDeleteUser, Resource{TargetRole: domain.RoleSuperadmin})
	assert.ErrorAs(t, err, &denied)
}

func TestAuthorize_ViewUser(t *testing.T) {
	e := New()
	var denied *domain.AccessDeniedError

	// Admins cannot address privileged accounts even individually.
	err := e.Authorize(actor(domain.RoleAdmin), ActionViewUser, Resource{TargetRole: domain.RoleSuperadmin})
	assert.ErrorAs(t, err, &denied)

	// Superadmins can address anyone individually, peers included.
	assert.NoError(t, e.Authorize(actor(domain.RoleSuperadmin), ActionViewUser, Resource{TargetRole: domain.RoleSuperadmin}))
}

func TestAuthorize_ReviewApplication(t *testing.T) {
	e := New()
	var denied *domain.AccessDeniedError

	err := e.Authorize(actor(domain.RoleAnalyst), ActionReviewApplication, Resource{})
	assert.ErrorAs(t, err, &denied)
	assert.NoError(t, e.Authorize(actor(domain.RoleAdmin), ActionReviewApplication, Resource{}))
	assert.NoError(t, e.Authorize(actor(domain.RoleSuperadmin), ActionReviewApplication, Resource{}))
}

func TestAuthorize_ReviewDocument(t *testing.T) {
	e := New()

	// Analysts may review, but only submitted documents.
	assert.NoError(t, e.Authorize(actor(domain.RoleAnalyst), ActionReviewDocument, Resource{
		DocumentStatus: domain.DocumentSubmitted,
	}))

	// Drafts read as not found, even for reviewers.
	err := e.Authorize(actor(domain.RoleAdmin), ActionReviewDocument, Resource{
		DocumentStatus: domain.DocumentDraft,
	})
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	var denied *domain.AccessDeniedError
	err = e.Authorize(actor(domain.RoleCustomer), ActionReviewDocument, Resource{
		DocumentStatus: domain.DocumentSubmitted,
	})
	assert.ErrorAs(t, err, &denied)
}

func TestAuthorize_ViewDocument(t *testing.T) {
	e := New()

	owner := domain.Principal{UserID: "owner-1", Role: domain.RoleCustomer}

	// Owner always sees their document, drafts included.
	assert.NoError(t, e.Authorize(owner, ActionViewDocument, Resource{
		OwnerID: "owner-1", DocumentStatus: domain.DocumentDraft,
	}))

	// Reviewers see submitted documents but never drafts.
	assert.NoError(t, e.Authorize(actor(domain.RoleAnalyst), ActionViewDocument, Resource{
		OwnerID: "owner-1", DocumentStatus: domain.DocumentSubmitted,
	}))
	err := e.Authorize(actor(domain.RoleAnalyst), ActionViewDocument, Resource{
		OwnerID: "owner-1", DocumentStatus: domain.DocumentDraft,
	})
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	// Strangers are denied.
	var denied *domain.AccessDeniedError
	err = e.Authorize(actor(domain.RoleCustomer), ActionViewDocument, Resource{
		OwnerID: "owner-1", DocumentStatus: domain.DocumentSubmitted,
	})
	assert.ErrorAs(t, err, &denied)
}

func TestAuthorize_DeleteDocument(t *testing.T) {
	e := New()

	owner := domain.Principal{UserID: "owner-1", Role: domain.RoleCustomer}

	// Owner may delete only while review is pending.
	assert.NoError(t, e.Authorize(owner, ActionDeleteDocument, Resource{
		OwnerID: "owner-1", ReviewStatus: domain.ReviewPending, DocumentStatus: domain.DocumentDraft,
	}))
	err := e.Authorize(owner, ActionDeleteDocument, Resource{
		OwnerID: "owner-1", ReviewStatus: domain.ReviewApproved, DocumentStatus: domain.DocumentSubmitted,
	})
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)

	// Reviewers may delete non-draft documents.
	assert.NoError(t, e.Authorize(actor(domain.RoleAdmin), ActionDeleteDocument, Resource{
		OwnerID: "owner-1", ReviewStatus: domain.ReviewApproved, DocumentStatus: domain.DocumentSubmitted,
	}))
}

func TestAuthorize_AssignTicket(t *testing.T) {
	e := New()

	for _, target := range []domain.Role{domain.RoleExpert, domain.RoleAdmin, domain.RoleCustomer} {
		assert.NoError(t, e.Authorize(actor(domain.RoleAdmin), ActionAssignTicket, Resource{TargetRole: target}))
	}

	// Targets outside the allowed set are rejected.
	for _, target := range []domain.Role{domain.RoleAnalyst, domain.RoleSuperadmin, domain.RoleSuspended} {
		err := e.Authorize(actor(domain.RoleSuperadmin), ActionAssignTicket, Resource{TargetRole: target})
		var validation *domain.ValidationError
		assert.ErrorAs(t, err, &validation, "target %s", target)
	}

	var denied *domain.AccessDeniedError
	err := e.Authorize(actor(domain.RoleExpert), ActionAssignTicket, Resource{TargetRole: domain.RoleCustomer})
	assert.ErrorAs(t, err, &denied)
}

func TestAuthorize_UnknownAction(t *testing.T) {
	e := New()

	err := e.Authorize(actor(domain.RoleSuperadmin), Action("nope"), Resource{})
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}
