package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

func TestPolicyRoleGates(t *testing.T) {
	policy := NewPolicy()
	tenantID := uuid.New()

	admin := adminProfile()
	master := masterProfile(tenantID)
	user := userProfile(tenantID)

	// Reads are open to every role.
	for _, p := range []*models.Profile{admin, master, user} {
		d := policy.Authorize(p, ActionSiteRead, Resource{})
		assert.True(t, d.Allowed, "site.read for %s", p.Role)
	}

	// Writes exclude plain users.
	d := policy.Authorize(user, ActionSiteWrite, Resource{})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyForbidden, d.Reason)

	// Admin-only surface.
	d = policy.Authorize(master, ActionAdminRead, Resource{})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyForbidden, d.Reason)

	d = policy.Authorize(admin, ActionAdminRead, Resource{})
	assert.True(t, d.Allowed)

	// Alert management excludes the platform admin.
	d = policy.Authorize(admin, ActionAlertManage, Resource{})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyForbidden, d.Reason)

	d = policy.Authorize(master, ActionAlertManage, Resource{TenantID: &tenantID})
	assert.True(t, d.Allowed)
}

func TestPolicyTenantMismatchIsNotFound(t *testing.T) {
	policy := NewPolicy()
	tenantA := uuid.New()
	tenantB := uuid.New()

	master := masterProfile(tenantA)

	// A resource in another tenant denies as not-found, so existence
	// never leaks across organizations.
	d := policy.Authorize(master, ActionSiteWrite, Resource{TenantID: &tenantB})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyNotFound, d.Reason)

	// Same tenant passes.
	d = policy.Authorize(master, ActionSiteWrite, Resource{TenantID: &tenantA})
	assert.True(t, d.Allowed)

	// Admin crosses tenants.
	d = policy.Authorize(adminProfile(), ActionSiteWrite, Resource{TenantID: &tenantB})
	assert.True(t, d.Allowed)
}

func TestPolicySiteAccessList(t *testing.T) {
	policy := NewPolicy()
	tenantID := uuid.New()
	siteA := uuid.New()
	siteB := uuid.New()

	restricted := userProfile(tenantID)
	restricted.SiteAccess = models.UUIDArray{siteA}

	d := policy.Authorize(restricted, ActionSiteRead, Resource{SiteID: siteA})
	assert.True(t, d.Allowed)

	d = policy.Authorize(restricted, ActionSiteRead, Resource{SiteID: siteB})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyNotFound, d.Reason)
}

func TestPolicyBrokenProfiles(t *testing.T) {
	policy := NewPolicy()

	d := policy.Authorize(nil, ActionSiteRead, Resource{})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyForbidden, d.Reason)

	// Non-admin with no tenant cannot act on tenant-scoped surface.
	orphan := &models.Profile{ID: uuid.New(), Role: models.RoleMasterUser, IsActive: true}
	d = policy.Authorize(orphan, ActionSiteWrite, Resource{})
	assert.False(t, d.Allowed)
}
