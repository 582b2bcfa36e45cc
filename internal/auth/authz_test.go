package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

func adminProfile() *models.Profile {
	return &models.Profile{
		ID:       uuid.New(),
		Email:    "admin@example.com",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
}

func masterProfile(tenantID uuid.UUID) *models.Profile {
	return &models.Profile{
		ID:       uuid.New(),
		Email:    "master@example.com",
		Role:     models.RoleMasterUser,
		TenantID: &tenantID,
		IsActive: true,
	}
}

func userProfile(tenantID uuid.UUID) *models.Profile {
	return &models.Profile{
		ID:       uuid.New(),
		Email:    "user@example.com",
		Role:     models.RoleUser,
		TenantID: &tenantID,
		IsActive: true,
	}
}

func TestHasRole(t *testing.T) {
	tenantID := uuid.New()

	assert.True(t, HasRole(adminProfile(), models.RoleAdmin))
	assert.True(t, HasRole(masterProfile(tenantID), models.RoleAdmin, models.RoleMasterUser))
	assert.False(t, HasRole(userProfile(tenantID), models.RoleAdmin, models.RoleMasterUser))
	assert.False(t, HasRole(nil, models.RoleAdmin))
}

func TestCanAccessSite(t *testing.T) {
	tenantID := uuid.New()
	siteA := uuid.New()
	siteB := uuid.New()

	// Admins always pass, tenant or not.
	assert.True(t, CanAccessSite(adminProfile(), siteA))

	// A non-admin without a tenant never passes.
	broken := masterProfile(tenantID)
	broken.TenantID = nil
	assert.False(t, CanAccessSite(broken, siteA))

	// Empty site-access list means all sites of the tenant.
	assert.True(t, CanAccessSite(userProfile(tenantID), siteA))

	// A non-empty list restricts to its members.
	restricted := userProfile(tenantID)
	restricted.SiteAccess = models.UUIDArray{siteA}
	assert.True(t, CanAccessSite(restricted, siteA))
	assert.False(t, CanAccessSite(restricted, siteB))

	assert.False(t, CanAccessSite(nil, siteA))
}

func TestManagementPredicates(t *testing.T) {
	tenantID := uuid.New()
	admin := adminProfile()
	master := masterProfile(tenantID)
	user := userProfile(tenantID)

	assert.True(t, CanManageUsers(admin))
	assert.False(t, CanManageUsers(master))
	assert.False(t, CanManageUsers(user))

	assert.True(t, CanManageOrganizations(admin))
	assert.False(t, CanManageOrganizations(master))

	// Alert and threshold handling belongs to the organization master,
	// not the platform admin.
	assert.False(t, CanManageAlerts(admin))
	assert.True(t, CanManageAlerts(master))
	assert.False(t, CanManageAlerts(user))

	assert.False(t, CanManageThresholds(admin))
	assert.True(t, CanManageThresholds(master))
	assert.False(t, CanManageThresholds(user))
}

func TestValidateOrganizationAccess(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	// Admin crosses tenants freely, even with no tenant of its own.
	assert.True(t, ValidateOrganizationAccess(nil, &tenantA, models.RoleAdmin))
	assert.True(t, ValidateOrganizationAccess(&tenantA, &tenantB, models.RoleAdmin))

	// Non-admins need exact tenant equality.
	assert.True(t, ValidateOrganizationAccess(&tenantA, &tenantA, models.RoleMasterUser))
	assert.False(t, ValidateOrganizationAccess(&tenantA, &tenantB, models.RoleMasterUser))
	assert.False(t, ValidateOrganizationAccess(&tenantA, &tenantB, models.RoleUser))

	// Nil on either side fails for non-admins.
	assert.False(t, ValidateOrganizationAccess(nil, &tenantA, models.RoleUser))
	assert.False(t, ValidateOrganizationAccess(&tenantA, nil, models.RoleUser))
}

func TestOrganizationSiteFilter(t *testing.T) {
	tenantID := uuid.New()

	// The filter is unscoped exactly for admins.
	assert.Nil(t, OrganizationSiteFilter(adminProfile()))

	filter := OrganizationSiteFilter(masterProfile(tenantID))
	if assert.NotNil(t, filter) {
		assert.Equal(t, tenantID, *filter)
	}

	// A non-admin without a tenant must match nothing, never everything.
	broken := userProfile(tenantID)
	broken.TenantID = nil
	filter = OrganizationSiteFilter(broken)
	if assert.NotNil(t, filter) {
		assert.Equal(t, uuid.Nil, *filter)
	}

	filter = OrganizationSiteFilter(nil)
	if assert.NotNil(t, filter) {
		assert.Equal(t, uuid.Nil, *filter)
	}
}

func TestProfileExpiry(t *testing.T) {
	tenantID := uuid.New()
	now := time.Now()

	p := userProfile(tenantID)
	assert.False(t, p.IsExpired(now))

	past := now.Add(-time.Hour)
	p.ExpiresAt = &past
	assert.True(t, p.IsExpired(now))

	future := now.Add(time.Hour)
	p.ExpiresAt = &future
	assert.False(t, p.IsExpired(now))
}
