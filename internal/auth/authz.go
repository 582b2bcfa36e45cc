package auth

import (
	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// Authorization predicates. All are pure, synchronous and total: they
// never touch storage and never return an error. Tenant matching on
// specific resources is enforced by the query filters in the storage
// layer; these predicates answer the role-level questions.

// HasRole reports whether the profile holds one of the given roles.
func HasRole(p *models.Profile, roles ...models.Role) bool {
	if p == nil {
		return false
	}
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// CanAccessSite reports whether the profile may touch the given site.
// Admins always may. Non-admins need a tenant, and when the profile
// carries an explicit site-access list the site must be on it. The
// site-tenant match itself is deferred to the query filter.
func CanAccessSite(p *models.Profile, siteID uuid.UUID) bool {
	if p == nil {
		return false
	}
	if p.Role == models.RoleAdmin {
		return true
	}
	if p.TenantID == nil {
		return false
	}
	if len(p.SiteAccess) > 0 && siteID != uuid.Nil {
		return p.SiteAccess.Contains(siteID)
	}
	return true
}

// CanManageUsers reports whether the profile may create or modify users.
func CanManageUsers(p *models.Profile) bool {
	return HasRole(p, models.RoleAdmin)
}

// CanManageOrganizations reports whether the profile may create or modify
// tenants.
func CanManageOrganizations(p *models.Profile) bool {
	return HasRole(p, models.RoleAdmin)
}

// CanManageAlerts reports whether the profile may acknowledge or resolve
// alerts. Alert handling belongs to the organization; admins are
// read-only here.
func CanManageAlerts(p *models.Profile) bool {
	return HasRole(p, models.RoleMasterUser)
}

// CanManageThresholds reports whether the profile may change environment
// thresholds. Same ownership rule as alerts.
func CanManageThresholds(p *models.Profile) bool {
	return HasRole(p, models.RoleMasterUser)
}

// ValidateOrganizationAccess reports whether a caller of the given role
// and tenant may touch a resource of resourceTenantID.
func ValidateOrganizationAccess(userTenantID, resourceTenantID *uuid.UUID, role models.Role) bool {
	if role == models.RoleAdmin {
		return true
	}
	if userTenantID == nil || resourceTenantID == nil {
		return false
	}
	return *userTenantID == *resourceTenantID
}

// matchNothing is the tenant filter handed out for broken non-admin
// profiles (nil tenant): the zero uuid, which no row carries.
var matchNothing = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// OrganizationSiteFilter returns the tenant filter to apply to list
// queries: nil (unscoped) for admins, the profile's tenant otherwise.
// A non-admin without a tenant gets a filter that matches nothing.
func OrganizationSiteFilter(p *models.Profile) *uuid.UUID {
	if p == nil {
		return &matchNothing
	}
	if p.Role == models.RoleAdmin {
		return nil
	}
	if p.TenantID == nil {
		return &matchNothing
	}
	return p.TenantID
}
