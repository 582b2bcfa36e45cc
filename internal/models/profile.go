package models

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates application roles.
//
// The canonical set is admin / master_user / user. Legacy deployments used
// master, site_manager and auditor; ParseRole folds those onto the canonical
// set so old rows keep working.
type Role string

const (
	// RoleAdmin is the platform operator. Cross-tenant read access,
	// organization and user management; alerts and thresholds read-only.
	RoleAdmin Role = "admin"

	// RoleMasterUser administers a single organization: full CRUD on its
	// sites, environments and sensors, and alert/threshold management.
	RoleMasterUser Role = "master_user"

	// RoleUser has read-only access within its organization.
	RoleUser Role = "user"
)

// ParseRole maps a stored role string onto the canonical set.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "master_user", "master", "site_manager":
		return RoleMasterUser
	default:
		return RoleUser
	}
}

// Profile represents an application user record, distinct from the raw
// authentication identity.
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role Role `json:"role" db:"role"`

	// TenantID is nil only for platform admins.
	TenantID *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`

	// SiteAccess restricts a non-admin profile to an explicit set of sites.
	// Empty means all sites of the tenant.
	SiteAccess UUIDArray `json:"siteAccess,omitempty" db:"site_access"`

	// ExpiresAt carries the legacy auditor-style account expiry. Expired
	// profiles are treated as unauthenticated.
	ExpiresAt *time.Time `json:"expiresAt,omitempty" db:"expires_at"`

	IsActive bool `json:"isActive" db:"is_active"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	Settings Variables `json:"settings" db:"settings"`
}

// IsExpired reports whether the profile's account expiry has passed.
func (p *Profile) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// IsAdmin reports whether the profile is a platform admin.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
