package auth

import (
	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// Action names an operation a handler wants to perform.
type Action string

const (
	ActionSiteRead    Action = "site.read"
	ActionSiteWrite   Action = "site.write"
	ActionEnvRead     Action = "environment.read"
	ActionEnvWrite    Action = "environment.write"
	ActionSensorRead  Action = "sensor.read"
	ActionSensorWrite Action = "sensor.write"
	ActionReadingRead Action = "reading.read"

	ActionAlertRead       Action = "alert.read"
	ActionAlertManage     Action = "alert.manage"
	ActionThresholdManage Action = "threshold.manage"

	ActionUserRead   Action = "user.read"
	ActionUserManage Action = "user.manage"
	ActionOrgManage  Action = "org.manage"
	ActionAdminRead  Action = "admin.read"
)

// Resource identifies what the action targets. The zero value means "no
// specific resource" (e.g. list within the caller's own tenant).
type Resource struct {
	TenantID *uuid.UUID
	SiteID   uuid.UUID
}

// DenyReason distinguishes the two ways a request fails authorization.
type DenyReason int

const (
	// DenyForbidden maps to HTTP 403: the caller's role cannot perform
	// the action at all.
	DenyForbidden DenyReason = iota

	// DenyNotFound maps to HTTP 404: the caller's role could perform the
	// action, but the resource sits outside its tenant. Conflated with
	// missing resources so existence never leaks across tenants.
	DenyNotFound
)

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var (
	allow         = Decision{Allowed: true}
	denyForbidden = Decision{Reason: DenyForbidden}
	denyNotFound  = Decision{Reason: DenyNotFound}
)

// Policy is the single authorization gate. Every handler asks it before
// touching storage, instead of re-implementing role checks inline.
type Policy struct{}

// NewPolicy creates the policy gate.
func NewPolicy() *Policy {
	return &Policy{}
}

// roleAllows maps each action onto the roles permitted to perform it.
var roleAllows = map[Action][]models.Role{
	ActionSiteRead:    {models.RoleAdmin, models.RoleMasterUser, models.RoleUser},
	ActionSiteWrite:   {models.RoleAdmin, models.RoleMasterUser},
	ActionEnvRead:     {models.RoleAdmin, models.RoleMasterUser, models.RoleUser},
	ActionEnvWrite:    {models.RoleAdmin, models.RoleMasterUser},
	ActionSensorRead:  {models.RoleAdmin, models.RoleMasterUser, models.RoleUser},
	ActionSensorWrite: {models.RoleAdmin, models.RoleMasterUser},
	ActionReadingRead: {models.RoleAdmin, models.RoleMasterUser, models.RoleUser},

	ActionAlertRead: {models.RoleAdmin, models.RoleMasterUser, models.RoleUser},

	// Alert and threshold management belong to the organization; platform
	// admins stay read-only on these.
	ActionAlertManage:     {models.RoleMasterUser},
	ActionThresholdManage: {models.RoleMasterUser},

	ActionUserRead:   {models.RoleAdmin, models.RoleMasterUser},
	ActionUserManage: {models.RoleAdmin},
	ActionOrgManage:  {models.RoleAdmin},
	ActionAdminRead:  {models.RoleAdmin},
}

// Authorize decides whether the profile may perform action on resource.
func (p *Policy) Authorize(profile *models.Profile, action Action, res Resource) Decision {
	if profile == nil {
		return denyForbidden
	}

	if !HasRole(profile, roleAllows[action]...) {
		return denyForbidden
	}

	if profile.Role == models.RoleAdmin {
		return allow
	}

	// Non-admins must stay inside their tenant. A mismatch is reported as
	// not-found, never as forbidden.
	if res.TenantID != nil {
		if !ValidateOrganizationAccess(profile.TenantID, res.TenantID, profile.Role) {
			return denyNotFound
		}
	} else if profile.TenantID == nil {
		return denyForbidden
	}

	if res.SiteID != uuid.Nil && !CanAccessSite(profile, res.SiteID) {
		return denyNotFound
	}

	return allow
}
