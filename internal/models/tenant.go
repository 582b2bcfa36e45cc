package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantPlan enumerates billing plans
type TenantPlan string

const (
	PlanBasic      TenantPlan = "basic"
	PlanPro        TenantPlan = "pro"
	PlanEnterprise TenantPlan = "enterprise"
)

// TenantStatus enumerates tenant lifecycle states
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantCancelled TenantStatus = "cancelled"
)

// Tenant represents an organization
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`

	Plan   TenantPlan   `json:"plan" db:"plan"`
	Status TenantStatus `json:"status" db:"status"`

	MaxUsers int `json:"maxUsers" db:"max_users"`

	BillingEmail string `json:"billingEmail,omitempty" db:"billing_email"`

	SuspendedAt *time.Time `json:"suspendedAt,omitempty" db:"suspended_at"`
}

// IsActive reports whether the tenant may be served.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantActive
}
