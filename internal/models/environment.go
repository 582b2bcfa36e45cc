package models

import (
	"github.com/google/uuid"
)

// EnvironmentType enumerates temperature-controlled zone types
type EnvironmentType string

const (
	EnvColdStorage  EnvironmentType = "cold_storage"
	EnvBlastFreezer EnvironmentType = "blast_freezer"
	EnvChiller      EnvironmentType = "chiller"
	EnvOther        EnvironmentType = "other"
)

// EnvironmentStatus enumerates environment lifecycle states
type EnvironmentStatus string

const (
	EnvironmentActive   EnvironmentStatus = "active"
	EnvironmentInactive EnvironmentStatus = "inactive"
)

// HealthStatus classifies an environment by its latest readings against
// its thresholds
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
	HealthUnknown  HealthStatus = "unknown"
)

// Thresholds holds the warning and critical temperature bounds of an
// environment. Warning bounds must sit inside the critical bounds.
type Thresholds struct {
	WarningMin  float64 `json:"warningMin" db:"warning_min"`
	WarningMax  float64 `json:"warningMax" db:"warning_max"`
	CriticalMin float64 `json:"criticalMin" db:"critical_min"`
	CriticalMax float64 `json:"criticalMax" db:"critical_max"`
}

// Classify returns the health status of a single temperature value.
func (t Thresholds) Classify(value float64) HealthStatus {
	if value < t.CriticalMin || value > t.CriticalMax {
		return HealthCritical
	}
	if value < t.WarningMin || value > t.WarningMax {
		return HealthWarning
	}
	return HealthHealthy
}

// Valid reports whether the bounds are ordered.
func (t Thresholds) Valid() bool {
	return t.CriticalMin <= t.WarningMin &&
		t.WarningMin < t.WarningMax &&
		t.WarningMax <= t.CriticalMax
}

// Environment represents a temperature-controlled zone within a site.
// TenantID is denormalized from the owning site and maintained inside the
// insert transaction.
type Environment struct {
	TenantModel

	SiteID uuid.UUID `json:"siteId" db:"site_id"`

	Name   string            `json:"name" db:"name"`
	Type   EnvironmentType   `json:"type" db:"environment_type"`
	Status EnvironmentStatus `json:"status" db:"status"`

	Thresholds Thresholds `json:"thresholds"`
}
