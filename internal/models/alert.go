package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertLevel enumerates alert severities
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// AlertStatus enumerates alert lifecycle states
type AlertStatus string

const (
	AlertOpen         AlertStatus = "open"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// Alert represents a threshold-violation event tied to a sensor
type Alert struct {
	TenantModel

	SiteID        uuid.UUID `json:"siteId" db:"site_id"`
	EnvironmentID uuid.UUID `json:"environmentId" db:"environment_id"`
	SensorID      uuid.UUID `json:"sensorId" db:"sensor_id"`

	Level   AlertLevel  `json:"level" db:"level"`
	Status  AlertStatus `json:"status" db:"status"`
	Message string      `json:"message" db:"message"`

	// Bounds violated at open time.
	ThresholdMin float64 `json:"thresholdMin" db:"threshold_min"`
	ThresholdMax float64 `json:"thresholdMax" db:"threshold_max"`
	Value        float64 `json:"value" db:"value"`

	OpenedAt       time.Time  `json:"openedAt" db:"opened_at"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty" db:"acknowledged_at"`
	AcknowledgedBy *uuid.UUID `json:"acknowledgedBy,omitempty" db:"acknowledged_by"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty" db:"resolved_at"`
	ResolvedBy     *uuid.UUID `json:"resolvedBy,omitempty" db:"resolved_by"`
}

// IsOpen reports whether the alert still needs attention.
func (a *Alert) IsOpen() bool {
	return a.Status == AlertOpen || a.Status == AlertAcknowledged
}
