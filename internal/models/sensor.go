package models

import (
	"time"

	"github.com/google/uuid"
)

// SensorStatus enumerates sensor lifecycle states
type SensorStatus string

const (
	SensorActive         SensorStatus = "active"
	SensorMaintenance    SensorStatus = "maintenance"
	SensorDecommissioned SensorStatus = "decommissioned"
)

// Sensor represents a device within an environment producing readings.
// SiteID and TenantID are denormalized from the owning environment and
// maintained inside the insert transaction.
type Sensor struct {
	TenantModel

	EnvironmentID uuid.UUID `json:"environmentId" db:"environment_id"`
	SiteID        uuid.UUID `json:"siteId" db:"site_id"`

	// LocalID is the identifier printed on the physical device.
	LocalID string `json:"localId" db:"local_id"`

	// Property is the measured quantity, e.g. temperature_c.
	Property string `json:"property" db:"property"`

	Status SensorStatus `json:"status" db:"status"`

	BatteryLevel   *float64   `json:"batteryLevel,omitempty" db:"battery_level"`
	LastReadingAt  *time.Time `json:"lastReadingAt,omitempty" db:"last_reading_at"`
	LastReadingVal *float64   `json:"lastReadingValue,omitempty" db:"last_reading_value"`
}

// Reading represents a timestamped measurement from a sensor.
// Append-only time series.
type Reading struct {
	Timestamp time.Time `json:"ts" db:"ts"`
	SensorID  uuid.UUID `json:"sensorId" db:"sensor_id"`
	Value     float64   `json:"value" db:"value"`
}

// ReadingStats carries aggregates over a reading window
type ReadingStats struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}
