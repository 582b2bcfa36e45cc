package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrHasDependents = errors.New("resource has dependents")
	ErrInvalidData   = errors.New("invalid data")
)

// AlertFilters represents filters for alert listings. Nil fields are
// unconstrained. TenantID nil means cross-tenant (admin only).
type AlertFilters struct {
	TenantID      *uuid.UUID
	SiteID        *uuid.UUID
	EnvironmentID *uuid.UUID
	SensorID      *uuid.UUID
	Status        *models.AlertStatus
	Level         *models.AlertLevel
}

// SensorFilters represents filters for cross-entity sensor listings
type SensorFilters struct {
	TenantID      *uuid.UUID
	SiteID        *uuid.UUID
	EnvironmentID *uuid.UUID
	Status        *models.SensorStatus
}

// TenantOverview carries aggregate counts for one tenant's dashboard
type TenantOverview struct {
	Sites        int64 `json:"sites"`
	Environments int64 `json:"environments"`
	Sensors      int64 `json:"sensors"`
	OpenAlerts   int64 `json:"openAlerts"`

	EnvironmentsHealthy  int64 `json:"environmentsHealthy"`
	EnvironmentsWarning  int64 `json:"environmentsWarning"`
	EnvironmentsCritical int64 `json:"environmentsCritical"`
	EnvironmentsUnknown  int64 `json:"environmentsUnknown"`
}

// PlatformStats carries cross-tenant aggregate counts for the admin view
type PlatformStats struct {
	Tenants       int64 `json:"tenants"`
	ActiveTenants int64 `json:"activeTenants"`
	Sites         int64 `json:"sites"`
	Sensors       int64 `json:"sensors"`
	Profiles      int64 `json:"profiles"`
	OpenAlerts    int64 `json:"openAlerts"`
	Readings24h   int64 `json:"readings24h"`
}

// SearchHit is a single cross-tenant admin search result
type SearchHit struct {
	Kind     string     `json:"kind"` // tenant | site | sensor
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	TenantID *uuid.UUID `json:"tenantId,omitempty"`
}

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Profile methods
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	DeleteProfile(ctx context.Context, id uuid.UUID) error
	ListProfiles(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Profile, int64, error)
	TouchProfileLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, id uuid.UUID) error
	ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error)

	// Site methods. tenantID scopes the query; nil means unscoped (admin).
	CreateSite(ctx context.Context, site *models.Site) error
	GetSite(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Site, error)
	UpdateSite(ctx context.Context, site *models.Site) error
	DeleteSite(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) error
	ListSites(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Site, int64, error)
	GetSiteCounts(ctx context.Context, siteID uuid.UUID) (*models.SiteCounts, error)

	// Environment methods. Denormalized tenant_id is derived from the
	// owning site inside the insert statement.
	CreateEnvironment(ctx context.Context, env *models.Environment, tenantID *uuid.UUID) error
	GetEnvironment(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Environment, error)
	UpdateEnvironment(ctx context.Context, env *models.Environment) error
	DeleteEnvironment(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) error
	ListEnvironments(ctx context.Context, siteID uuid.UUID, tenantID *uuid.UUID, limit, offset int) ([]*models.Environment, int64, error)

	// Sensor methods. Denormalized tenant_id/site_id derive from the
	// owning environment inside the insert statement.
	CreateSensor(ctx context.Context, sensor *models.Sensor, tenantID *uuid.UUID) error
	GetSensor(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Sensor, error)
	UpdateSensor(ctx context.Context, sensor *models.Sensor) error
	DeleteSensor(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) error
	ListSensors(ctx context.Context, filters SensorFilters, limit, offset int) ([]*models.Sensor, int64, error)

	// Reading methods. Append-only.
	InsertReading(ctx context.Context, reading *models.Reading) error
	ListReadings(ctx context.Context, sensorID uuid.UUID, from, to time.Time, limit int) ([]*models.Reading, error)
	GetReadingStats(ctx context.Context, sensorID uuid.UUID, from, to time.Time) (*models.ReadingStats, error)

	// Alert methods
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Alert, error)
	UpdateAlert(ctx context.Context, alert *models.Alert) error
	ListAlerts(ctx context.Context, filters AlertFilters, limit, offset int) ([]*models.Alert, int64, error)
	GetOpenAlertForSensor(ctx context.Context, sensorID uuid.UUID) (*models.Alert, error)

	// Audit methods
	CreateAdminActivity(ctx context.Context, activity *models.AdminActivity) error
	ListAdminActivity(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.AdminActivity, int64, error)

	// Aggregation methods
	GetTenantOverview(ctx context.Context, tenantID uuid.UUID) (*TenantOverview, error)
	GetPlatformStats(ctx context.Context) (*PlatformStats, error)
	SearchPlatform(ctx context.Context, query string, limit int) ([]*SearchHit, error)

	// Close the store
	Close() error
}
