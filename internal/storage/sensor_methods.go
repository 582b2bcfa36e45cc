package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Sensor Methods ==========

const sensorColumns = `id, created_at, updated_at, tenant_id, site_id, environment_id,
        local_id, property, status, battery_level, last_reading_at, last_reading_value`

// CreateSensor creates a new sensor. Denormalized site_id and tenant_id are
// derived from the owning environment inside the INSERT. A non-nil tenantID
// additionally requires the environment to belong to that tenant.
func (s *PostgresStore) CreateSensor(ctx context.Context, sensor *models.Sensor, tenantID *uuid.UUID) error {
	if sensor.ID == uuid.Nil {
		sensor.ID = uuid.New()
	}

	now := time.Now()
	sensor.CreatedAt = now
	sensor.UpdatedAt = now

	if sensor.Status == "" {
		sensor.Status = models.SensorActive
	}
	if sensor.Property == "" {
		sensor.Property = "temperature_c"
	}

	query := `
        INSERT INTO sensors (id, created_at, updated_at, tenant_id, site_id, environment_id,
            local_id, property, status, battery_level)
        SELECT $1, $2, $3, e.tenant_id, e.site_id, e.id, $4, $5, $6, $7
        FROM environments e
        WHERE e.id = $8 AND ($9::uuid IS NULL OR e.tenant_id = $9)
        RETURNING tenant_id, site_id`

	err := s.getDB().QueryRowContext(ctx, query,
		sensor.ID, sensor.CreatedAt, sensor.UpdatedAt,
		sensor.LocalID, sensor.Property, sensor.Status, sensor.BatteryLevel,
		sensor.EnvironmentID, tenantID,
	).Scan(&sensor.TenantID, &sensor.SiteID)

	return mapError(err)
}

// GetSensor gets a sensor by id, optionally tenant-scoped
func (s *PostgresStore) GetSensor(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Sensor, error) {
	query := `
        SELECT ` + sensorColumns + `
        FROM sensors
        WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`

	sensor := &models.Sensor{}
	err := s.getDB().QueryRowContext(ctx, query, id, tenantID).Scan(
		&sensor.ID, &sensor.CreatedAt, &sensor.UpdatedAt, &sensor.TenantID,
		&sensor.SiteID, &sensor.EnvironmentID, &sensor.LocalID, &sensor.Property,
		&sensor.Status, &sensor.BatteryLevel, &sensor.LastReadingAt, &sensor.LastReadingVal,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return sensor, nil
}

// UpdateSensor updates a sensor
func (s *PostgresStore) UpdateSensor(ctx context.Context, sensor *models.Sensor) error {
	sensor.UpdatedAt = time.Now()

	query := `
        UPDATE sensors
        SET updated_at = $2, local_id = $3, property = $4, status = $5,
            battery_level = $6, last_reading_at = $7, last_reading_value = $8
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		sensor.ID, sensor.UpdatedAt, sensor.LocalID, sensor.Property, sensor.Status,
		sensor.BatteryLevel, sensor.LastReadingAt, sensor.LastReadingVal,
	)
	if err != nil {
		return mapError(err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteSensor deletes a sensor and cascades to its readings and alerts
func (s *PostgresStore) DeleteSensor(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) error {
	query := `DELETE FROM sensors WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`

	result, err := s.getDB().ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return mapError(err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListSensors lists sensors matching the filters
func (s *PostgresStore) ListSensors(ctx context.Context, filters SensorFilters, limit, offset int) ([]*models.Sensor, int64, error) {
	where := `
        WHERE ($1::uuid IS NULL OR tenant_id = $1)
          AND ($2::uuid IS NULL OR site_id = $2)
          AND ($3::uuid IS NULL OR environment_id = $3)
          AND ($4::text IS NULL OR status = $4)`

	var status *string
	if filters.Status != nil {
		v := string(*filters.Status)
		status = &v
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM sensors` + where
	err := s.getDB().QueryRowContext(ctx, countQuery,
		filters.TenantID, filters.SiteID, filters.EnvironmentID, status).Scan(&total)
	if err != nil {
		return nil, 0, mapError(err)
	}

	query := `
        SELECT ` + sensorColumns + `
        FROM sensors` + where + `
        ORDER BY local_id
        LIMIT $5 OFFSET $6`

	rows, err := s.getDB().QueryContext(ctx, query,
		filters.TenantID, filters.SiteID, filters.EnvironmentID, status, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var sensors []*models.Sensor
	for rows.Next() {
		sensor := &models.Sensor{}
		err := rows.Scan(
			&sensor.ID, &sensor.CreatedAt, &sensor.UpdatedAt, &sensor.TenantID,
			&sensor.SiteID, &sensor.EnvironmentID, &sensor.LocalID, &sensor.Property,
			&sensor.Status, &sensor.BatteryLevel, &sensor.LastReadingAt, &sensor.LastReadingVal,
		)
		if err != nil {
			return nil, 0, err
		}
		sensors = append(sensors, sensor)
	}

	return sensors, total, rows.Err()
}
