package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Alert Methods ==========

const alertColumns = `id, created_at, updated_at, tenant_id, site_id, environment_id, sensor_id,
        level, status, message, threshold_min, threshold_max, value,
        opened_at, acknowledged_at, acknowledged_by, resolved_at, resolved_by`

// CreateAlert creates a new alert
func (s *PostgresStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}

	now := time.Now()
	alert.CreatedAt = now
	alert.UpdatedAt = now
	if alert.OpenedAt.IsZero() {
		alert.OpenedAt = now
	}
	if alert.Status == "" {
		alert.Status = models.AlertOpen
	}

	query := `
        INSERT INTO alerts (` + alertColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := s.getDB().ExecContext(ctx, query,
		alert.ID, alert.CreatedAt, alert.UpdatedAt, alert.TenantID, alert.SiteID,
		alert.EnvironmentID, alert.SensorID, alert.Level, alert.Status, alert.Message,
		alert.ThresholdMin, alert.ThresholdMax, alert.Value,
		alert.OpenedAt, alert.AcknowledgedAt, alert.AcknowledgedBy,
		alert.ResolvedAt, alert.ResolvedBy,
	)

	return mapError(err)
}

// GetAlert gets an alert by id, optionally tenant-scoped
func (s *PostgresStore) GetAlert(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Alert, error) {
	query := `
        SELECT ` + alertColumns + `
        FROM alerts
        WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`

	alert := &models.Alert{}
	err := s.getDB().QueryRowContext(ctx, query, id, tenantID).Scan(
		&alert.ID, &alert.CreatedAt, &alert.UpdatedAt, &alert.TenantID, &alert.SiteID,
		&alert.EnvironmentID, &alert.SensorID, &alert.Level, &alert.Status, &alert.Message,
		&alert.ThresholdMin, &alert.ThresholdMax, &alert.Value,
		&alert.OpenedAt, &alert.AcknowledgedAt, &alert.AcknowledgedBy,
		&alert.ResolvedAt, &alert.ResolvedBy,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return alert, nil
}

// UpdateAlert updates an alert's lifecycle fields
func (s *PostgresStore) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	alert.UpdatedAt = time.Now()

	query := `
        UPDATE alerts
        SET updated_at = $2, level = $3, status = $4, message = $5, value = $6,
            acknowledged_at = $7, acknowledged_by = $8, resolved_at = $9, resolved_by = $10
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		alert.ID, alert.UpdatedAt, alert.Level, alert.Status, alert.Message, alert.Value,
		alert.AcknowledgedAt, alert.AcknowledgedBy, alert.ResolvedAt, alert.ResolvedBy,
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

// ListAlerts lists alerts matching the filters, newest first
func (s *PostgresStore) ListAlerts(ctx context.Context, filters AlertFilters, limit, offset int) ([]*models.Alert, int64, error) {
	where := `
        WHERE ($1::uuid IS NULL OR tenant_id = $1)
          AND ($2::uuid IS NULL OR site_id = $2)
          AND ($3::uuid IS NULL OR environment_id = $3)
          AND ($4::uuid IS NULL OR sensor_id = $4)
          AND ($5::text IS NULL OR status = $5)
          AND ($6::text IS NULL OR level = $6)`

	var status, level *string
	if filters.Status != nil {
		v := string(*filters.Status)
		status = &v
	}
	if filters.Level != nil {
		v := string(*filters.Level)
		level = &v
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM alerts` + where
	err := s.getDB().QueryRowContext(ctx, countQuery,
		filters.TenantID, filters.SiteID, filters.EnvironmentID, filters.SensorID,
		status, level).Scan(&total)
	if err != nil {
		return nil, 0, mapError(err)
	}

	query := `
        SELECT ` + alertColumns + `
        FROM alerts` + where + `
        ORDER BY opened_at DESC
        LIMIT $7 OFFSET $8`

	rows, err := s.getDB().QueryContext(ctx, query,
		filters.TenantID, filters.SiteID, filters.EnvironmentID, filters.SensorID,
		status, level, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert := &models.Alert{}
		err := rows.Scan(
			&alert.ID, &alert.CreatedAt, &alert.UpdatedAt, &alert.TenantID, &alert.SiteID,
			&alert.EnvironmentID, &alert.SensorID, &alert.Level, &alert.Status, &alert.Message,
			&alert.ThresholdMin, &alert.ThresholdMax, &alert.Value,
			&alert.OpenedAt, &alert.AcknowledgedAt, &alert.AcknowledgedBy,
			&alert.ResolvedAt, &alert.ResolvedBy,
		)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, alert)
	}

	return alerts, total, rows.Err()
}

// GetOpenAlertForSensor returns the sensor's open or acknowledged alert,
// or ErrNotFound. At most one alert per sensor is open at a time.
func (s *PostgresStore) GetOpenAlertForSensor(ctx context.Context, sensorID uuid.UUID) (*models.Alert, error) {
	query := `
        SELECT ` + alertColumns + `
        FROM alerts
        WHERE sensor_id = $1 AND status IN ('open', 'acknowledged')
        ORDER BY opened_at DESC
        LIMIT 1`

	alert := &models.Alert{}
	err := s.getDB().QueryRowContext(ctx, query, sensorID).Scan(
		&alert.ID, &alert.CreatedAt, &alert.UpdatedAt, &alert.TenantID, &alert.SiteID,
		&alert.EnvironmentID, &alert.SensorID, &alert.Level, &alert.Status, &alert.Message,
		&alert.ThresholdMin, &alert.ThresholdMax, &alert.Value,
		&alert.OpenedAt, &alert.AcknowledgedAt, &alert.AcknowledgedBy,
		&alert.ResolvedAt, &alert.ResolvedBy,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return alert, nil
}
