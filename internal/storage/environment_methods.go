package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Environment Methods ==========

const environmentColumns = `id, created_at, updated_at, tenant_id, site_id, name,
        environment_type, status, warning_min, warning_max, critical_min, critical_max`

// CreateEnvironment creates a new environment. The denormalized tenant_id
// is derived from the owning site inside the INSERT, so the child can never
// disagree with its parent. A non-nil tenantID additionally requires the
// site to belong to that tenant; a missing or out-of-tenant site surfaces
// as ErrNotFound.
func (s *PostgresStore) CreateEnvironment(ctx context.Context, env *models.Environment, tenantID *uuid.UUID) error {
	if env.ID == uuid.Nil {
		env.ID = uuid.New()
	}

	now := time.Now()
	env.CreatedAt = now
	env.UpdatedAt = now

	if env.Status == "" {
		env.Status = models.EnvironmentActive
	}

	query := `
        INSERT INTO environments (id, created_at, updated_at, tenant_id, site_id, name,
            environment_type, status, warning_min, warning_max, critical_min, critical_max)
        SELECT $1, $2, $3, s.tenant_id, s.id, $4, $5, $6, $7, $8, $9, $10
        FROM sites s
        WHERE s.id = $11 AND ($12::uuid IS NULL OR s.tenant_id = $12)
        RETURNING tenant_id`

	err := s.getDB().QueryRowContext(ctx, query,
		env.ID, env.CreatedAt, env.UpdatedAt, env.Name, env.Type, env.Status,
		env.Thresholds.WarningMin, env.Thresholds.WarningMax,
		env.Thresholds.CriticalMin, env.Thresholds.CriticalMax,
		env.SiteID, tenantID,
	).Scan(&env.TenantID)

	return mapError(err)
}

// GetEnvironment gets an environment by id, optionally tenant-scoped
func (s *PostgresStore) GetEnvironment(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Environment, error) {
	query := `
        SELECT ` + environmentColumns + `
        FROM environments
        WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`

	env := &models.Environment{}
	err := s.getDB().QueryRowContext(ctx, query, id, tenantID).Scan(
		&env.ID, &env.CreatedAt, &env.UpdatedAt, &env.TenantID, &env.SiteID, &env.Name,
		&env.Type, &env.Status,
		&env.Thresholds.WarningMin, &env.Thresholds.WarningMax,
		&env.Thresholds.CriticalMin, &env.Thresholds.CriticalMax,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return env, nil
}

// UpdateEnvironment updates an environment, thresholds included
func (s *PostgresStore) UpdateEnvironment(ctx context.Context, env *models.Environment) error {
	env.UpdatedAt = time.Now()

	query := `
        UPDATE environments
        SET updated_at = $2, name = $3, environment_type = $4, status = $5,
            warning_min = $6, warning_max = $7, critical_min = $8, critical_max = $9
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		env.ID, env.UpdatedAt, env.Name, env.Type, env.Status,
		env.Thresholds.WarningMin, env.Thresholds.WarningMax,
		env.Thresholds.CriticalMin, env.Thresholds.CriticalMax,
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

// DeleteEnvironment deletes an environment and cascades to its sensors
func (s *PostgresStore) DeleteEnvironment(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) error {
	query := `DELETE FROM environments WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`

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

// ListEnvironments lists environments of a site, optionally tenant-scoped
func (s *PostgresStore) ListEnvironments(ctx context.Context, siteID uuid.UUID, tenantID *uuid.UUID, limit, offset int) ([]*models.Environment, int64, error) {
	var total int64
	countQuery := `
        SELECT COUNT(*) FROM environments
        WHERE site_id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`
	if err := s.getDB().QueryRowContext(ctx, countQuery, siteID, tenantID).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `
        SELECT ` + environmentColumns + `
        FROM environments
        WHERE site_id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)
        ORDER BY name
        LIMIT $3 OFFSET $4`

	rows, err := s.getDB().QueryContext(ctx, query, siteID, tenantID, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var envs []*models.Environment
	for rows.Next() {
		env := &models.Environment{}
		err := rows.Scan(
			&env.ID, &env.CreatedAt, &env.UpdatedAt, &env.TenantID, &env.SiteID, &env.Name,
			&env.Type, &env.Status,
			&env.Thresholds.WarningMin, &env.Thresholds.WarningMax,
			&env.Thresholds.CriticalMin, &env.Thresholds.CriticalMax,
		)
		if err != nil {
			return nil, 0, err
		}
		envs = append(envs, env)
	}

	return envs, total, rows.Err()
}
