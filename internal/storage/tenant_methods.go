package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Tenant Methods ==========

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	query := `
        INSERT INTO tenants (id, created_at, updated_at, name, slug, plan, status, max_users, billing_email)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.CreatedAt, tenant.UpdatedAt, tenant.Name, tenant.Slug,
		tenant.Plan, tenant.Status, tenant.MaxUsers, tenant.BillingEmail,
	)

	return mapError(err)
}

// GetTenant gets a tenant by id
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.getTenant(ctx, `WHERE id = $1`, id)
}

// GetTenantBySlug gets a tenant by slug
func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.getTenant(ctx, `WHERE slug = $1`, slug)
}

func (s *PostgresStore) getTenant(ctx context.Context, where string, arg interface{}) (*models.Tenant, error) {
	query := `
        SELECT id, created_at, updated_at, name, slug, plan, status, max_users, billing_email, suspended_at
        FROM tenants ` + where

	tenant := &models.Tenant{}
	err := s.getDB().QueryRowContext(ctx, query, arg).Scan(
		&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name, &tenant.Slug,
		&tenant.Plan, &tenant.Status, &tenant.MaxUsers, &tenant.BillingEmail, &tenant.SuspendedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return tenant, nil
}

// UpdateTenant updates a tenant
func (s *PostgresStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()

	query := `
        UPDATE tenants
        SET updated_at = $2, name = $3, slug = $4, plan = $5, status = $6,
            max_users = $7, billing_email = $8, suspended_at = $9
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.UpdatedAt, tenant.Name, tenant.Slug, tenant.Plan,
		tenant.Status, tenant.MaxUsers, tenant.BillingEmail, tenant.SuspendedAt,
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

// DeleteTenant deletes a tenant. Fails with ErrHasDependents while the
// tenant still owns sites. The dependents guard sits inside the DELETE so
// a site created concurrently cannot slip past it.
func (s *PostgresStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	query := `
        DELETE FROM tenants
        WHERE id = $1
          AND NOT EXISTS (SELECT 1 FROM sites WHERE tenant_id = $1)`

	result, err := s.getDB().ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		err := s.getDB().QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return mapError(err)
		}
		if exists {
			return ErrHasDependents
		}
		return ErrNotFound
	}

	return nil
}

// ListTenants lists tenants
func (s *PostgresStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `
        SELECT id, created_at, updated_at, name, slug, plan, status, max_users, billing_email, suspended_at
        FROM tenants
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		err := rows.Scan(
			&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.Name, &tenant.Slug,
			&tenant.Plan, &tenant.Status, &tenant.MaxUsers, &tenant.BillingEmail, &tenant.SuspendedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, tenant)
	}

	return tenants, total, rows.Err()
}
