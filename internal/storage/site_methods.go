package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Site Methods ==========

// CreateSite creates a new site
func (s *PostgresStore) CreateSite(ctx context.Context, site *models.Site) error {
	if site.ID == uuid.Nil {
		site.ID = uuid.New()
	}

	now := time.Now()
	site.CreatedAt = now
	site.UpdatedAt = now

	if site.Status == "" {
		site.Status = models.SiteActive
	}

	query := `
        INSERT INTO sites (id, created_at, updated_at, tenant_id, name, location, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.getDB().ExecContext(ctx, query,
		site.ID, site.CreatedAt, site.UpdatedAt, site.TenantID,
		site.Name, site.Location, site.Status,
	)

	return mapError(err)
}

// GetSite gets a site by id. A non-nil tenantID scopes the lookup so that
// out-of-tenant sites surface as ErrNotFound.
func (s *PostgresStore) GetSite(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Site, error) {
	query := `
        SELECT id, created_at, updated_at, tenant_id, name, location, status
        FROM sites
        WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`

	site := &models.Site{}
	err := s.getDB().QueryRowContext(ctx, query, id, tenantID).Scan(
		&site.ID, &site.CreatedAt, &site.UpdatedAt, &site.TenantID,
		&site.Name, &site.Location, &site.Status,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return site, nil
}

// UpdateSite updates a site
func (s *PostgresStore) UpdateSite(ctx context.Context, site *models.Site) error {
	site.UpdatedAt = time.Now()

	query := `
        UPDATE sites
        SET updated_at = $2, name = $3, location = $4, status = $5
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		site.ID, site.UpdatedAt, site.Name, site.Location, site.Status,
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

// DeleteSite deletes a site and, via ON DELETE CASCADE, its environments,
// sensors, readings and alerts.
func (s *PostgresStore) DeleteSite(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) error {
	query := `DELETE FROM sites WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`

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

// ListSites lists sites, optionally scoped to a tenant
func (s *PostgresStore) ListSites(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Site, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM sites WHERE ($1::uuid IS NULL OR tenant_id = $1)`
	if err := s.getDB().QueryRowContext(ctx, countQuery, tenantID).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `
        SELECT id, created_at, updated_at, tenant_id, name, location, status
        FROM sites
        WHERE ($1::uuid IS NULL OR tenant_id = $1)
        ORDER BY name
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var sites []*models.Site
	for rows.Next() {
		site := &models.Site{}
		err := rows.Scan(
			&site.ID, &site.CreatedAt, &site.UpdatedAt, &site.TenantID,
			&site.Name, &site.Location, &site.Status,
		)
		if err != nil {
			return nil, 0, err
		}
		sites = append(sites, site)
	}

	return sites, total, rows.Err()
}

// GetSiteCounts returns dependent-entity counts for one site in a single
// round trip.
func (s *PostgresStore) GetSiteCounts(ctx context.Context, siteID uuid.UUID) (*models.SiteCounts, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM environments WHERE site_id = $1),
            (SELECT COUNT(*) FROM sensors WHERE site_id = $1),
            (SELECT COUNT(*) FROM alerts WHERE site_id = $1 AND status IN ('open', 'acknowledged'))`

	counts := &models.SiteCounts{}
	err := s.getDB().QueryRowContext(ctx, query, siteID).Scan(
		&counts.Environments, &counts.Sensors, &counts.OpenAlerts,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return counts, nil
}
