package storage

import (
	"context"

	"github.com/google/uuid"
)

// ========== Aggregation Methods ==========

// GetTenantOverview computes dashboard counts for one tenant. Environment
// health is the worst classification of any active sensor's last reading
// against the environment thresholds; environments without readings count
// as unknown.
func (s *PostgresStore) GetTenantOverview(ctx context.Context, tenantID uuid.UUID) (*TenantOverview, error) {
	overview := &TenantOverview{}

	countsQuery := `
        SELECT
            (SELECT COUNT(*) FROM sites WHERE tenant_id = $1),
            (SELECT COUNT(*) FROM environments WHERE tenant_id = $1),
            (SELECT COUNT(*) FROM sensors WHERE tenant_id = $1),
            (SELECT COUNT(*) FROM alerts WHERE tenant_id = $1 AND status IN ('open', 'acknowledged'))`

	err := s.getDB().QueryRowContext(ctx, countsQuery, tenantID).Scan(
		&overview.Sites, &overview.Environments, &overview.Sensors, &overview.OpenAlerts,
	)
	if err != nil {
		return nil, mapError(err)
	}

	healthQuery := `
        SELECT health, COUNT(*) FROM (
            SELECT e.id,
                COALESCE(MAX(CASE
                    WHEN sn.last_reading_value IS NULL THEN NULL
                    WHEN sn.last_reading_value < e.critical_min OR sn.last_reading_value > e.critical_max THEN 3
                    WHEN sn.last_reading_value < e.warning_min OR sn.last_reading_value > e.warning_max THEN 2
                    ELSE 1
                END), 0) AS rank,
                CASE COALESCE(MAX(CASE
                    WHEN sn.last_reading_value IS NULL THEN NULL
                    WHEN sn.last_reading_value < e.critical_min OR sn.last_reading_value > e.critical_max THEN 3
                    WHEN sn.last_reading_value < e.warning_min OR sn.last_reading_value > e.warning_max THEN 2
                    ELSE 1
                END), 0)
                    WHEN 3 THEN 'critical'
                    WHEN 2 THEN 'warning'
                    WHEN 1 THEN 'healthy'
                    ELSE 'unknown'
                END AS health
            FROM environments e
            LEFT JOIN sensors sn ON sn.environment_id = e.id AND sn.status = 'active'
            WHERE e.tenant_id = $1
            GROUP BY e.id
        ) sub
        GROUP BY health`

	rows, err := s.getDB().QueryContext(ctx, healthQuery, tenantID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var health string
		var count int64
		if err := rows.Scan(&health, &count); err != nil {
			return nil, err
		}
		switch health {
		case "healthy":
			overview.EnvironmentsHealthy = count
		case "warning":
			overview.EnvironmentsWarning = count
		case "critical":
			overview.EnvironmentsCritical = count
		default:
			overview.EnvironmentsUnknown = count
		}
	}

	return overview, rows.Err()
}

// GetPlatformStats computes cross-tenant counts for the admin dashboard
func (s *PostgresStore) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM tenants),
            (SELECT COUNT(*) FROM tenants WHERE status = 'active'),
            (SELECT COUNT(*) FROM sites),
            (SELECT COUNT(*) FROM sensors),
            (SELECT COUNT(*) FROM profiles),
            (SELECT COUNT(*) FROM alerts WHERE status IN ('open', 'acknowledged')),
            (SELECT COUNT(*) FROM readings WHERE ts >= now() - interval '24 hours')`

	stats := &PlatformStats{}
	err := s.getDB().QueryRowContext(ctx, query).Scan(
		&stats.Tenants, &stats.ActiveTenants, &stats.Sites, &stats.Sensors,
		&stats.Profiles, &stats.OpenAlerts, &stats.Readings24h,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return stats, nil
}

// SearchPlatform finds tenants, sites and sensors matching the query by
// name across all tenants. Admin-only by construction.
func (s *PostgresStore) SearchPlatform(ctx context.Context, query string, limit int) ([]*SearchHit, error) {
	sqlQuery := `
        SELECT kind, id, name, tenant_id FROM (
            SELECT 'tenant' AS kind, id, name, NULL::uuid AS tenant_id FROM tenants
            WHERE name ILIKE '%' || $1 || '%' OR slug ILIKE '%' || $1 || '%'
            UNION ALL
            SELECT 'site', id, name, tenant_id FROM sites
            WHERE name ILIKE '%' || $1 || '%' OR location ILIKE '%' || $1 || '%'
            UNION ALL
            SELECT 'sensor', id, local_id, tenant_id FROM sensors
            WHERE local_id ILIKE '%' || $1 || '%'
        ) hits
        ORDER BY kind, name
        LIMIT $2`

	rows, err := s.getDB().QueryContext(ctx, sqlQuery, query, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var hits []*SearchHit
	for rows.Next() {
		hit := &SearchHit{}
		if err := rows.Scan(&hit.Kind, &hit.ID, &hit.Name, &hit.TenantID); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}
