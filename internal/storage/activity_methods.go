package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Admin Activity Methods ==========

// CreateAdminActivity appends an audit record
func (s *PostgresStore) CreateAdminActivity(ctx context.Context, activity *models.AdminActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO admin_activity (id, created_at, actor_id, actor_email, tenant_id,
            action, resource_type, resource_id, resource_name, detail)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.getDB().ExecContext(ctx, query,
		activity.ID, activity.CreatedAt, activity.ActorID, activity.ActorEmail,
		activity.TenantID, activity.Action, activity.ResourceType,
		activity.ResourceID, activity.ResourceName, activity.Detail,
	)

	return mapError(err)
}

// ListAdminActivity lists audit records, optionally scoped to a tenant,
// newest first
func (s *PostgresStore) ListAdminActivity(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.AdminActivity, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM admin_activity WHERE ($1::uuid IS NULL OR tenant_id = $1)`
	if err := s.getDB().QueryRowContext(ctx, countQuery, tenantID).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `
        SELECT id, created_at, actor_id, actor_email, tenant_id,
               action, resource_type, resource_id, resource_name, detail
        FROM admin_activity
        WHERE ($1::uuid IS NULL OR tenant_id = $1)
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var activities []*models.AdminActivity
	for rows.Next() {
		activity := &models.AdminActivity{}
		err := rows.Scan(
			&activity.ID, &activity.CreatedAt, &activity.ActorID, &activity.ActorEmail,
			&activity.TenantID, &activity.Action, &activity.ResourceType,
			&activity.ResourceID, &activity.ResourceName, &activity.Detail,
		)
		if err != nil {
			return nil, 0, err
		}
		activities = append(activities, activity)
	}

	return activities, total, rows.Err()
}
