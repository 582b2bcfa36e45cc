package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Profile Methods ==========

const profileColumns = `id, created_at, updated_at, email, name, password_hash,
        role, tenant_id, site_access, expires_at, is_active, last_login_at, settings`

// CreateProfile creates a new profile
func (s *PostgresStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query := `
        INSERT INTO profiles (` + profileColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.getDB().ExecContext(ctx, query,
		profile.ID, profile.CreatedAt, profile.UpdatedAt, profile.Email, profile.Name,
		profile.PasswordHash, profile.Role, profile.TenantID, profile.SiteAccess,
		profile.ExpiresAt, profile.IsActive, profile.LastLoginAt, profile.Settings,
	)

	return mapError(err)
}

// GetProfile gets a profile by id
func (s *PostgresStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.getProfile(ctx, `WHERE id = $1`, id)
}

// GetProfileByEmail gets a profile by email
func (s *PostgresStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return s.getProfile(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) getProfile(ctx context.Context, where string, arg interface{}) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ` + where

	profile := &models.Profile{}
	var role string

	err := s.getDB().QueryRowContext(ctx, query, arg).Scan(
		&profile.ID, &profile.CreatedAt, &profile.UpdatedAt, &profile.Email, &profile.Name,
		&profile.PasswordHash, &role, &profile.TenantID, &profile.SiteAccess,
		&profile.ExpiresAt, &profile.IsActive, &profile.LastLoginAt, &profile.Settings,
	)
	if err != nil {
		return nil, mapError(err)
	}

	profile.Role = models.ParseRole(role)
	return profile, nil
}

// UpdateProfile updates a profile
func (s *PostgresStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now()

	query := `
        UPDATE profiles
        SET updated_at = $2, email = $3, name = $4, password_hash = $5, role = $6,
            tenant_id = $7, site_access = $8, expires_at = $9, is_active = $10, settings = $11
        WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		profile.ID, profile.UpdatedAt, profile.Email, profile.Name, profile.PasswordHash,
		profile.Role, profile.TenantID, profile.SiteAccess, profile.ExpiresAt,
		profile.IsActive, profile.Settings,
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

// DeleteProfile deletes a profile
func (s *PostgresStore) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListProfiles lists profiles, optionally scoped to a tenant
func (s *PostgresStore) ListProfiles(ctx context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Profile, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM profiles WHERE ($1::uuid IS NULL OR tenant_id = $1)`
	if err := s.getDB().QueryRowContext(ctx, countQuery, tenantID).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `
        SELECT ` + profileColumns + `
        FROM profiles
        WHERE ($1::uuid IS NULL OR tenant_id = $1)
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile := &models.Profile{}
		var role string

		err := rows.Scan(
			&profile.ID, &profile.CreatedAt, &profile.UpdatedAt, &profile.Email, &profile.Name,
			&profile.PasswordHash, &role, &profile.TenantID, &profile.SiteAccess,
			&profile.ExpiresAt, &profile.IsActive, &profile.LastLoginAt, &profile.Settings,
		)
		if err != nil {
			return nil, 0, err
		}

		profile.Role = models.ParseRole(role)
		profiles = append(profiles, profile)
	}

	return profiles, total, rows.Err()
}

// TouchProfileLogin records a successful login time
func (s *PostgresStore) TouchProfileLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.getDB().ExecContext(ctx,
		`UPDATE profiles SET last_login_at = $2 WHERE id = $1`, id, at)
	return mapError(err)
}
