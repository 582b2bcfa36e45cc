package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/pkg/crypto"
)

// ========== User handlers ==========

// HandleListUsers lists profiles. Admins may scope to any organization
// via ?tenantId; masters see their own organization.
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	if d := s.policy.Authorize(identity.Profile, auth.ActionUserRead, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	filter := auth.OrganizationSiteFilter(identity.Profile)
	if identity.Profile.IsAdmin() {
		if v := r.URL.Query().Get("tenantId"); v != "" {
			tenantID, err := uuid.Parse(v)
			if err != nil {
				s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid tenantId")
				return
			}
			filter = &tenantID
		}
	}

	limit, offset := parsePagination(r)

	profiles, total, err := s.store.ListProfiles(r.Context(), filter, limit, offset)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	users := make([]map[string]interface{}, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, publicProfile(p))
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// HandleInviteUser creates a profile with a generated temporary password.
// There is no mailer; the invite email is logged for the operator to
// deliver out of band.
func (s *RESTServer) HandleInviteUser(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	if d := s.policy.Authorize(identity.Profile, auth.ActionUserManage, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	var req struct {
		Email      string     `json:"email" validate:"required,email"`
		Name       string     `json:"name" validate:"required,min=2,max=120"`
		Role       string     `json:"role" validate:"required,oneof=admin master_user user"`
		TenantID   *uuid.UUID `json:"tenantId"`
		SiteAccess []string   `json:"siteAccess"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	role := models.ParseRole(req.Role)

	if role != models.RoleAdmin && req.TenantID == nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "tenantId is required for non-admin roles")
		return
	}
	if role == models.RoleAdmin && req.TenantID != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "admin profiles carry no tenantId")
		return
	}

	if req.TenantID != nil {
		tenant, err := s.store.GetTenant(r.Context(), *req.TenantID)
		if err != nil {
			s.respondStoreError(w, r, err)
			return
		}
		if tenant.MaxUsers > 0 {
			_, total, err := s.store.ListProfiles(r.Context(), req.TenantID, 1, 0)
			if err != nil {
				s.respondStoreError(w, r, err)
				return
			}
			if total >= int64(tenant.MaxUsers) {
				s.respondError(w, r, http.StatusConflict, codeConflict, "organization user limit reached")
				return
			}
		}
	}

	var siteAccess models.UUIDArray
	for _, raw := range req.SiteAccess {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid siteAccess entry")
			return
		}
		siteAccess = append(siteAccess, id)
	}

	tempPassword, err := crypto.GenerateRandomString(24)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, codeInternal, "failed to generate password")
		return
	}
	hash, err := crypto.HashPassword(tempPassword)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, codeInternal, "failed to hash password")
		return
	}

	profile := &models.Profile{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		TenantID:     req.TenantID,
		SiteAccess:   siteAccess,
		IsActive:     true,
		Settings:     models.Variables{},
	}

	if err := s.store.CreateProfile(r.Context(), profile); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	log.Info().
		Str("email", profile.Email).
		Str("role", string(profile.Role)).
		Str("invited_by", identity.Email).
		Msg("User invited")

	s.recordActivity(r, "invite", "user", profile.ID, profile.Email, profile.TenantID, models.Variables{
		"role": string(role),
	})

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user": publicProfile(profile),
		// Returned once at creation; the server keeps only the hash.
		"temporary_password": tempPassword,
	})
}
