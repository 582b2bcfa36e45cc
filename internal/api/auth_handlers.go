package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	profile, err := s.store.GetProfileByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		return
	}

	if !s.auth.VerifyPassword(req.Password, profile.PasswordHash) {
		s.respondError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		return
	}

	if !profile.IsActive || profile.IsExpired(time.Now()) {
		s.respondError(w, r, http.StatusForbidden, codeForbidden, "account is disabled")
		return
	}

	// A suspended organization locks out its members.
	if profile.TenantID != nil {
		tenant, err := s.store.GetTenant(r.Context(), *profile.TenantID)
		if err != nil || !tenant.IsActive() {
			s.respondError(w, r, http.StatusForbidden, codeForbidden, "organization is suspended")
			return
		}
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(profile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate tokens")
		s.respondError(w, r, http.StatusInternalServerError, codeInternal, "failed to generate tokens")
		return
	}

	if err := s.store.TouchProfileLogin(r.Context(), profile.ID, time.Now()); err != nil {
		log.Warn().Err(err).Str("user_id", profile.ID.String()).Msg("Failed to record login time")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.Auth.SessionCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(s.config.JWT.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
		"user":          publicProfile(profile),
	})
}

// HandleRefresh handles token refresh. The profile is reloaded so role or
// tenant changes made since login take effect on the new pair.
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	userID, err := s.auth.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid refresh token")
		return
	}

	profile, err := s.store.GetProfile(r.Context(), userID)
	if err != nil {
		s.respondError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid refresh token")
		return
	}

	if !profile.IsActive || profile.IsExpired(time.Now()) {
		s.respondError(w, r, http.StatusForbidden, codeForbidden, "account is disabled")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(profile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate tokens")
		s.respondError(w, r, http.StatusInternalServerError, codeInternal, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleMe returns the resolved caller's profile
func (s *RESTServer) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user": publicProfile(identity.Profile),
	})
}

// publicProfile strips fields that never leave the server.
func publicProfile(p *models.Profile) map[string]interface{} {
	out := map[string]interface{}{
		"id":       p.ID,
		"email":    p.Email,
		"name":     p.Name,
		"role":     p.Role,
		"isActive": p.IsActive,
	}
	if p.TenantID != nil {
		out["tenantId"] = p.TenantID
	}
	if len(p.SiteAccess) > 0 {
		out["siteAccess"] = p.SiteAccess
	}
	if p.LastLoginAt != nil {
		out["lastLoginAt"] = p.LastLoginAt
	}
	return out
}
