package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Environment handlers ==========

// HandleListSiteEnvironments lists the environments of one site
func (s *RESTServer) HandleListSiteEnvironments(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	siteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid site id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionEnvRead, auth.Resource{SiteID: siteID}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	limit, offset := parsePagination(r)

	envs, total, err := s.store.ListEnvironments(r.Context(), siteID, auth.OrganizationSiteFilter(identity.Profile), limit, offset)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"environments": envs,
		"total":        total,
	})
}

// HandleCreateEnvironment creates an environment under a site. The
// denormalized tenant id derives from the site inside the insert, so a
// site outside the caller's organization comes back as not found.
func (s *RESTServer) HandleCreateEnvironment(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	siteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid site id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionEnvWrite, auth.Resource{SiteID: siteID}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	var req struct {
		Name       string                 `json:"name" validate:"required,min=2,max=120"`
		Type       models.EnvironmentType `json:"type" validate:"required,oneof=cold_storage blast_freezer chiller other"`
		Thresholds models.Thresholds      `json:"thresholds"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if !req.Thresholds.Valid() {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "thresholds must satisfy criticalMin <= warningMin < warningMax <= criticalMax")
		return
	}

	env := &models.Environment{
		SiteID:     siteID,
		Name:       req.Name,
		Type:       req.Type,
		Status:     models.EnvironmentActive,
		Thresholds: req.Thresholds,
	}

	if err := s.store.CreateEnvironment(r.Context(), env, auth.OrganizationSiteFilter(identity.Profile)); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "create", "environment", env.ID, env.Name, &env.TenantID, nil)

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"environment": env})
}

// HandleGetEnvironment returns one environment
func (s *RESTServer) HandleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid environment id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionEnvRead, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	env, err := s.store.GetEnvironment(r.Context(), id, auth.OrganizationSiteFilter(identity.Profile))
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if !auth.CanAccessSite(identity.Profile, env.SiteID) {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"environment": env})
}

// HandleUpdateEnvironment updates name, type and status. Thresholds have
// their own endpoint with a stricter role requirement.
func (s *RESTServer) HandleUpdateEnvironment(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid environment id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionEnvWrite, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	env, err := s.store.GetEnvironment(r.Context(), id, auth.OrganizationSiteFilter(identity.Profile))
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if !auth.CanAccessSite(identity.Profile, env.SiteID) {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}

	var req struct {
		Name   *string                   `json:"name" validate:"min=2,max=120"`
		Type   *models.EnvironmentType   `json:"type" validate:"oneof=cold_storage blast_freezer chiller other"`
		Status *models.EnvironmentStatus `json:"status" validate:"oneof=active inactive"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if req.Name != nil {
		env.Name = *req.Name
	}
	if req.Type != nil {
		env.Type = *req.Type
	}
	if req.Status != nil {
		env.Status = *req.Status
	}

	if err := s.store.UpdateEnvironment(r.Context(), env); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "update", "environment", env.ID, env.Name, &env.TenantID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"environment": env})
}

// HandleUpdateThresholds replaces an environment's alert thresholds.
// Organization masters only; platform admins are read-only here.
func (s *RESTServer) HandleUpdateThresholds(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid environment id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionThresholdManage, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	env, err := s.store.GetEnvironment(r.Context(), id, auth.OrganizationSiteFilter(identity.Profile))
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if !auth.CanAccessSite(identity.Profile, env.SiteID) {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}

	var req models.Thresholds
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if !req.Valid() {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "thresholds must satisfy criticalMin <= warningMin < warningMax <= criticalMax")
		return
	}

	previous := env.Thresholds
	env.Thresholds = req

	if err := s.store.UpdateEnvironment(r.Context(), env); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "update_thresholds", "environment", env.ID, env.Name, &env.TenantID, models.Variables{
		"previous": previous,
		"current":  req,
	})

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"environment": env})
}

// HandleDeleteEnvironment deletes an environment and its sensors
func (s *RESTServer) HandleDeleteEnvironment(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid environment id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionEnvWrite, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	filter := auth.OrganizationSiteFilter(identity.Profile)

	env, err := s.store.GetEnvironment(r.Context(), id, filter)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if !auth.CanAccessSite(identity.Profile, env.SiteID) {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}

	if err := s.store.DeleteEnvironment(r.Context(), id, filter); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "delete", "environment", env.ID, env.Name, &env.TenantID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}
