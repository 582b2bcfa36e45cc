package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/internal/storage"
)

// ========== Admin handlers ==========
// All endpoints here are platform-admin only.

// requireAdmin authorizes the admin action and returns false after
// writing the error response when the caller is not an admin.
func (s *RESTServer) requireAdmin(w http.ResponseWriter, r *http.Request, action auth.Action) bool {
	identity := identityFrom(r)
	if d := s.policy.Authorize(identity.Profile, action, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return false
	}
	return true
}

// HandleListOrganizations lists tenants
func (s *RESTServer) HandleListOrganizations(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionAdminRead) {
		return
	}

	limit, offset := parsePagination(r)

	tenants, total, err := s.store.ListTenants(r.Context(), limit, offset)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": tenants,
		"total":         total,
	})
}

// HandleCreateOrganization creates a tenant
func (s *RESTServer) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionOrgManage) {
		return
	}

	var req struct {
		Name         string            `json:"name" validate:"required,min=2,max=120"`
		Slug         string            `json:"slug" validate:"required,min=2,max=64"`
		Plan         models.TenantPlan `json:"plan" validate:"oneof=basic pro enterprise"`
		MaxUsers     int               `json:"maxUsers" validate:"min=0,max=10000"`
		BillingEmail string            `json:"billingEmail" validate:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if req.Plan == "" {
		req.Plan = models.PlanBasic
	}

	tenant := &models.Tenant{
		Name:         req.Name,
		Slug:         strings.ToLower(req.Slug),
		Plan:         req.Plan,
		Status:       models.TenantActive,
		MaxUsers:     req.MaxUsers,
		BillingEmail: req.BillingEmail,
	}

	if err := s.store.CreateTenant(r.Context(), tenant); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "create", "organization", tenant.ID, tenant.Name, &tenant.ID, nil)

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"organization": tenant})
}

// HandleGetOrganization returns one tenant
func (s *RESTServer) HandleGetOrganization(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionAdminRead) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid organization id")
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	overview, err := s.store.GetTenantOverview(r.Context(), tenant.ID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"organization": tenant,
		"overview":     overview,
	})
}

// HandleUpdateOrganization updates a tenant, including suspension
func (s *RESTServer) HandleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionOrgManage) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid organization id")
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	var req struct {
		Name         *string              `json:"name" validate:"min=2,max=120"`
		Plan         *models.TenantPlan   `json:"plan" validate:"oneof=basic pro enterprise"`
		Status       *models.TenantStatus `json:"status" validate:"oneof=active suspended cancelled"`
		MaxUsers     *int                 `json:"maxUsers" validate:"min=0,max=10000"`
		BillingEmail *string              `json:"billingEmail" validate:"email"`
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
		tenant.Name = *req.Name
	}
	if req.Plan != nil {
		tenant.Plan = *req.Plan
	}
	if req.Status != nil && *req.Status != tenant.Status {
		tenant.Status = *req.Status
		if *req.Status == models.TenantSuspended {
			now := time.Now()
			tenant.SuspendedAt = &now
		} else {
			tenant.SuspendedAt = nil
		}
	}
	if req.MaxUsers != nil {
		tenant.MaxUsers = *req.MaxUsers
	}
	if req.BillingEmail != nil {
		tenant.BillingEmail = *req.BillingEmail
	}

	if err := s.store.UpdateTenant(r.Context(), tenant); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "update", "organization", tenant.ID, tenant.Name, &tenant.ID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"organization": tenant})
}

// HandleDeleteOrganization deletes a tenant. Refused with 409 while the
// tenant still owns sites.
func (s *RESTServer) HandleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionOrgManage) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid organization id")
		return
	}

	tenant, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	if err := s.store.DeleteTenant(r.Context(), id); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "delete", "organization", tenant.ID, tenant.Name, &tenant.ID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// HandleAdminListSites lists sites across tenants, optionally scoped
func (s *RESTServer) HandleAdminListSites(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionAdminRead) {
		return
	}

	var filter *uuid.UUID
	if v := r.URL.Query().Get("tenantId"); v != "" {
		tenantID, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid tenantId")
			return
		}
		filter = &tenantID
	}

	limit, offset := parsePagination(r)

	sites, total, err := s.store.ListSites(r.Context(), filter, limit, offset)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sites": sites,
		"total": total,
	})
}

// HandleAdminListSensors lists sensors across tenants
func (s *RESTServer) HandleAdminListSensors(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionAdminRead) {
		return
	}

	filters := storage.SensorFilters{}
	q := r.URL.Query()

	if v := q.Get("tenantId"); v != "" {
		tenantID, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid tenantId")
			return
		}
		filters.TenantID = &tenantID
	}
	if v := q.Get("status"); v != "" {
		status := models.SensorStatus(v)
		filters.Status = &status
	}

	limit, offset := parsePagination(r)

	sensors, total, err := s.store.ListSensors(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sensors": sensors,
		"total":   total,
	})
}

// HandleAdminSearch searches tenants, sites and sensors by name
func (s *RESTServer) HandleAdminSearch(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionAdminRead) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "q must be at least 2 characters")
		return
	}

	hits, err := s.store.SearchPlatform(r.Context(), query, 50)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": hits,
		"total":   len(hits),
	})
}

// HandleAdminStats returns cross-tenant platform aggregates
func (s *RESTServer) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionAdminRead) {
		return
	}

	stats, err := s.store.GetPlatformStats(r.Context())
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// HandleAdminActivity lists the audit trail, optionally per tenant
func (s *RESTServer) HandleAdminActivity(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r, auth.ActionAdminRead) {
		return
	}

	var filter *uuid.UUID
	if v := r.URL.Query().Get("tenantId"); v != "" {
		tenantID, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid tenantId")
			return
		}
		filter = &tenantID
	}

	limit, offset := parsePagination(r)

	activity, total, err := s.store.ListAdminActivity(r.Context(), filter, limit, offset)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"activity": activity,
		"total":    total,
	})
}
