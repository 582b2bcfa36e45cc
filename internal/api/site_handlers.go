package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/audit"
	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/models"
)

// ========== Site handlers ==========

// HandleListSites lists sites visible to the caller
func (s *RESTServer) HandleListSites(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	if d := s.policy.Authorize(identity.Profile, auth.ActionSiteRead, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	limit, offset := parsePagination(r)
	filter := auth.OrganizationSiteFilter(identity.Profile)

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

// HandleCreateSite creates a site. Non-admin callers create within their
// own organization; admins name the target organization in the body.
func (s *RESTServer) HandleCreateSite(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	if d := s.policy.Authorize(identity.Profile, auth.ActionSiteWrite, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	var req struct {
		Name     string     `json:"name" validate:"required,min=2,max=120"`
		Location string     `json:"location" validate:"max=200"`
		TenantID *uuid.UUID `json:"tenantId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var tenantID uuid.UUID
	switch {
	case identity.Profile.IsAdmin():
		if req.TenantID == nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "tenantId is required")
			return
		}
		tenantID = *req.TenantID
	case identity.Profile.TenantID != nil:
		tenantID = *identity.Profile.TenantID
	default:
		s.respondError(w, r, http.StatusForbidden, codeForbidden, "insufficient permissions")
		return
	}

	site := &models.Site{
		Name:     req.Name,
		Location: req.Location,
		Status:   models.SiteActive,
	}
	site.TenantID = tenantID

	if err := s.store.CreateSite(r.Context(), site); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "create", "site", site.ID, site.Name, &tenantID, nil)

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"site": site})
}

// HandleGetSite returns one site with its aggregate counts
func (s *RESTServer) HandleGetSite(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid site id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionSiteRead, auth.Resource{SiteID: id}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	site, err := s.store.GetSite(r.Context(), id, auth.OrganizationSiteFilter(identity.Profile))
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	counts, err := s.store.GetSiteCounts(r.Context(), site.ID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"site":   site,
		"counts": counts,
	})
}

// HandleUpdateSite updates a site's mutable fields
func (s *RESTServer) HandleUpdateSite(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid site id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionSiteWrite, auth.Resource{SiteID: id}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	site, err := s.store.GetSite(r.Context(), id, auth.OrganizationSiteFilter(identity.Profile))
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	var req struct {
		Name     *string            `json:"name" validate:"min=2,max=120"`
		Location *string            `json:"location" validate:"max=200"`
		Status   *models.SiteStatus `json:"status" validate:"oneof=active inactive"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		site.Name = *req.Name
	}
	if req.Location != nil {
		site.Location = *req.Location
	}
	if req.Status != nil {
		site.Status = *req.Status
	}

	if err := s.store.UpdateSite(r.Context(), site); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "update", "site", site.ID, site.Name, &site.TenantID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"site": site})
}

// HandleDeleteSite deletes a site and, by cascade, everything under it
func (s *RESTServer) HandleDeleteSite(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid site id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionSiteWrite, auth.Resource{SiteID: id}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	filter := auth.OrganizationSiteFilter(identity.Profile)

	site, err := s.store.GetSite(r.Context(), id, filter)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	if err := s.store.DeleteSite(r.Context(), id, filter); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "delete", "site", site.ID, site.Name, &site.TenantID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// recordActivity writes an audit row for a mutation, best effort.
func (s *RESTServer) recordActivity(r *http.Request, action, resourceType string, resourceID uuid.UUID, resourceName string, tenantID *uuid.UUID, detail models.Variables) {
	identity := identityFrom(r)
	if identity == nil {
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		Actor:        identity.Profile,
		TenantID:     tenantID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		Detail:       detail,
	})
}
