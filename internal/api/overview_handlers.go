package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/auth"
)

// ========== Overview and service handlers ==========

// HandleOverview returns aggregate counts for one organization's
// dashboard. Non-admins get their own organization; admins name one via
// ?tenantId.
func (s *RESTServer) HandleOverview(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	if d := s.policy.Authorize(identity.Profile, auth.ActionSiteRead, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	var tenantID uuid.UUID
	switch {
	case identity.Profile.IsAdmin():
		v := r.URL.Query().Get("tenantId")
		if v == "" {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "tenantId is required")
			return
		}
		id, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid tenantId")
			return
		}
		tenantID = id
	case identity.Profile.TenantID != nil:
		tenantID = *identity.Profile.TenantID
	default:
		s.respondError(w, r, http.StatusForbidden, codeForbidden, "insufficient permissions")
		return
	}

	overview, err := s.store.GetTenantOverview(r.Context(), tenantID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"overview": overview})
}

// HandleHealth health check handler
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
	})
}
