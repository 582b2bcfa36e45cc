package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/internal/storage"
)

// ========== Alert handlers ==========

// HandleListAlerts lists alerts visible to the caller, with optional
// status/level/site/sensor filters.
func (s *RESTServer) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	if d := s.policy.Authorize(identity.Profile, auth.ActionAlertRead, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	filters := storage.AlertFilters{
		TenantID: auth.OrganizationSiteFilter(identity.Profile),
	}

	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := models.AlertStatus(v)
		filters.Status = &status
	}
	if v := q.Get("level"); v != "" {
		level := models.AlertLevel(v)
		filters.Level = &level
	}
	if v := q.Get("siteId"); v != "" {
		siteID, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid siteId")
			return
		}
		filters.SiteID = &siteID
	}
	if v := q.Get("sensorId"); v != "" {
		sensorID, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid sensorId")
			return
		}
		filters.SensorID = &sensorID
	}

	limit, offset := parsePagination(r)

	alerts, total, err := s.store.ListAlerts(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"total":  total,
	})
}

// HandleAcknowledgeAlert marks an open alert as acknowledged
func (s *RESTServer) HandleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	alert, ok := s.fetchAlertForManage(w, r)
	if !ok {
		return
	}

	if alert.Status != models.AlertOpen {
		s.respondError(w, r, http.StatusConflict, codeConflict, "alert is not open")
		return
	}

	now := time.Now()
	alert.Status = models.AlertAcknowledged
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = &identity.UserID

	if err := s.store.UpdateAlert(r.Context(), alert); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "acknowledge", "alert", alert.ID, alert.Message, &alert.TenantID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"alert": alert})
}

// HandleResolveAlert marks an open or acknowledged alert as resolved
func (s *RESTServer) HandleResolveAlert(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	alert, ok := s.fetchAlertForManage(w, r)
	if !ok {
		return
	}

	if !alert.IsOpen() {
		s.respondError(w, r, http.StatusConflict, codeConflict, "alert is already resolved")
		return
	}

	now := time.Now()
	alert.Status = models.AlertResolved
	alert.ResolvedAt = &now
	alert.ResolvedBy = &identity.UserID

	if err := s.store.UpdateAlert(r.Context(), alert); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "resolve", "alert", alert.ID, alert.Message, &alert.TenantID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"alert": alert})
}

// fetchAlertForManage loads the alert within the caller's scope and
// authorizes the manage action against its tenant.
func (s *RESTServer) fetchAlertForManage(w http.ResponseWriter, r *http.Request) (*models.Alert, bool) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid alert id")
		return nil, false
	}

	alert, err := s.store.GetAlert(r.Context(), id, auth.OrganizationSiteFilter(identity.Profile))
	if err != nil {
		s.respondStoreError(w, r, err)
		return nil, false
	}

	res := auth.Resource{TenantID: &alert.TenantID, SiteID: alert.SiteID}
	if d := s.policy.Authorize(identity.Profile, auth.ActionAlertManage, res); !d.Allowed {
		s.respondDecision(w, r, d)
		return nil, false
	}

	return alert, true
}
