package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/internal/storage"
)

// ========== Sensor handlers ==========

// HandleListEnvironmentSensors lists the sensors of one environment
func (s *RESTServer) HandleListEnvironmentSensors(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	envID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid environment id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionSensorRead, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	limit, offset := parsePagination(r)

	filters := buildSensorFilters(r, identity)
	filters.EnvironmentID = &envID

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

// HandleCreateSensor creates a sensor under an environment. Site and
// tenant ids derive from the environment inside the insert.
func (s *RESTServer) HandleCreateSensor(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	envID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid environment id")
		return
	}

	if d := s.policy.Authorize(identity.Profile, auth.ActionSensorWrite, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return
	}

	var req struct {
		LocalID  string `json:"localId" validate:"required,min=2,max=64"`
		Property string `json:"property" validate:"max=64"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if req.Property == "" {
		req.Property = "temperature_c"
	}

	sensor := &models.Sensor{
		EnvironmentID: envID,
		LocalID:       req.LocalID,
		Property:      req.Property,
		Status:        models.SensorActive,
	}

	if err := s.store.CreateSensor(r.Context(), sensor, auth.OrganizationSiteFilter(identity.Profile)); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "create", "sensor", sensor.ID, sensor.LocalID, &sensor.TenantID, nil)

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"sensor": sensor})
}

// HandleGetSensor returns one sensor
func (s *RESTServer) HandleGetSensor(w http.ResponseWriter, r *http.Request) {
	sensor, ok := s.fetchSensor(w, r, auth.ActionSensorRead)
	if !ok {
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sensor": sensor})
}

// HandleUpdateSensor updates a sensor's mutable fields
func (s *RESTServer) HandleUpdateSensor(w http.ResponseWriter, r *http.Request) {
	sensor, ok := s.fetchSensor(w, r, auth.ActionSensorWrite)
	if !ok {
		return
	}

	var req struct {
		LocalID  *string              `json:"localId" validate:"min=2,max=64"`
		Property *string              `json:"property" validate:"max=64"`
		Status   *models.SensorStatus `json:"status" validate:"oneof=active maintenance decommissioned"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if req.LocalID != nil {
		sensor.LocalID = *req.LocalID
	}
	if req.Property != nil {
		sensor.Property = *req.Property
	}
	if req.Status != nil {
		sensor.Status = *req.Status
	}

	if err := s.store.UpdateSensor(r.Context(), sensor); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "update", "sensor", sensor.ID, sensor.LocalID, &sensor.TenantID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sensor": sensor})
}

// HandleDeleteSensor deletes a sensor and its readings
func (s *RESTServer) HandleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	sensor, ok := s.fetchSensor(w, r, auth.ActionSensorWrite)
	if !ok {
		return
	}

	if err := s.store.DeleteSensor(r.Context(), sensor.ID, auth.OrganizationSiteFilter(identity.Profile)); err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.recordActivity(r, "delete", "sensor", sensor.ID, sensor.LocalID, &sensor.TenantID, nil)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// HandleListSensorReadings returns a time window of readings plus
// aggregate stats, for chart rendering.
func (s *RESTServer) HandleListSensorReadings(w http.ResponseWriter, r *http.Request) {
	sensor, ok := s.fetchSensor(w, r, auth.ActionReadingRead)
	if !ok {
		return
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid from timestamp")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid to timestamp")
			return
		}
		to = t
	}
	if !from.Before(to) {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "from must precede to")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}

	readings, err := s.store.ListReadings(r.Context(), sensor.ID, from, to, limit)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	stats, err := s.store.GetReadingStats(r.Context(), sensor.ID, from, to)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"readings": readings,
		"stats":    stats,
		"from":     from,
		"to":       to,
	})
}

// fetchSensor parses the id, authorizes the action and loads the sensor
// within the caller's scope. Writes the error response itself on failure.
func (s *RESTServer) fetchSensor(w http.ResponseWriter, r *http.Request, action auth.Action) (*models.Sensor, bool) {
	identity := identityFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid sensor id")
		return nil, false
	}

	if d := s.policy.Authorize(identity.Profile, action, auth.Resource{}); !d.Allowed {
		s.respondDecision(w, r, d)
		return nil, false
	}

	sensor, err := s.store.GetSensor(r.Context(), id, auth.OrganizationSiteFilter(identity.Profile))
	if err != nil {
		s.respondStoreError(w, r, err)
		return nil, false
	}

	if !auth.CanAccessSite(identity.Profile, sensor.SiteID) {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return nil, false
	}

	return sensor, true
}

// buildSensorFilters seeds list filters with the caller's tenant scope.
func buildSensorFilters(r *http.Request, identity *auth.Identity) storage.SensorFilters {
	filters := storage.SensorFilters{
		TenantID: auth.OrganizationSiteFilter(identity.Profile),
	}

	if v := r.URL.Query().Get("status"); v != "" {
		status := models.SensorStatus(v)
		filters.Status = &status
	}

	return filters
}
