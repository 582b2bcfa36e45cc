package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/ratelimit"
	"github.com/coldwatch/coldwatch-server/internal/storage"
)

// Error codes carried in the error envelope.
const (
	codeBadRequest      = "bad_request"
	codeUnauthenticated = "unauthenticated"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeRateLimited     = "rate_limited"
	codeInternal        = "internal"
)

type errorBody struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with the uniform error envelope
func (s *RESTServer) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": errorBody{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetReqID(r.Context()),
		},
	})
}

// respondStoreError maps storage sentinel errors onto HTTP statuses.
func (s *RESTServer) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.Is(err, storage.ErrDuplicateKey):
		s.respondError(w, r, http.StatusConflict, codeConflict, "resource already exists")
	case errors.Is(err, storage.ErrHasDependents):
		s.respondError(w, r, http.StatusConflict, codeConflict, "resource has dependents")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Storage error")
		s.respondError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// respondDecision writes the HTTP translation of a policy denial.
// Tenant-scoped denials surface as 404 so resource existence never leaks.
func (s *RESTServer) respondDecision(w http.ResponseWriter, r *http.Request, d auth.Decision) {
	if d.Reason == auth.DenyNotFound {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	s.respondError(w, r, http.StatusForbidden, codeForbidden, "insufficient permissions")
}

// setRateLimitHeaders exposes the window state on every limited response.
func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetTime.Unix(), 10))
}

// parsePagination reads limit/offset query params with sane bounds.
func parsePagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
