package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/ingest"
	"github.com/coldwatch/coldwatch-server/internal/metrics"
	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/internal/ratelimit"
)

const maxIngestBodyBytes = 1 << 20

// ingestReading is one entry of a device batch.
type ingestReading struct {
	TS       string  `json:"ts"`
	SensorID string  `json:"sensor_id"`
	Value    float64 `json:"value"`
}

type ingestError struct {
	Index    int    `json:"index"`
	SensorID string `json:"sensor_id,omitempty"`
	Error    string `json:"error"`
}

// HandleIngestReadings accepts a signed batch of readings from a device.
// Order of checks: signature, idempotency replay, per-device rate limit,
// then per-reading processing. Partial failures are reported per entry,
// never as a batch-level error.
func (s *RESTServer) HandleIngestReadings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBodyBytes+1))
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "failed to read body")
		return
	}
	if len(body) > maxIngestBodyBytes {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "body too large")
		return
	}

	timestamp := r.Header.Get("X-Timestamp")
	deviceID := r.Header.Get("X-Device-Id")
	signature := r.Header.Get("X-Signature")

	if err := s.signatures.Validate(body, timestamp, deviceID, signature); err != nil {
		metrics.ReadingsRejected.WithLabelValues(rejectionReason(err)).Inc()
		s.respondError(w, r, http.StatusUnauthorized, codeUnauthenticated, err.Error())
		return
	}

	// Replay of a processed batch returns the original response.
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" {
		cached, hit, err := s.idempotency.Get(r.Context(), deviceID+":"+idemKey)
		if err != nil {
			log.Error().Err(err).Msg("Idempotency lookup failed")
		} else if hit {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotent-Replay", "true")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	res, err := s.limiter.Allow(r.Context(), "device:"+deviceID, ratelimit.ClassIngest)
	if err != nil {
		log.Error().Err(err).Msg("Rate limiter unavailable")
	} else {
		setRateLimitHeaders(w, res)
		if !res.Allowed {
			metrics.RateLimited.WithLabelValues(string(ratelimit.ClassIngest)).Inc()
			s.respondError(w, r, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
			return
		}
	}

	var req struct {
		Readings []ingestReading `json:"readings"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if len(req.Readings) == 0 {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "readings must not be empty")
		return
	}
	if len(req.Readings) > s.config.Ingest.MaxBatchSize {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "batch exceeds maximum size")
		return
	}

	processed := 0
	var errs []ingestError

	for i, entry := range req.Readings {
		if err := s.processReading(r, entry); err != nil {
			metrics.ReadingsRejected.WithLabelValues("invalid_reading").Inc()
			errs = append(errs, ingestError{Index: i, SensorID: entry.SensorID, Error: err.Error()})
			continue
		}
		processed++
		metrics.ReadingsProcessed.Inc()
	}

	if errs == nil {
		errs = []ingestError{}
	}

	response := map[string]interface{}{
		"processed": processed,
		"errors":    errs,
	}

	if idemKey != "" {
		if data, err := json.Marshal(response); err == nil {
			if err := s.idempotency.Put(r.Context(), deviceID+":"+idemKey, data); err != nil {
				log.Error().Err(err).Msg("Idempotency store failed")
			}
		}
	}

	s.respondJSON(w, http.StatusOK, response)
}

// processReading validates and stores one reading, then runs threshold
// evaluation. Alert engine failures are logged; the reading still counts
// as processed once stored.
func (s *RESTServer) processReading(r *http.Request, entry ingestReading) error {
	ts, err := time.Parse(time.RFC3339, entry.TS)
	if err != nil {
		return errors.New("malformed ts")
	}

	sensorID, err := uuid.Parse(entry.SensorID)
	if err != nil {
		return errors.New("malformed sensor_id")
	}

	sensor, err := s.store.GetSensor(r.Context(), sensorID, nil)
	if err != nil {
		return errors.New("unknown sensor")
	}
	if sensor.Status != models.SensorActive {
		return errors.New("sensor is not active")
	}

	reading := &models.Reading{
		Timestamp: ts,
		SensorID:  sensor.ID,
		Value:     entry.Value,
	}

	if err := s.store.InsertReading(r.Context(), reading); err != nil {
		log.Error().Err(err).Str("sensor_id", sensor.ID.String()).Msg("Failed to store reading")
		return errors.New("storage failure")
	}

	env, err := s.store.GetEnvironment(r.Context(), sensor.EnvironmentID, nil)
	if err != nil {
		log.Error().Err(err).Str("sensor_id", sensor.ID.String()).Msg("Failed to load environment for evaluation")
		return nil
	}

	if err := s.alerts.Evaluate(r.Context(), sensor, env, reading); err != nil {
		log.Error().Err(err).Str("sensor_id", sensor.ID.String()).Msg("Alert evaluation failed")
	}

	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ingest.ErrMissingHeader):
		return "missing_header"
	case errors.Is(err, ingest.ErrBadTimestamp):
		return "bad_timestamp"
	case errors.Is(err, ingest.ErrStaleTimestamp):
		return "stale_timestamp"
	case errors.Is(err, ingest.ErrInvalidSignature):
		return "bad_signature"
	default:
		return "other"
	}
}
