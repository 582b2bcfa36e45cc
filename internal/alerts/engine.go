package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/metrics"
	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/internal/storage"
)

// Engine evaluates readings against environment thresholds and maintains
// the alert lifecycle. A sensor has at most one open alert at a time.
type Engine struct {
	store    storage.Store
	notifier Notifier
}

// NewEngine creates an alert engine. notifier may be nil.
func NewEngine(store storage.Store, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = NewNATSNotifier(nil)
	}
	return &Engine{store: store, notifier: notifier}
}

// Evaluate processes one accepted reading. Out-of-bounds values open an
// alert (or escalate the open one); in-bounds values auto-resolve any
// open alert on the sensor.
func (e *Engine) Evaluate(ctx context.Context, sensor *models.Sensor, env *models.Environment, reading *models.Reading) error {
	health := env.Thresholds.Classify(reading.Value)

	open, err := e.store.GetOpenAlertForSensor(ctx, sensor.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("get open alert: %w", err)
	}

	switch health {
	case models.HealthHealthy:
		if open == nil {
			return nil
		}
		return e.autoResolve(ctx, open, reading)
	case models.HealthWarning:
		return e.raise(ctx, sensor, env, reading, open, models.AlertWarning)
	default:
		return e.raise(ctx, sensor, env, reading, open, models.AlertCritical)
	}
}

func (e *Engine) raise(ctx context.Context, sensor *models.Sensor, env *models.Environment, reading *models.Reading, open *models.Alert, level models.AlertLevel) error {
	if open != nil {
		// Escalate warning -> critical in place; never downgrade, the
		// operator resolves or the value recovers.
		if open.Level == models.AlertWarning && level == models.AlertCritical {
			open.Level = models.AlertCritical
			open.Value = reading.Value
			open.Message = alertMessage(env, reading.Value, level)
			if err := e.store.UpdateAlert(ctx, open); err != nil {
				return fmt.Errorf("escalate alert: %w", err)
			}
			log.Info().
				Str("alert_id", open.ID.String()).
				Str("sensor_id", sensor.ID.String()).
				Msg("Alert escalated to critical")
			metrics.AlertsEscalated.Inc()
			e.notifier.AlertEscalated(open)
		}
		return nil
	}

	alert := &models.Alert{
		SiteID:        sensor.SiteID,
		EnvironmentID: env.ID,
		SensorID:      sensor.ID,
		Level:         level,
		Status:        models.AlertOpen,
		Message:       alertMessage(env, reading.Value, level),
		Value:         reading.Value,
		OpenedAt:      reading.Timestamp,
	}
	alert.TenantID = sensor.TenantID

	if level == models.AlertCritical {
		alert.ThresholdMin = env.Thresholds.CriticalMin
		alert.ThresholdMax = env.Thresholds.CriticalMax
	} else {
		alert.ThresholdMin = env.Thresholds.WarningMin
		alert.ThresholdMax = env.Thresholds.WarningMax
	}

	if err := e.store.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}

	log.Info().
		Str("alert_id", alert.ID.String()).
		Str("sensor_id", sensor.ID.String()).
		Str("level", string(level)).
		Float64("value", reading.Value).
		Msg("Alert opened")

	metrics.AlertsOpened.WithLabelValues(string(level)).Inc()
	e.notifier.AlertOpened(alert)

	return nil
}

func (e *Engine) autoResolve(ctx context.Context, alert *models.Alert, reading *models.Reading) error {
	now := time.Now()
	alert.Status = models.AlertResolved
	alert.ResolvedAt = &now
	alert.ResolvedBy = nil // system resolution

	if err := e.store.UpdateAlert(ctx, alert); err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}

	log.Info().
		Str("alert_id", alert.ID.String()).
		Str("sensor_id", alert.SensorID.String()).
		Float64("value", reading.Value).
		Msg("Alert auto-resolved")

	e.notifier.AlertResolved(alert)

	return nil
}

func alertMessage(env *models.Environment, value float64, level models.AlertLevel) string {
	var low, high float64
	if level == models.AlertCritical {
		low, high = env.Thresholds.CriticalMin, env.Thresholds.CriticalMax
	} else {
		low, high = env.Thresholds.WarningMin, env.Thresholds.WarningMax
	}

	if value < low {
		return fmt.Sprintf("%s temperature %.1f below %s minimum %.1f", env.Name, value, level, low)
	}
	return fmt.Sprintf("%s temperature %.1f above %s maximum %.1f", env.Name, value, level, high)
}
