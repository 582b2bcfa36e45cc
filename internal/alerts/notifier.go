package alerts

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

// NATS subjects for alert lifecycle events. Downstream notifiers
// (email, SMS, webhooks) subscribe to these.
const (
	SubjectAlertOpened    = "coldwatch.alerts.opened"
	SubjectAlertEscalated = "coldwatch.alerts.escalated"
	SubjectAlertResolved  = "coldwatch.alerts.resolved"
)

// AlertEvent is the wire format published on alert transitions.
type AlertEvent struct {
	AlertID       string    `json:"alertId"`
	TenantID      string    `json:"tenantId"`
	SiteID        string    `json:"siteId"`
	EnvironmentID string    `json:"environmentId"`
	SensorID      string    `json:"sensorId"`
	Level         string    `json:"level"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	Value         float64   `json:"value"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Notifier publishes alert transitions. A nil *NATSNotifier is safe to
// call, so the engine works with messaging disabled.
type Notifier interface {
	AlertOpened(alert *models.Alert)
	AlertEscalated(alert *models.Alert)
	AlertResolved(alert *models.Alert)
}

// NATSNotifier publishes alert events to NATS. Publish failures are
// logged and swallowed; alerting must never block on messaging.
type NATSNotifier struct {
	nc *nats.Conn
}

// NewNATSNotifier wraps an existing NATS connection. Pass nil to get a
// no-op notifier.
func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

// AlertOpened implements Notifier.
func (n *NATSNotifier) AlertOpened(alert *models.Alert) {
	n.publish(SubjectAlertOpened, alert, alert.OpenedAt)
}

// AlertEscalated implements Notifier.
func (n *NATSNotifier) AlertEscalated(alert *models.Alert) {
	n.publish(SubjectAlertEscalated, alert, time.Now())
}

// AlertResolved implements Notifier.
func (n *NATSNotifier) AlertResolved(alert *models.Alert) {
	occurredAt := time.Now()
	if alert.ResolvedAt != nil {
		occurredAt = *alert.ResolvedAt
	}
	n.publish(SubjectAlertResolved, alert, occurredAt)
}

func (n *NATSNotifier) publish(subject string, alert *models.Alert, occurredAt time.Time) {
	if n == nil || n.nc == nil {
		return
	}

	event := AlertEvent{
		AlertID:       alert.ID.String(),
		TenantID:      alert.TenantID.String(),
		SiteID:        alert.SiteID.String(),
		EnvironmentID: alert.EnvironmentID.String(),
		SensorID:      alert.SensorID.String(),
		Level:         string(alert.Level),
		Status:        string(alert.Status),
		Message:       alert.Message,
		Value:         alert.Value,
		OccurredAt:    occurredAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal alert event")
		return
	}

	if err := n.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).
			Str("subject", subject).
			Str("alert_id", event.AlertID).
			Msg("Failed to publish alert event")
	}
}
