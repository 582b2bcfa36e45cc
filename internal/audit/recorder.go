package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/internal/storage"
)

// Recorder writes admin activity rows. Recording is best-effort: a
// failed write is logged and never fails the request that triggered it.
type Recorder struct {
	store storage.Store
}

// NewRecorder creates a recorder backed by the given store.
func NewRecorder(store storage.Store) *Recorder {
	return &Recorder{store: store}
}

// Entry describes one recorded action.
type Entry struct {
	Actor        *models.Profile
	TenantID     *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   uuid.UUID
	ResourceName string
	Detail       models.Variables
}

// Record persists the entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	activity := &models.AdminActivity{
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		ResourceName: entry.ResourceName,
		TenantID:     entry.TenantID,
		Detail:       entry.Detail,
	}
	if entry.Actor != nil {
		activity.ActorID = entry.Actor.ID
		activity.ActorEmail = entry.Actor.Email
	}

	if err := r.store.CreateAdminActivity(ctx, activity); err != nil {
		log.Error().Err(err).
			Str("action", entry.Action).
			Str("resource_type", entry.ResourceType).
			Msg("Failed to record admin activity")
	}
}
