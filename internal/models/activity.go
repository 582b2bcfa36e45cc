package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminActivity is an append-only audit record of admin/master actions
type AdminActivity struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	ActorID    uuid.UUID  `json:"actorId" db:"actor_id"`
	ActorEmail string     `json:"actorEmail" db:"actor_email"`
	TenantID   *uuid.UUID `json:"tenantId,omitempty" db:"tenant_id"`

	// Action is a verb such as create, update, delete, acknowledge.
	Action string `json:"action" db:"action"`

	ResourceType string    `json:"resourceType" db:"resource_type"`
	ResourceID   uuid.UUID `json:"resourceId" db:"resource_id"`
	ResourceName string    `json:"resourceName" db:"resource_name"`

	Detail Variables `json:"detail,omitempty" db:"detail"`
}
