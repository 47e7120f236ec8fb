package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is one row of the audit trail, attributed to the caller and
// tagged with the request correlation id when one exists.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null;index:idx_activity_actor_created,priority:1" json:"actor_id"`
	ActorRole     string            `gorm:"size:32;not null" json:"actor_role"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID      *uint             `json:"entity_id"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CorrelationID string            `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time         `gorm:"index:idx_activity_actor_created,priority:2" json:"created_at"`
}
