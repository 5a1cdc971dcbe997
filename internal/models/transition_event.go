// internal/models/transition_event.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TransitionEvent is one immutable entry of an application's audit trail.
// Revision is the application revision this event produced, so the pair
// (ApplicationUID, Revision) is unique.
type TransitionEvent struct {
	ID             uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	ApplicationUID uuid.UUID `json:"application_uid" gorm:"type:uuid;not null;index;uniqueIndex:idx_application_events_revision,priority:1"`
	Revision       int64     `json:"revision" gorm:"not null;uniqueIndex:idx_application_events_revision,priority:2"`
	FromStatus     *Status   `json:"from_status" gorm:"type:varchar(32)"`
	ToStatus       Status    `json:"to_status" gorm:"type:varchar(32);not null"`
	Action         Action    `json:"action" gorm:"type:varchar(48);not null;index"`
	ActorIdentity  string    `json:"actor_identity" gorm:"size:255;not null"`
	ActorRole      Role      `json:"actor_role" gorm:"type:varchar(32);not null"`
	Note           string    `json:"note,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
}

func (TransitionEvent) TableName() string {
	return "application_events"
}
