// internal/models/events.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and relayed to subscribers asynchronously.
type OutboxEvent struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Topic       string     `json:"topic" gorm:"size:100;not null;index"`
	AggregateID uuid.UUID  `json:"aggregate_id" gorm:"type:uuid;not null;index"`
	Payload     JSONB      `json:"payload" gorm:"type:jsonb"`
	OccurredAt  time.Time  `json:"occurred_at" gorm:"not null"`
	PublishedAt *time.Time `json:"published_at" gorm:"index"`
	Attempts    int        `json:"attempts" gorm:"not null;default:0"`
	LastError   string     `json:"last_error,omitempty" gorm:"type:text"`
}

type AuditLog struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt    time.Time  `json:"created_at"`
	ActorID      string     `json:"actor_id" gorm:"size:100;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	StatusCode   int        `json:"status_code"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`
}
