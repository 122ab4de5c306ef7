// internal/models/dispute.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ResolutionStep struct {
	Name        string               `json:"name"`
	Status      ResolutionStepStatus `json:"status"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

type Dispute struct {
	BaseModel
	WorkflowID             uuid.UUID        `json:"workflow_id" gorm:"type:uuid;not null;index"`
	Type                   DisputeType      `json:"type" gorm:"type:varchar(30);not null"`
	Priority               DisputePriority  `json:"priority" gorm:"type:varchar(10);not null"`
	Description            string           `json:"description" gorm:"type:text;not null"`
	RaisedByID             string           `json:"raised_by_id" gorm:"size:100;not null"`
	ResolutionTimelineDays int              `json:"resolution_timeline_days" gorm:"not null"`
	DueAt                  time.Time        `json:"due_at" gorm:"not null"`
	Status                 DisputeStatus    `json:"status" gorm:"type:varchar(20);not null;index"`
	ResolutionSteps        []ResolutionStep `json:"resolution_steps" gorm:"type:jsonb;serializer:json;not null"`
	Resolution             string           `json:"resolution,omitempty" gorm:"type:text"`
	ResolvedByID           string           `json:"resolved_by_id,omitempty" gorm:"size:100"`
	ResolvedAt             *time.Time       `json:"resolved_at"`
}
