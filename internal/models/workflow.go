// internal/models/workflow.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WorkflowStep struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Required    bool       `json:"required"`
	Recurring   bool       `json:"recurring"`
	DependsOn   []string   `json:"depends_on"`
	Status      StepStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Milestone struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	PaymentPercentage decimal.Decimal `json:"payment_percentage"`
	PaymentAmount     decimal.Decimal `json:"payment_amount"`
	EstimatedDate     time.Time       `json:"estimated_date"`
	Status            MilestoneStatus `json:"status"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

type LicensingWorkflow struct {
	BaseModel
	ContractID         uuid.UUID       `json:"contract_id" gorm:"type:uuid;not null;uniqueIndex"`
	LicenseType        LicenseType     `json:"license_type" gorm:"type:varchar(30);not null"`
	LicenseCategory    LicenseCategory `json:"license_category" gorm:"type:varchar(30);not null;index"`
	Status             WorkflowStatus  `json:"status" gorm:"type:varchar(20);not null;index"`
	Steps              []WorkflowStep  `json:"steps" gorm:"type:jsonb;serializer:json;not null"`
	Milestones         []Milestone     `json:"milestones" gorm:"type:jsonb;serializer:json;not null"`
	AdvanceAmount      decimal.Decimal `json:"advance_amount" gorm:"type:numeric(18,2);not null;default:0"`
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent" gorm:"type:numeric(5,2);not null"`
	WriterSharePercent decimal.Decimal `json:"writer_share_percent" gorm:"type:numeric(5,2);not null"`
	TotalGross         decimal.Decimal `json:"total_gross" gorm:"type:numeric(18,2);not null;default:0"`
	TotalPlatformFee   decimal.Decimal `json:"total_platform_fee" gorm:"type:numeric(18,2);not null;default:0"`
	TotalWriterShare   decimal.Decimal `json:"total_writer_share" gorm:"type:numeric(18,2);not null;default:0"`
	TotalStudioShare   decimal.Decimal `json:"total_studio_share" gorm:"type:numeric(18,2);not null;default:0"`
	DistributionCount  int64           `json:"distribution_count" gorm:"not null;default:0"`
	LastDistributionAt *time.Time      `json:"last_distribution_at"`
	ExpiresAt          time.Time       `json:"expires_at" gorm:"not null"`
	CompletedAt        *time.Time      `json:"completed_at"`
}

func (w *LicensingWorkflow) Step(id string) (*WorkflowStep, bool) {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i], true
		}
	}
	return nil, false
}

func (w *LicensingWorkflow) Milestone(id string) (*Milestone, bool) {
	for i := range w.Milestones {
		if w.Milestones[i].ID == id {
			return &w.Milestones[i], true
		}
	}
	return nil, false
}

// RecurringStep returns the step that revenue distributions execute under.
func (w *LicensingWorkflow) RecurringStep() (*WorkflowStep, bool) {
	for i := range w.Steps {
		if w.Steps[i].Recurring {
			return &w.Steps[i], true
		}
	}
	return nil, false
}

// DependenciesMet reports whether every step the given step depends on is
// COMPLETED, along with the first unmet dependency.
func (w *LicensingWorkflow) DependenciesMet(step *WorkflowStep) (bool, string) {
	for _, dep := range step.DependsOn {
		d, ok := w.Step(dep)
		if !ok || d.Status != StepStatusCompleted {
			return false, dep
		}
	}
	return true, ""
}
