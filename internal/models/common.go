// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields. Version is the optimistic concurrency stamp;
// every successful update increments it by one.
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Version   int64     `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.Version == 0 {
		b.Version = 1
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type PartyRole string

const (
	PartyRoleStudio PartyRole = "studio"
	PartyRoleWriter PartyRole = "writer"
)

type LicenseType string

const (
	LicenseTypeFilm          LicenseType = "film_rights"
	LicenseTypeTV            LicenseType = "tv_rights"
	LicenseTypeGame          LicenseType = "game_rights"
	LicenseTypeAudio         LicenseType = "audio_rights"
	LicenseTypeTranslation   LicenseType = "translation_rights"
	LicenseTypeMerchandising LicenseType = "merchandising_rights"
)

type LicenseCategory string

const (
	LicenseCategoryAdaptation    LicenseCategory = "adaptation"
	LicenseCategoryAudio         LicenseCategory = "audio"
	LicenseCategoryTranslation   LicenseCategory = "translation"
	LicenseCategoryMerchandising LicenseCategory = "merchandising"
)

var licenseCategories = map[LicenseType]LicenseCategory{
	LicenseTypeFilm:          LicenseCategoryAdaptation,
	LicenseTypeTV:            LicenseCategoryAdaptation,
	LicenseTypeGame:          LicenseCategoryAdaptation,
	LicenseTypeAudio:         LicenseCategoryAudio,
	LicenseTypeTranslation:   LicenseCategoryTranslation,
	LicenseTypeMerchandising: LicenseCategoryMerchandising,
}

// Category maps a license type onto the workflow template family it uses.
func (t LicenseType) Category() (LicenseCategory, bool) {
	c, ok := licenseCategories[t]
	return c, ok
}

type NegotiationStatus string

const (
	NegotiationStatusInitiated    NegotiationStatus = "INITIATED"
	NegotiationStatusInProgress   NegotiationStatus = "IN_PROGRESS"
	NegotiationStatusCounterOffer NegotiationStatus = "COUNTER_OFFER"
	NegotiationStatusAccepted     NegotiationStatus = "ACCEPTED"
	NegotiationStatusRejected     NegotiationStatus = "REJECTED"
	NegotiationStatusExpired      NegotiationStatus = "EXPIRED"
)

type ContractStatus string

const (
	ContractStatusPendingSignatures ContractStatus = "PENDING_SIGNATURES"
	ContractStatusActive            ContractStatus = "ACTIVE"
	ContractStatusExpired           ContractStatus = "EXPIRED"
	ContractStatusCancelled         ContractStatus = "CANCELLED"
)

type WorkflowStatus string

const (
	WorkflowStatusActive    WorkflowStatus = "ACTIVE"
	WorkflowStatusCompleted WorkflowStatus = "COMPLETED"
	WorkflowStatusCancelled WorkflowStatus = "CANCELLED"
)

type StepStatus string

const (
	StepStatusPending    StepStatus = "PENDING"
	StepStatusInProgress StepStatus = "IN_PROGRESS"
	StepStatusCompleted  StepStatus = "COMPLETED"
)

type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "PENDING"
	MilestoneStatusInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneStatusCompleted  MilestoneStatus = "COMPLETED"
)

type DistributionStatus string

const (
	DistributionStatusPending   DistributionStatus = "PENDING"
	DistributionStatusCompleted DistributionStatus = "COMPLETED"
	DistributionStatusFailed    DistributionStatus = "FAILED"
)

type DisputeType string

const (
	DisputeTypePayment            DisputeType = "payment_dispute"
	DisputeTypeContractBreach     DisputeType = "contract_breach"
	DisputeTypeRightsInfringement DisputeType = "rights_infringement"
	DisputeTypeMilestoneDelay     DisputeType = "milestone_delay"
	DisputeTypeOther              DisputeType = "other"
)

type DisputePriority string

const (
	DisputePriorityLow    DisputePriority = "low"
	DisputePriorityMedium DisputePriority = "medium"
	DisputePriorityHigh   DisputePriority = "high"
)

type DisputeStatus string

const (
	DisputeStatusOpen      DisputeStatus = "OPEN"
	DisputeStatusMediation DisputeStatus = "MEDIATION"
	DisputeStatusResolved  DisputeStatus = "RESOLVED"
	DisputeStatusEscalated DisputeStatus = "ESCALATED"
)

type ResolutionStepStatus string

const (
	ResolutionStepPending    ResolutionStepStatus = "pending"
	ResolutionStepInProgress ResolutionStepStatus = "in_progress"
	ResolutionStepCompleted  ResolutionStepStatus = "completed"
	ResolutionStepEscalated  ResolutionStepStatus = "escalated"
)
