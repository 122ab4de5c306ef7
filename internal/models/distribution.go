// internal/models/distribution.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueDistributionRecord is the computed three-way split of one gross
// revenue event. Its ID is derived from (workflow, period) so a retried event
// maps onto the same row. PlatformFee + WriterShare + StudioShare always equals
// GrossRevenue.
type RevenueDistributionRecord struct {
	BaseModel
	WorkflowID           uuid.UUID          `json:"workflow_id" gorm:"type:uuid;not null;index"`
	PeriodStart          time.Time          `json:"period_start" gorm:"type:date;not null"`
	PeriodEnd            time.Time          `json:"period_end" gorm:"type:date;not null"`
	GrossRevenue         decimal.Decimal    `json:"gross_revenue" gorm:"type:numeric(18,2);not null"`
	PlatformFeePercent   decimal.Decimal    `json:"platform_fee_percent" gorm:"type:numeric(5,2);not null"`
	WriterSharePercent   decimal.Decimal    `json:"writer_share_percent" gorm:"type:numeric(5,2);not null"`
	PlatformFee          decimal.Decimal    `json:"platform_fee" gorm:"type:numeric(18,2);not null"`
	WriterShare          decimal.Decimal    `json:"writer_share" gorm:"type:numeric(18,2);not null"`
	StudioShare          decimal.Decimal    `json:"studio_share" gorm:"type:numeric(18,2);not null"`
	Source               string             `json:"source" gorm:"size:100;not null"`
	Status               DistributionStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	TransactionReference string             `json:"transaction_reference,omitempty" gorm:"size:255"`
	FailureReason        string             `json:"failure_reason,omitempty" gorm:"type:text"`
	SettledAt            *time.Time         `json:"settled_at"`
}

// Reconciles reports whether the three shares add up to the gross exactly.
func (r *RevenueDistributionRecord) Reconciles() bool {
	return r.PlatformFee.Add(r.WriterShare).Add(r.StudioShare).Equal(r.GrossRevenue)
}
