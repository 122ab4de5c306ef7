// internal/models/negotiation.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferTerms are the license terms proposed by one party of a negotiation.
type OfferTerms struct {
	Territory          string          `json:"territory" validate:"required,max=100"`
	DurationMonths     int             `json:"duration_months" validate:"required,min=1,max=600"`
	AdvanceAmount      decimal.Decimal `json:"advance_amount"`
	WriterSharePercent decimal.Decimal `json:"writer_share_percent"`
	Exclusive          bool            `json:"exclusive"`
	Format             string          `json:"format,omitempty" validate:"max=100"`
	TargetLanguages    []string        `json:"target_languages,omitempty" validate:"dive,required,max=10"`
	Notes              string          `json:"notes,omitempty" validate:"max=2000"`
}

type NegotiationMessage struct {
	ID         uuid.UUID   `json:"id"`
	SenderID   string      `json:"sender_id"`
	SenderRole PartyRole   `json:"sender_role"`
	Text       string      `json:"text"`
	Offer      *OfferTerms `json:"offer,omitempty"`
	SentAt     time.Time   `json:"sent_at"`
}

type NegotiationSession struct {
	BaseModel
	ListingID       string               `json:"listing_id" gorm:"size:100;not null;index"`
	StudioID        string               `json:"studio_id" gorm:"size:100;not null;index"`
	WriterID        string               `json:"writer_id" gorm:"size:100;not null;index"`
	LicenseType     LicenseType          `json:"license_type" gorm:"type:varchar(30);not null"`
	Status          NegotiationStatus    `json:"status" gorm:"type:varchar(20);not null;index"`
	CurrentTerms    OfferTerms           `json:"current_terms" gorm:"type:jsonb;serializer:json;not null"`
	TermsProposedBy PartyRole            `json:"terms_proposed_by" gorm:"type:varchar(10);not null"`
	Messages        []NegotiationMessage `json:"messages" gorm:"type:jsonb;serializer:json;not null"`
	ExpiresAt       time.Time            `json:"expires_at" gorm:"not null;index"`
	ClosedAt        *time.Time           `json:"closed_at"`
	ClosedBy        string               `json:"closed_by,omitempty" gorm:"size:100"`
	RejectionReason string               `json:"rejection_reason,omitempty" gorm:"type:text"`
}

// RoleOf returns the negotiating role held by actorID, if any.
func (n *NegotiationSession) RoleOf(actorID string) (PartyRole, bool) {
	switch actorID {
	case n.StudioID:
		return PartyRoleStudio, true
	case n.WriterID:
		return PartyRoleWriter, true
	}
	return "", false
}
