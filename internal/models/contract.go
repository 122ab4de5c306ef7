// internal/models/contract.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Contract freezes the terms of an accepted negotiation. FinalTerms never
// change after creation; only the status and signature fields move.
type Contract struct {
	BaseModel
	NegotiationID     uuid.UUID      `json:"negotiation_id" gorm:"type:uuid;not null;uniqueIndex"`
	ListingID         string         `json:"listing_id" gorm:"size:100;not null"`
	StudioID          string         `json:"studio_id" gorm:"size:100;not null"`
	WriterID          string         `json:"writer_id" gorm:"size:100;not null"`
	Parties           pq.StringArray `json:"parties" gorm:"type:text[]"`
	LicenseType       LicenseType    `json:"license_type" gorm:"type:varchar(30);not null"`
	FinalTerms        OfferTerms     `json:"final_terms" gorm:"type:jsonb;serializer:json;not null"`
	Status            ContractStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	SignatureDeadline time.Time      `json:"signature_deadline" gorm:"not null"`
	StudioSignedAt    *time.Time     `json:"studio_signed_at"`
	WriterSignedAt    *time.Time     `json:"writer_signed_at"`
	ActivatedAt       *time.Time     `json:"activated_at"`
	ContractURL       string         `json:"contract_url,omitempty" gorm:"size:500"`
}

func (c *Contract) RoleOf(actorID string) (PartyRole, bool) {
	switch actorID {
	case c.StudioID:
		return PartyRoleStudio, true
	case c.WriterID:
		return PartyRoleWriter, true
	}
	return "", false
}
