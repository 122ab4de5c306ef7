// internal/models/money.go
package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// amountPlaces matches the numeric(_,2) columns amounts and percentages are
// stored in.
const amountPlaces = 2

// fixed renders d with exactly two fractional digits. decimal.Decimal drops
// trailing zeros on its own, which would turn 1200.00 into "1200".
func fixed(d decimal.Decimal) string {
	return d.StringFixed(amountPlaces)
}

func (o OfferTerms) MarshalJSON() ([]byte, error) {
	type plain OfferTerms
	return json.Marshal(struct {
		plain
		AdvanceAmount      string `json:"advance_amount"`
		WriterSharePercent string `json:"writer_share_percent"`
	}{
		plain:              plain(o),
		AdvanceAmount:      fixed(o.AdvanceAmount),
		WriterSharePercent: fixed(o.WriterSharePercent),
	})
}

func (m Milestone) MarshalJSON() ([]byte, error) {
	type plain Milestone
	return json.Marshal(struct {
		plain
		PaymentPercentage string `json:"payment_percentage"`
		PaymentAmount     string `json:"payment_amount"`
	}{
		plain:             plain(m),
		PaymentPercentage: fixed(m.PaymentPercentage),
		PaymentAmount:     fixed(m.PaymentAmount),
	})
}

func (w LicensingWorkflow) MarshalJSON() ([]byte, error) {
	type plain LicensingWorkflow
	return json.Marshal(struct {
		plain
		AdvanceAmount      string `json:"advance_amount"`
		PlatformFeePercent string `json:"platform_fee_percent"`
		WriterSharePercent string `json:"writer_share_percent"`
		TotalGross         string `json:"total_gross"`
		TotalPlatformFee   string `json:"total_platform_fee"`
		TotalWriterShare   string `json:"total_writer_share"`
		TotalStudioShare   string `json:"total_studio_share"`
	}{
		plain:              plain(w),
		AdvanceAmount:      fixed(w.AdvanceAmount),
		PlatformFeePercent: fixed(w.PlatformFeePercent),
		WriterSharePercent: fixed(w.WriterSharePercent),
		TotalGross:         fixed(w.TotalGross),
		TotalPlatformFee:   fixed(w.TotalPlatformFee),
		TotalWriterShare:   fixed(w.TotalWriterShare),
		TotalStudioShare:   fixed(w.TotalStudioShare),
	})
}

func (r RevenueDistributionRecord) MarshalJSON() ([]byte, error) {
	type plain RevenueDistributionRecord
	return json.Marshal(struct {
		plain
		GrossRevenue       string `json:"gross_revenue"`
		PlatformFeePercent string `json:"platform_fee_percent"`
		WriterSharePercent string `json:"writer_share_percent"`
		PlatformFee        string `json:"platform_fee"`
		WriterShare        string `json:"writer_share"`
		StudioShare        string `json:"studio_share"`
	}{
		plain:              plain(r),
		GrossRevenue:       fixed(r.GrossRevenue),
		PlatformFeePercent: fixed(r.PlatformFeePercent),
		WriterSharePercent: fixed(r.WriterSharePercent),
		PlatformFee:        fixed(r.PlatformFee),
		WriterShare:        fixed(r.WriterShare),
		StudioShare:        fixed(r.StudioShare),
	})
}
