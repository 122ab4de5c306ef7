// internal/utils/money.go
package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits every monetary amount carries.
const MoneyPlaces = 2

var (
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrAmountPrecision   = errors.New("amount has more than two fractional digits")
	ErrPercentOutOfRange = errors.New("percentage must be between 0 and 100 with at most two fractional digits")

	Hundred = decimal.NewFromInt(100)
)

// Split is the three-way division of one gross amount.
type Split struct {
	Gross       decimal.Decimal `json:"gross"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	Net         decimal.Decimal `json:"net"`
	WriterShare decimal.Decimal `json:"writer_share"`
	StudioShare decimal.Decimal `json:"studio_share"`
}

func (s Split) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"gross":        s.Gross.StringFixed(MoneyPlaces),
		"platform_fee": s.PlatformFee.StringFixed(MoneyPlaces),
		"net":          s.Net.StringFixed(MoneyPlaces),
		"writer_share": s.WriterShare.StringFixed(MoneyPlaces),
		"studio_share": s.StudioShare.StringFixed(MoneyPlaces),
	})
}

// Round2 rounds half away from zero to two places, which is half-up for the
// non-negative amounts this package handles.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// PercentOf returns amount * percent / 100 rounded to cents.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(percent).Div(Hundred))
}

// ValidPercent reports whether p lies in [0, 100] and fits a numeric(5,2)
// column without rounding.
func ValidPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(Hundred) && p.Equal(Round2(p))
}

// ValidateAmount checks that d is a positive amount with at most two
// fractional digits.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !d.Equal(Round2(d)) {
		return ErrAmountPrecision
	}
	return nil
}

// ComputeSplit divides gross into platform fee, writer share and studio share.
// The studio share is the remainder of net after the writer share, never a
// separately rounded percentage, so the three parts always sum to gross.
func ComputeSplit(gross, platformFeePercent, writerPercentOfNet decimal.Decimal) (Split, error) {
	if err := ValidateAmount(gross); err != nil {
		return Split{}, err
	}
	if !ValidPercent(platformFeePercent) {
		return Split{}, fmt.Errorf("platform fee: %w", ErrPercentOutOfRange)
	}
	if !ValidPercent(writerPercentOfNet) {
		return Split{}, fmt.Errorf("writer share: %w", ErrPercentOutOfRange)
	}

	platformFee := PercentOf(gross, platformFeePercent)
	net := gross.Sub(platformFee)
	writerShare := PercentOf(net, writerPercentOfNet)
	studioShare := net.Sub(writerShare)

	return Split{
		Gross:       gross,
		PlatformFee: platformFee,
		Net:         net,
		WriterShare: writerShare,
		StudioShare: studioShare,
	}, nil
}

// AllocateByPercent spreads total across the given percentages. Every part but
// the last is rounded; the last takes whatever remains so the parts sum to
// total exactly.
func AllocateByPercent(total decimal.Decimal, percents []decimal.Decimal) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(percents))
	allocated := decimal.Zero
	for i, p := range percents {
		if i == len(percents)-1 {
			parts[i] = total.Sub(allocated)
			break
		}
		parts[i] = PercentOf(total, p)
		allocated = allocated.Add(parts[i])
	}
	return parts
}
