package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits carried by amounts.
const MoneyPlaces = 2

// ValidateAmount checks that amount is positive and has no more than
// MoneyPlaces fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(MoneyPlaces)) {
		return fmt.Errorf("amount must have at most %d decimal places", MoneyPlaces)
	}
	return nil
}

// FeePolicy computes the fee charged on a withdrawal: Flat + Rate*amount.
type FeePolicy struct {
	Flat decimal.Decimal
	Rate decimal.Decimal
}

// ParseFeePolicy builds a FeePolicy from its textual config values.
// Empty strings are treated as zero.
func ParseFeePolicy(flat, rate string) (FeePolicy, error) {
	p := FeePolicy{Flat: decimal.Zero, Rate: decimal.Zero}
	var err error
	if flat != "" {
		if p.Flat, err = decimal.NewFromString(flat); err != nil {
			return FeePolicy{}, fmt.Errorf("parsing flat fee: %w", err)
		}
	}
	if rate != "" {
		if p.Rate, err = decimal.NewFromString(rate); err != nil {
			return FeePolicy{}, fmt.Errorf("parsing fee rate: %w", err)
		}
	}
	if p.Flat.IsNegative() || p.Rate.IsNegative() {
		return FeePolicy{}, fmt.Errorf("fee policy must not be negative")
	}
	return p, nil
}

// WithdrawalFee returns the fee for a withdrawal of amount.
func (p FeePolicy) WithdrawalFee(amount decimal.Decimal) decimal.Decimal {
	return p.Flat.Add(amount.Mul(p.Rate)).Round(MoneyPlaces)
}
