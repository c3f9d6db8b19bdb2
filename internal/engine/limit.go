package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	lakh            = decimal.NewFromInt(100_000)
	limitMultiplier = decimal.NewFromInt(36)
)

// ApprovedLimit вычисляет кредитный лимит: 36 месячных доходов,
// округлённые до ближайшего лакха. Половина лакха округляется вверх.
func ApprovedLimit(monthlyIncome decimal.Decimal) (decimal.Decimal, error) {
	if !monthlyIncome.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: monthly income must be positive, got %s", ErrInvalidInput, monthlyIncome)
	}

	// Round в shopspring/decimal округляет половину от нуля, для положительных это half-up.
	return monthlyIncome.Mul(limitMultiplier).Div(lakh).Round(0).Mul(lakh), nil
}
