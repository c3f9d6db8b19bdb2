package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const powPrecision = 28

var (
	monthsInYear = decimal.NewFromInt(12)
	hundred      = decimal.NewFromInt(100)
)

// ComputeEMI рассчитывает ежемесячный аннуитетный платёж с округлением до копеек.
func ComputeEMI(principal, annualRate decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidInput, principal)
	}
	if tenureMonths <= 0 {
		return decimal.Zero, fmt.Errorf("%w: tenure must be positive, got %d", ErrInvalidInput, tenureMonths)
	}
	if annualRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: interest rate must not be negative, got %s", ErrInvalidInput, annualRate)
	}

	n := decimal.NewFromInt(int64(tenureMonths))
	r := annualRate.Div(monthsInYear).Div(hundred)
	if r.IsZero() {
		return principal.Div(n).Round(2), nil
	}

	// P * r * (1+r)^n / ((1+r)^n - 1)
	factor := powInt(decimal.NewFromInt(1).Add(r), tenureMonths)
	emi := principal.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1)))

	return emi.Round(2), nil
}

// powInt возводит base в натуральную степень, ограничивая разрядность промежуточных значений.
func powInt(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(powPrecision)
		}
		base = base.Mul(base).Round(powPrecision)
		n >>= 1
	}
	return result
}
