package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

// BuildStatement рассчитывает состояние погашения кредита на дату asOf.
// Количество оплаченных платежей берётся из кредита и по датам не выводится.
func BuildStatement(loan model.Loan, asOf time.Time) (model.Statement, error) {
	start := Date(loan.StartDate)
	asOf = Date(asOf)
	if asOf.Before(start) {
		return model.Statement{}, fmt.Errorf("%w: statement date %s is before loan start %s",
			ErrInvalidInput, asOf.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	paid := max(loan.EMIsPaidOnTime, 0)
	elapsed := min(max(MonthsBetween(start, asOf), 0), loan.Tenure)

	return model.Statement{
		LoanID:             loan.ID,
		CustomerID:         loan.CustomerID,
		Principal:          loan.Amount,
		InterestRate:       loan.InterestRate,
		MonthlyInstallment: loan.MonthlyInstallment,
		AmountPaid:         loan.MonthlyInstallment.Mul(decimal.NewFromInt(int64(paid))),
		EMIsPaid:           paid,
		EMIsDue:            max(elapsed-paid, 0),
		EMIsRemaining:      max(loan.Tenure-paid, 0),
		StartDate:          loan.StartDate,
		EndDate:            loan.EndDate,
	}, nil
}
