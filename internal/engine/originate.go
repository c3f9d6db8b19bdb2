package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

// Originate формирует новый кредит по одобренному решению и возвращает клиента
// с увеличенным долгом. Сохранение обоих значений должно быть атомарным.
func Originate(customer model.Customer, decision model.EligibilityDecision, amount decimal.Decimal, start time.Time) (model.Loan, model.Customer, error) {
	if !decision.Approved {
		return model.Loan{}, model.Customer{}, fmt.Errorf("%w: %s", ErrNotApproved, decision.Reason)
	}
	if !amount.IsPositive() {
		return model.Loan{}, model.Customer{}, fmt.Errorf("%w: loan amount must be positive, got %s", ErrInvalidInput, amount)
	}
	if !HasMoneyScale(amount) {
		return model.Loan{}, model.Customer{}, fmt.Errorf("%w: loan amount %s has more than %d decimal places", ErrInvalidInput, amount, moneyPlaces)
	}
	if decision.Tenure <= 0 {
		return model.Loan{}, model.Customer{}, fmt.Errorf("%w: tenure must be positive, got %d", ErrInvalidInput, decision.Tenure)
	}

	start = Date(start)
	loan := model.Loan{
		CustomerID:         customer.ID,
		Amount:             amount,
		Tenure:             decision.Tenure,
		InterestRate:       decision.CorrectedInterestRate,
		MonthlyInstallment: decision.MonthlyInstallment,
		EMIsPaidOnTime:     0,
		StartDate:          start,
		EndDate:            AddMonths(start, decision.Tenure),
	}

	customer.CurrentDebt = customer.CurrentDebt.Add(amount)

	return loan, customer, nil
}
