// Package model содержит доменные сущности системы одобрения кредитов.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer представляет зарегистрированного клиента и его кредитный лимит.
type Customer struct {
	ID            int64
	FirstName     string
	LastName      string
	Age           int
	PhoneNumber   string
	MonthlyIncome decimal.Decimal
	ApprovedLimit decimal.Decimal
	CurrentDebt   decimal.Decimal
}

// Name возвращает полное имя клиента.
func (c Customer) Name() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Loan описывает кредит, принадлежащий одному клиенту.
type Loan struct {
	ID                 int64
	CustomerID         int64
	Amount             decimal.Decimal
	Tenure             int
	InterestRate       decimal.Decimal
	MonthlyInstallment decimal.Decimal
	EMIsPaidOnTime     int
	StartDate          time.Time
	EndDate            time.Time
}

// IsActive сообщает, погашается ли кредит на указанную дату.
func (l Loan) IsActive(asOf time.Time) bool {
	return l.EndDate.After(asOf)
}

// RepaymentsLeft возвращает количество неоплаченных платежей.
func (l Loan) RepaymentsLeft() int {
	left := l.Tenure - l.EMIsPaidOnTime
	if left < 0 {
		return 0
	}
	return left
}

// RejectReason описывает причину отказа в кредите.
type RejectReason string

const (
	RejectLimitExceeded       RejectReason = "limit_exceeded"
	RejectLowCreditScore      RejectReason = "low_credit_score"
	RejectEMIToIncomeExceeded RejectReason = "emi_to_income_exceeded"
)

// Message возвращает человекочитаемое описание причины отказа.
func (r RejectReason) Message() string {
	switch r {
	case RejectLimitExceeded:
		return "requested amount exceeds the approved limit"
	case RejectLowCreditScore:
		return "credit score is too low"
	case RejectEMIToIncomeExceeded:
		return "total EMIs would exceed 50% of monthly income"
	case "":
		return "loan approved"
	default:
		return string(r)
	}
}

// EligibilityDecision содержит результат проверки заявки. Не сохраняется.
type EligibilityDecision struct {
	Approved              bool
	Reason                RejectReason
	Score                 int
	InterestRate          decimal.Decimal
	CorrectedInterestRate decimal.Decimal
	MonthlyInstallment    decimal.Decimal
	Tenure                int
}

// LoanDetails объединяет кредит и данные его владельца.
type LoanDetails struct {
	Loan     Loan     `json:"loan"`
	Customer Customer `json:"customer"`
}

// Statement описывает состояние погашения кредита на дату.
type Statement struct {
	LoanID             int64
	CustomerID         int64
	Principal          decimal.Decimal
	InterestRate       decimal.Decimal
	MonthlyInstallment decimal.Decimal
	AmountPaid         decimal.Decimal
	EMIsPaid           int
	EMIsDue            int
	EMIsRemaining      int
	StartDate          time.Time
	EndDate            time.Time
}
