package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

func statementLoan(paid int) model.Loan {
	return model.Loan{
		ID:                 11,
		CustomerID:         1,
		Amount:             dec("100000"),
		Tenure:             12,
		InterestRate:       dec("10"),
		MonthlyInstallment: dec("8791.59"),
		EMIsPaidOnTime:     paid,
		StartDate:          day(2025, 1, 15),
		EndDate:            day(2026, 1, 15),
	}
}

func TestBuildStatement(t *testing.T) {
	tests := []struct {
		name      string
		paid      int
		asOf      time.Time
		due       int
		remaining int
		amount    string
	}{
		{name: "at start", paid: 0, asOf: day(2025, 1, 15), due: 0, remaining: 12, amount: "0"},
		{name: "behind schedule", paid: 3, asOf: day(2025, 6, 20), due: 2, remaining: 9, amount: "26374.77"},
		{name: "ahead of schedule", paid: 6, asOf: day(2025, 3, 1), due: 0, remaining: 6, amount: "52749.54"},
		{name: "after end date", paid: 10, asOf: day(2027, 4, 1), due: 2, remaining: 2, amount: "87915.90"},
		{name: "fully repaid", paid: 12, asOf: day(2026, 2, 1), due: 0, remaining: 0, amount: "105499.08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := statementLoan(tt.paid)

			got, err := BuildStatement(loan, tt.asOf)
			require.NoError(t, err)

			assert.Equal(t, loan.ID, got.LoanID)
			assert.Equal(t, loan.CustomerID, got.CustomerID)
			assert.Equal(t, tt.paid, got.EMIsPaid)
			assert.Equal(t, tt.due, got.EMIsDue)
			assert.Equal(t, tt.remaining, got.EMIsRemaining)
			assert.True(t, dec(tt.amount).Equal(got.AmountPaid), "amount paid = %s, want %s", got.AmountPaid, tt.amount)
			assert.Equal(t, loan.StartDate, got.StartDate)
			assert.Equal(t, loan.EndDate, got.EndDate)
		})
	}
}

func TestBuildStatement_BeforeStart(t *testing.T) {
	_, err := BuildStatement(statementLoan(0), day(2025, 1, 14))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildStatement_IgnoresTimeOfDay(t *testing.T) {
	asOf := time.Date(2025, 1, 15, 23, 59, 0, 0, time.UTC)

	got, err := BuildStatement(statementLoan(0), asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, got.EMIsDue)
	assert.Equal(t, 12, got.EMIsRemaining)
}
