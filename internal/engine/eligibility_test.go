package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

func ratePtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestEvaluate(t *testing.T) {
	p := DefaultPolicy()
	customer := testCustomer("3600000")

	type want struct {
		approved  bool
		reason    model.RejectReason
		corrected string
		emi       string
	}

	tests := []struct {
		name     string
		customer model.Customer
		amount   string
		tenure   int
		rate     *decimal.Decimal
		score    int
		want     want
	}{
		{
			name:     "mid tier corrects rate up",
			customer: customer,
			amount:   "100000",
			tenure:   12,
			rate:     ratePtr("8"),
			score:    45,
			want:     want{approved: true, corrected: "12", emi: "8884.88"},
		},
		{
			name:     "mid tier keeps higher requested rate",
			customer: customer,
			amount:   "500000",
			tenure:   12,
			rate:     ratePtr("12.5"),
			score:    31,
			want:     want{approved: true, corrected: "12.5", emi: "44541.43"},
		},
		{
			name:     "top tier keeps requested rate",
			customer: customer,
			amount:   "100000",
			tenure:   12,
			rate:     ratePtr("10"),
			score:    80,
			want:     want{approved: true, corrected: "10", emi: "8791.59"},
		},
		{
			name:     "top tier default rate",
			customer: customer,
			amount:   "100000",
			tenure:   12,
			score:    51,
			want:     want{approved: true, corrected: "10", emi: "8791.59"},
		},
		{
			name:     "low tier corrects rate up",
			customer: customer,
			amount:   "100000",
			tenure:   24,
			rate:     ratePtr("8"),
			score:    20,
			want:     want{approved: true, corrected: "16", emi: "4896.31"},
		},
		{
			name:     "low tier boundary",
			customer: customer,
			amount:   "100000",
			tenure:   24,
			rate:     ratePtr("16"),
			score:    30,
			want:     want{approved: true, corrected: "16", emi: "4896.31"},
		},
		{
			name:     "low score rejected",
			customer: customer,
			amount:   "100000",
			tenure:   12,
			rate:     ratePtr("20"),
			score:    10,
			want:     want{reason: model.RejectLowCreditScore},
		},
		{
			name: "limit exceeded regardless of score",
			customer: model.Customer{
				ID:            1,
				MonthlyIncome: dec("1000000"),
				ApprovedLimit: dec("2000000"),
				CurrentDebt:   dec("1900000"),
			},
			amount: "200000",
			tenure: 12,
			rate:   ratePtr("10"),
			score:  100,
			want:   want{reason: model.RejectLimitExceeded},
		},
		{
			name: "limit reached exactly is allowed",
			customer: model.Customer{
				ID:            1,
				MonthlyIncome: dec("1000000"),
				ApprovedLimit: dec("2000000"),
				CurrentDebt:   dec("1900000"),
			},
			amount: "100000",
			tenure: 12,
			rate:   ratePtr("10"),
			score:  100,
			want:   want{approved: true, corrected: "10", emi: "8791.59"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := EligibilityRequest{
				Customer: tt.customer,
				Amount:   dec(tt.amount),
				Tenure:   tt.tenure,
				Rate:     tt.rate,
			}

			got, err := Evaluate(req, tt.score, nil, scoreDate, p)
			require.NoError(t, err)

			assert.Equal(t, tt.want.approved, got.Approved)
			assert.Equal(t, tt.want.reason, got.Reason)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.tenure, got.Tenure)

			if !tt.want.approved {
				assert.True(t, got.MonthlyInstallment.IsZero())
				assert.True(t, got.CorrectedInterestRate.IsZero())
				return
			}
			assert.True(t, dec(tt.want.corrected).Equal(got.CorrectedInterestRate),
				"corrected rate = %s, want %s", got.CorrectedInterestRate, tt.want.corrected)
			assert.True(t, dec(tt.want.emi).Equal(got.MonthlyInstallment),
				"EMI = %s, want %s", got.MonthlyInstallment, tt.want.emi)
		})
	}
}

func TestEvaluate_IncomeShareGuard(t *testing.T) {
	p := DefaultPolicy()
	customer := model.Customer{
		ID:            7,
		MonthlyIncome: dec("10000"),
		ApprovedLimit: dec("400000"),
		CurrentDebt:   dec("100000"),
	}

	active := model.Loan{
		CustomerID:         7,
		Amount:             dec("100000"),
		Tenure:             12,
		MonthlyInstallment: dec("4500"),
		StartDate:          day(2025, 1, 1),
		EndDate:            day(2026, 1, 1),
	}
	finished := active
	finished.StartDate = day(2023, 1, 1)
	finished.EndDate = day(2024, 1, 1)

	req := EligibilityRequest{Customer: customer, Amount: dec("10000"), Tenure: 12}

	t.Run("active loans count", func(t *testing.T) {
		got, err := Evaluate(req, 80, []model.Loan{active}, scoreDate, p)
		require.NoError(t, err)
		assert.False(t, got.Approved)
		assert.Equal(t, model.RejectEMIToIncomeExceeded, got.Reason)
	})

	t.Run("finished loans are ignored", func(t *testing.T) {
		got, err := Evaluate(req, 80, []model.Loan{finished}, scoreDate, p)
		require.NoError(t, err)
		assert.True(t, got.Approved)
	})

	t.Run("other customers loans are ignored", func(t *testing.T) {
		foreign := active
		foreign.CustomerID = 8
		got, err := Evaluate(req, 80, []model.Loan{foreign}, scoreDate, p)
		require.NoError(t, err)
		assert.True(t, got.Approved)
	})

	t.Run("guard uses corrected rate", func(t *testing.T) {
		// 4500 + 491.67 fits at 0%, 4500 + 524.21 at the corrected 12% does not.
		zero := decimal.Zero
		r := req
		r.Amount = dec("5900")
		r.Rate = &zero
		got, err := Evaluate(r, 40, []model.Loan{active}, scoreDate, p)
		require.NoError(t, err)
		assert.Equal(t, model.RejectEMIToIncomeExceeded, got.Reason)
	})

	t.Run("low score is rejected before the guard", func(t *testing.T) {
		got, err := Evaluate(req, 5, []model.Loan{active}, scoreDate, p)
		require.NoError(t, err)
		assert.Equal(t, model.RejectLowCreditScore, got.Reason)
	})
}

func TestEvaluate_InvalidInput(t *testing.T) {
	p := DefaultPolicy()
	customer := testCustomer("1000000")

	tests := []struct {
		name string
		req  EligibilityRequest
	}{
		{name: "zero amount", req: EligibilityRequest{Customer: customer, Amount: decimal.Zero, Tenure: 12}},
		{name: "negative amount", req: EligibilityRequest{Customer: customer, Amount: dec("-5"), Tenure: 12}},
		{name: "zero tenure", req: EligibilityRequest{Customer: customer, Amount: dec("1000"), Tenure: 0}},
		{name: "negative rate", req: EligibilityRequest{Customer: customer, Amount: dec("1000"), Tenure: 12, Rate: ratePtr("-1")}},
		{name: "amount with fractional paise", req: EligibilityRequest{Customer: customer, Amount: dec("100000.555"), Tenure: 12}},
		{name: "rate with three decimals", req: EligibilityRequest{Customer: customer, Amount: dec("100000"), Tenure: 12, Rate: ratePtr("12.345")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.req, 90, nil, scoreDate, p)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

// Платёж должен совпадать с аннуитетом, пересчитанным из сохраняемых значений.
func TestEvaluate_InstallmentMatchesStoredTerms(t *testing.T) {
	p := DefaultPolicy()
	req := EligibilityRequest{
		Customer: testCustomer("3600000"),
		Amount:   dec("100000.50"),
		Tenure:   12,
		Rate:     ratePtr("12.300"),
	}

	d, err := Evaluate(req, 90, nil, scoreDate, p)
	require.NoError(t, err)
	require.True(t, d.Approved)

	loan, _, err := Originate(req.Customer, d, req.Amount, scoreDate)
	require.NoError(t, err)

	stored := func(v decimal.Decimal) decimal.Decimal { return v.Round(2) }
	recomputed, err := ComputeEMI(stored(loan.Amount), stored(loan.InterestRate), loan.Tenure)
	require.NoError(t, err)

	assert.True(t, recomputed.Equal(loan.MonthlyInstallment), "stored terms give %s, loan has %s", recomputed, loan.MonthlyInstallment)
	assert.True(t, stored(loan.InterestRate).Equal(loan.InterestRate))
	assert.True(t, stored(loan.Amount).Equal(loan.Amount))
}

func TestHasMoneyScale(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "100000", want: true},
		{in: "12.5", want: true},
		{in: "8791.59", want: true},
		{in: "12.340", want: true},
		{in: "12.345", want: false},
		{in: "100000.555", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, HasMoneyScale(dec(tt.in)))
		})
	}
}

func TestLadder_ScoreTiersAreExclusive(t *testing.T) {
	req := EligibilityRequest{Customer: testCustomer("1000000"), Amount: dec("1000"), Tenure: 12}

	for score := 0; score <= 100; score++ {
		matched := 0
		for _, r := range ladder[1:] {
			if r.match(req, score) {
				matched++
			}
		}
		assert.Equal(t, 1, matched, "score %d matched %d tier rules", score, matched)
	}
}

func TestLadder_LimitRuleComesFirst(t *testing.T) {
	req := EligibilityRequest{
		Customer: model.Customer{ApprovedLimit: dec("100"), CurrentDebt: dec("100")},
		Amount:   dec("1"),
		Tenure:   1,
	}

	for _, score := range []int{0, 10, 30, 50, 100} {
		r, ok := matchRule(req, score)
		require.True(t, ok)
		assert.Equal(t, "limit_exceeded", r.name)
	}
}
