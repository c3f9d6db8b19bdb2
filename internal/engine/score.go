package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

const (
	minScore = 0
	maxScore = 100
)

// ScoreSignals содержит промежуточные показатели, из которых складывается рейтинг.
type ScoreSignals struct {
	Loans         int
	LoansThisYear int
	OnTimeRatio   decimal.Decimal
	VolumeRatio   decimal.Decimal
	OverBorrowed  bool
}

// CollectSignals вычисляет показатели кредитной истории клиента на дату asOf.
func CollectSignals(customer model.Customer, history []model.Loan, asOf time.Time) ScoreSignals {
	s := ScoreSignals{
		Loans:       len(history),
		OnTimeRatio: decimal.Zero,
		VolumeRatio: decimal.Zero,
	}

	ratioSum := decimal.Zero
	rated := 0
	volume := decimal.Zero

	for _, l := range history {
		volume = volume.Add(l.Amount)

		if l.StartDate.Year() == asOf.Year() {
			s.LoansThisYear++
		}

		if l.Tenure <= 0 {
			continue
		}
		paid := min(max(l.EMIsPaidOnTime, 0), l.Tenure)
		ratioSum = ratioSum.Add(decimal.NewFromInt(int64(paid)).Div(decimal.NewFromInt(int64(l.Tenure))))
		rated++
	}

	if rated > 0 {
		s.OnTimeRatio = ratioSum.Div(decimal.NewFromInt(int64(rated)))
	}

	switch {
	case customer.ApprovedLimit.IsPositive():
		s.VolumeRatio = volume.Div(customer.ApprovedLimit)
		s.OverBorrowed = s.VolumeRatio.GreaterThan(decimal.NewFromInt(1))
	case volume.IsPositive():
		s.OverBorrowed = true
	}

	return s
}

// ComputeScore рассчитывает кредитный рейтинг клиента в диапазоне [0, 100].
func ComputeScore(customer model.Customer, history []model.Loan, asOf time.Time, p Policy) int {
	if len(history) == 0 {
		return clampScore(p.NoHistoryScore)
	}

	s := CollectSignals(customer, history, asOf)
	if s.OverBorrowed {
		return minScore
	}

	one := decimal.NewFromInt(1)

	score := p.PaymentWeight.Mul(s.OnTimeRatio)
	score = score.Add(p.LoanCountWeight.Mul(saturate(s.Loans, p.LoanCountSaturation)))
	score = score.Add(p.ActivityWeight.Mul(saturate(s.LoansThisYear, p.ActivitySaturation)))
	score = score.Add(p.VolumeWeight.Mul(one.Sub(decimal.Min(s.VolumeRatio, one))))

	return clampScore(int(score.Round(0).IntPart()))
}

// saturate возвращает max(0, 1 - count/limit). При limit <= 0 сигнал отключён.
func saturate(count, limit int) decimal.Decimal {
	if limit <= 0 {
		return decimal.NewFromInt(1)
	}
	v := decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(count)).Div(decimal.NewFromInt(int64(limit))))
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func clampScore(score int) int {
	return min(max(score, minScore), maxScore)
}
