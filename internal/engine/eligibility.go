package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

// EligibilityRequest описывает запрошенные условия кредита.
type EligibilityRequest struct {
	Customer model.Customer
	Amount   decimal.Decimal
	Tenure   int
	// Rate равен nil, если клиент не указал ставку.
	Rate *decimal.Decimal
}

// outcome описывает результат сработавшего правила.
type outcome struct {
	approved bool
	reason   model.RejectReason
	rate     decimal.Decimal
}

// rule связывает условие с результатом. Правила проверяются по порядку,
// срабатывает первое подходящее.
type rule struct {
	name  string
	match func(req EligibilityRequest, score int) bool
	apply func(req EligibilityRequest, p Policy) outcome
}

var ladder = []rule{
	{
		name: "limit_exceeded",
		match: func(req EligibilityRequest, _ int) bool {
			return req.Customer.CurrentDebt.Add(req.Amount).GreaterThan(req.Customer.ApprovedLimit)
		},
		apply: func(EligibilityRequest, Policy) outcome {
			return outcome{reason: model.RejectLimitExceeded}
		},
	},
	{
		name:  "score_above_50",
		match: func(_ EligibilityRequest, score int) bool { return score > 50 },
		apply: func(req EligibilityRequest, p Policy) outcome {
			if req.Rate == nil {
				return outcome{approved: true, rate: p.DefaultRate}
			}
			return outcome{approved: true, rate: *req.Rate}
		},
	},
	{
		name:  "score_31_to_50",
		match: func(_ EligibilityRequest, score int) bool { return score > 30 && score <= 50 },
		apply: func(req EligibilityRequest, p Policy) outcome {
			return outcome{approved: true, rate: atLeast(req.Rate, p.MidTierRate)}
		},
	},
	{
		name:  "score_11_to_30",
		match: func(_ EligibilityRequest, score int) bool { return score > 10 && score <= 30 },
		apply: func(req EligibilityRequest, p Policy) outcome {
			return outcome{approved: true, rate: atLeast(req.Rate, p.LowTierRate)}
		},
	},
	{
		name:  "score_up_to_10",
		match: func(_ EligibilityRequest, score int) bool { return score <= 10 },
		apply: func(EligibilityRequest, Policy) outcome {
			return outcome{reason: model.RejectLowCreditScore}
		},
	},
}

// matchRule возвращает первое правило, подходящее под заявку.
func matchRule(req EligibilityRequest, score int) (rule, bool) {
	for _, r := range ladder {
		if r.match(req, score) {
			return r, true
		}
	}
	return rule{}, false
}

// Evaluate принимает решение по заявке. Отказ является штатным результатом, а не ошибкой;
// ошибка возвращается только для некорректных параметров.
// activeLoans содержит кредиты клиента, их платежи учитываются при проверке доли дохода.
func Evaluate(req EligibilityRequest, score int, activeLoans []model.Loan, asOf time.Time, p Policy) (model.EligibilityDecision, error) {
	if !req.Amount.IsPositive() {
		return model.EligibilityDecision{}, fmt.Errorf("%w: loan amount must be positive, got %s", ErrInvalidInput, req.Amount)
	}
	if req.Tenure <= 0 {
		return model.EligibilityDecision{}, fmt.Errorf("%w: tenure must be positive, got %d", ErrInvalidInput, req.Tenure)
	}
	if req.Rate != nil && req.Rate.IsNegative() {
		return model.EligibilityDecision{}, fmt.Errorf("%w: interest rate must not be negative, got %s", ErrInvalidInput, *req.Rate)
	}
	if !HasMoneyScale(req.Amount) {
		return model.EligibilityDecision{}, fmt.Errorf("%w: loan amount %s has more than %d decimal places", ErrInvalidInput, req.Amount, moneyPlaces)
	}
	if req.Rate != nil && !HasMoneyScale(*req.Rate) {
		return model.EligibilityDecision{}, fmt.Errorf("%w: interest rate %s has more than %d decimal places", ErrInvalidInput, *req.Rate, moneyPlaces)
	}

	decision := model.EligibilityDecision{
		Score:                 score,
		Tenure:                req.Tenure,
		InterestRate:          requestedRate(req, p),
		CorrectedInterestRate: decimal.Zero,
		MonthlyInstallment:    decimal.Zero,
	}

	r, ok := matchRule(req, score)
	if !ok {
		return model.EligibilityDecision{}, fmt.Errorf("%w: no rule matches score %d", ErrInvalidInput, score)
	}

	res := r.apply(req, p)
	if !res.approved {
		decision.Reason = res.reason
		return decision, nil
	}

	emi, err := ComputeEMI(req.Amount, res.rate, req.Tenure)
	if err != nil {
		return model.EligibilityDecision{}, err
	}

	if exceedsIncomeShare(req.Customer, activeLoans, emi, asOf, p) {
		decision.Reason = model.RejectEMIToIncomeExceeded
		return decision, nil
	}

	decision.Approved = true
	decision.CorrectedInterestRate = res.rate
	decision.MonthlyInstallment = emi

	return decision, nil
}

func exceedsIncomeShare(c model.Customer, loans []model.Loan, emi decimal.Decimal, asOf time.Time, p Policy) bool {
	total := emi
	for _, l := range loans {
		if l.CustomerID == c.ID && l.IsActive(asOf) {
			total = total.Add(l.MonthlyInstallment)
		}
	}
	return total.GreaterThan(c.MonthlyIncome.Mul(p.MaxEMIToIncome))
}

func requestedRate(req EligibilityRequest, p Policy) decimal.Decimal {
	if req.Rate == nil {
		return p.DefaultRate
	}
	return *req.Rate
}

func atLeast(requested *decimal.Decimal, floor decimal.Decimal) decimal.Decimal {
	if requested == nil || requested.LessThan(floor) {
		return floor
	}
	return *requested
}

// moneyPlaces задаёт число знаков после запятой, с которым хранятся суммы и ставки.
const moneyPlaces = 2

// HasMoneyScale сообщает, представимо ли значение с двумя знаками после запятой
// без округления. Сумма и ставка кредита сохраняются именно в таком виде, и платёж
// должен рассчитываться от сохраняемых значений.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyPlaces))
}
