package engine

import "github.com/shopspring/decimal"

// Policy содержит настраиваемые константы скоринга и правил одобрения.
type Policy struct {
	// NoHistoryScore присваивается клиенту без кредитной истории.
	NoHistoryScore int

	PaymentWeight       decimal.Decimal
	LoanCountWeight     decimal.Decimal
	LoanCountSaturation int
	ActivityWeight      decimal.Decimal
	ActivitySaturation  int
	VolumeWeight        decimal.Decimal

	// DefaultRate применяется к лучшему уровню, если ставка не запрошена.
	DefaultRate decimal.Decimal
	MidTierRate decimal.Decimal
	LowTierRate decimal.Decimal

	// MaxEMIToIncome ограничивает долю дохода, уходящую на платежи.
	MaxEMIToIncome decimal.Decimal
}

// DefaultPolicy возвращает политику по умолчанию. Веса в сумме дают 100.
func DefaultPolicy() Policy {
	return Policy{
		NoHistoryScore:      100,
		PaymentWeight:       decimal.NewFromInt(50),
		LoanCountWeight:     decimal.NewFromInt(20),
		LoanCountSaturation: 10,
		ActivityWeight:      decimal.NewFromInt(20),
		ActivitySaturation:  5,
		VolumeWeight:        decimal.NewFromInt(10),
		DefaultRate:         decimal.NewFromInt(10),
		MidTierRate:         decimal.NewFromInt(12),
		LowTierRate:         decimal.NewFromInt(16),
		MaxEMIToIncome:      decimal.RequireFromString("0.5"),
	}
}
