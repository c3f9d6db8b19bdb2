// Package config содержит логику чтения конфигурации системы одобрения кредитов.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/credit-approval-system/internal/engine"
)

// PolicyConfig содержит константы скоринга и правил одобрения.
// Дробные значения разбираются как decimal без промежуточного float64.
type PolicyConfig struct {
	NoHistoryScore      int             `env:"NO_HISTORY_SCORE" envDefault:"100"`
	PaymentWeight       decimal.Decimal `env:"PAYMENT_WEIGHT" envDefault:"50"`
	LoanCountWeight     decimal.Decimal `env:"LOAN_COUNT_WEIGHT" envDefault:"20"`
	LoanCountSaturation int             `env:"LOAN_COUNT_SATURATION" envDefault:"10"`
	ActivityWeight      decimal.Decimal `env:"ACTIVITY_WEIGHT" envDefault:"20"`
	ActivitySaturation  int             `env:"ACTIVITY_SATURATION" envDefault:"5"`
	VolumeWeight        decimal.Decimal `env:"VOLUME_WEIGHT" envDefault:"10"`
	DefaultRate         decimal.Decimal `env:"DEFAULT_RATE" envDefault:"10"`
	MidTierRate         decimal.Decimal `env:"MID_TIER_RATE" envDefault:"12"`
	LowTierRate         decimal.Decimal `env:"LOW_TIER_RATE" envDefault:"16"`
	MaxEMIToIncome      decimal.Decimal `env:"MAX_EMI_TO_INCOME" envDefault:"0.5"`
}

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress    string        `env:"RUN_ADDRESS"`
	DatabaseURI   string        `env:"DATABASE_URI"`
	RedisAddress  string        `env:"REDIS_ADDRESS"`
	DataDir       string        `env:"DATA_DIR"`
	IngestOnStart bool          `env:"INGEST_ON_START"`
	LoanCacheTTL  time.Duration `env:"LOAN_CACHE_TTL" envDefault:"5m"`

	Policy PolicyConfig `envPrefix:"POLICY_"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress
	envDataDir := cfg.DataDir

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for loan cache, empty disables cache")
	flag.StringVar(&cfg.DataDir, "data", "data", "directory with customer_data.xlsx and loan_data.xlsx")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envDataDir != "" {
		cfg.DataDir = envDataDir
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

// EnginePolicy переводит настройки политики в engine.Policy.
func (c *Config) EnginePolicy() (engine.Policy, error) {
	p := c.Policy

	if p.NoHistoryScore < 0 || p.NoHistoryScore > 100 {
		return engine.Policy{}, fmt.Errorf("no history score %d is out of range", p.NoHistoryScore)
	}
	if p.LoanCountSaturation <= 0 || p.ActivitySaturation <= 0 {
		return engine.Policy{}, fmt.Errorf("saturation values must be positive")
	}
	if !p.MaxEMIToIncome.IsPositive() {
		return engine.Policy{}, fmt.Errorf("max EMI to income share must be positive, got %s", p.MaxEMIToIncome)
	}
	for name, w := range map[string]decimal.Decimal{
		"payment": p.PaymentWeight, "loan count": p.LoanCountWeight,
		"activity": p.ActivityWeight, "volume": p.VolumeWeight,
	} {
		if w.IsNegative() {
			return engine.Policy{}, fmt.Errorf("%s weight must not be negative, got %s", name, w)
		}
	}

	return engine.Policy{
		NoHistoryScore:      p.NoHistoryScore,
		PaymentWeight:       p.PaymentWeight,
		LoanCountWeight:     p.LoanCountWeight,
		LoanCountSaturation: p.LoanCountSaturation,
		ActivityWeight:      p.ActivityWeight,
		ActivitySaturation:  p.ActivitySaturation,
		VolumeWeight:        p.VolumeWeight,
		DefaultRate:         p.DefaultRate,
		MidTierRate:         p.MidTierRate,
		LowTierRate:         p.LowTierRate,
		MaxEMIToIncome:      p.MaxEMIToIncome,
	}, nil
}
