// Package ingest загружает начальные данные клиентов и кредитов из файлов Excel.
//
// Некорректные строки пропускаются и логируются, загрузка продолжается.
// Повторный запуск обновляет записи с теми же идентификаторами.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mmeshcher/credit-approval-system/internal/engine"
	"github.com/mmeshcher/credit-approval-system/internal/model"
	"github.com/mmeshcher/credit-approval-system/internal/repository"
)

const (
	CustomersFile = "customer_data.xlsx"
	LoansFile     = "loan_data.xlsx"
)

// Store описывает операции хранилища, нужные для загрузки.
type Store interface {
	UpsertCustomer(ctx context.Context, c model.Customer) error
	UpsertLoan(ctx context.Context, l model.Loan) error
	SyncSequences(ctx context.Context) error
}

// Invalidator сбрасывает закэшированные карточки кредитов.
// Карточка содержит данные клиента, поэтому сбрасывается и при обновлении клиента.
type Invalidator interface {
	InvalidateLoans(ctx context.Context, loanIDs ...int64) error
	InvalidateCustomers(ctx context.Context, customerIDs ...int64) error
}

// Result содержит итоги загрузки одного файла.
type Result struct {
	Imported int
	Skipped  int
}

// Importer загружает данные из файлов Excel в хранилище.
type Importer struct {
	store  Store
	cache  Invalidator
	logger *zap.Logger
}

// NewImporter создаёт загрузчик. cache может быть nil.
func NewImporter(store Store, cache Invalidator, logger *zap.Logger) *Importer {
	return &Importer{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

var customerColumns = []string{"customer_id", "first_name", "last_name", "phone_number", "monthly_salary"}

// ImportCustomers загружает клиентов. Лимит пересчитывается из месячного дохода,
// значение approved_limit из файла игнорируется.
func (im *Importer) ImportCustomers(ctx context.Context, path string) (Result, error) {
	t, err := readTable(path)
	if err != nil {
		return Result{}, err
	}
	if err := t.require(customerColumns...); err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}

	var res Result
	var imported []int64
	for i, row := range t.rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		c, err := parseCustomer(t, row)
		if err == nil {
			err = im.store.UpsertCustomer(ctx, c)
		}
		if err != nil {
			im.logger.Warn("skip customer row",
				zap.String("file", path), zap.Int("row", i+2), zap.Error(err))
			res.Skipped++
			continue
		}
		imported = append(imported, c.ID)
		res.Imported++
	}

	if im.cache != nil && len(imported) > 0 {
		if err := im.cache.InvalidateCustomers(ctx, imported...); err != nil {
			im.logger.Warn("invalidate customer loan cache", zap.Error(err))
		}
	}

	im.logger.Info("customers imported",
		zap.String("file", path), zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))

	return res, nil
}

func parseCustomer(t *table, row []string) (model.Customer, error) {
	var c model.Customer
	var err error

	if c.ID, err = parseInt(t.cell(row, "customer_id")); err != nil {
		return c, fmt.Errorf("customer_id: %w", err)
	}
	c.FirstName = t.cell(row, "first_name")
	c.LastName = t.cell(row, "last_name")
	if c.FirstName == "" {
		return c, errors.New("first_name is empty")
	}
	if c.PhoneNumber, err = parsePhone(t.cell(row, "phone_number")); err != nil {
		return c, fmt.Errorf("phone_number: %w", err)
	}
	if age := t.cell(row, "age"); age != "" {
		if c.Age, err = parseIntValue(age); err != nil {
			return c, fmt.Errorf("age: %w", err)
		}
	}

	if c.MonthlyIncome, err = parseDecimal(t.cell(row, "monthly_salary")); err != nil {
		return c, fmt.Errorf("monthly_salary: %w", err)
	}
	if c.ApprovedLimit, err = engine.ApprovedLimit(c.MonthlyIncome); err != nil {
		return c, err
	}

	c.CurrentDebt = zero
	if debt := t.cell(row, "current_debt"); debt != "" {
		if c.CurrentDebt, err = parseDecimal(debt); err != nil {
			return c, fmt.Errorf("current_debt: %w", err)
		}
	}

	return c, nil
}

var loanColumns = []string{
	"customer_id", "loan_id", "loan_amount", "tenure", "interest_rate",
	"monthly_payment", "emis_paid_on_time", "date_of_approval", "end_date",
}

// ImportLoans загружает кредиты. Строки, чей клиент отсутствует, пропускаются.
func (im *Importer) ImportLoans(ctx context.Context, path string) (Result, error) {
	t, err := readTable(path)
	if err != nil {
		return Result{}, err
	}
	if err := t.require(loanColumns...); err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}

	var res Result
	var imported []int64
	for i, row := range t.rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		l, err := parseLoan(t, row)
		if err == nil {
			err = im.store.UpsertLoan(ctx, l)
		}
		if errors.Is(err, repository.ErrCustomerNotFound) {
			im.logger.Info("skip loan row: customer not found",
				zap.String("file", path), zap.Int64("loanID", l.ID), zap.Int64("customerID", l.CustomerID))
			res.Skipped++
			continue
		}
		if err != nil {
			im.logger.Warn("skip loan row",
				zap.String("file", path), zap.Int("row", i+2), zap.Error(err))
			res.Skipped++
			continue
		}
		imported = append(imported, l.ID)
		res.Imported++
	}

	if im.cache != nil && len(imported) > 0 {
		if err := im.cache.InvalidateLoans(ctx, imported...); err != nil {
			im.logger.Warn("invalidate loan cache", zap.Error(err))
		}
	}

	im.logger.Info("loans imported",
		zap.String("file", path), zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped))

	return res, nil
}

func parseLoan(t *table, row []string) (model.Loan, error) {
	var l model.Loan
	var err error

	if l.CustomerID, err = parseInt(t.cell(row, "customer_id")); err != nil {
		return l, fmt.Errorf("customer_id: %w", err)
	}
	if l.ID, err = parseInt(t.cell(row, "loan_id")); err != nil {
		return l, fmt.Errorf("loan_id: %w", err)
	}
	if l.Amount, err = parseDecimal(t.cell(row, "loan_amount")); err != nil {
		return l, fmt.Errorf("loan_amount: %w", err)
	}
	if l.Tenure, err = parseIntValue(t.cell(row, "tenure")); err != nil {
		return l, fmt.Errorf("tenure: %w", err)
	}
	if l.Tenure <= 0 {
		return l, fmt.Errorf("tenure must be positive, got %d", l.Tenure)
	}
	if l.InterestRate, err = parseDecimal(t.cell(row, "interest_rate")); err != nil {
		return l, fmt.Errorf("interest_rate: %w", err)
	}
	if l.MonthlyInstallment, err = parseDecimal(t.cell(row, "monthly_payment")); err != nil {
		return l, fmt.Errorf("monthly_payment: %w", err)
	}
	if l.EMIsPaidOnTime, err = parseIntValue(t.cell(row, "emis_paid_on_time")); err != nil {
		return l, fmt.Errorf("emis_paid_on_time: %w", err)
	}
	if l.StartDate, err = parseDate(t.cell(row, "date_of_approval")); err != nil {
		return l, fmt.Errorf("date_of_approval: %w", err)
	}
	if l.EndDate, err = parseDate(t.cell(row, "end_date")); err != nil {
		return l, fmt.Errorf("end_date: %w", err)
	}

	return l, nil
}

// Run загружает оба файла из каталога dir и выравнивает последовательности.
// Кредиты загружаются после клиентов.
func (im *Importer) Run(ctx context.Context, dir string) error {
	if _, err := im.ImportCustomers(ctx, filepath.Join(dir, CustomersFile)); err != nil {
		return fmt.Errorf("import customers: %w", err)
	}
	if _, err := im.ImportLoans(ctx, filepath.Join(dir, LoansFile)); err != nil {
		return fmt.Errorf("import loans: %w", err)
	}
	if err := im.store.SyncSequences(ctx); err != nil {
		return fmt.Errorf("sync sequences: %w", err)
	}
	return nil
}
