// Package service реализует бизнес-операции системы одобрения кредитов.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/credit-approval-system/internal/cache"
	"github.com/mmeshcher/credit-approval-system/internal/engine"
	"github.com/mmeshcher/credit-approval-system/internal/model"
	"github.com/mmeshcher/credit-approval-system/internal/repository"
	"github.com/mmeshcher/credit-approval-system/internal/validation"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	CreateCustomer(ctx context.Context, c model.Customer) (int64, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	GetLoan(ctx context.Context, id int64) (*model.Loan, error)
	GetLoansByCustomer(ctx context.Context, customerID int64) ([]model.Loan, error)
	OriginateLoan(ctx context.Context, customerID int64, fn repository.OriginateFunc) (*model.Loan, error)
}

// LoanCache кэширует карточки кредитов.
type LoanCache interface {
	GetLoan(ctx context.Context, loanID int64) (*model.LoanDetails, bool)
	SetLoan(ctx context.Context, details model.LoanDetails) error
	InvalidateLoans(ctx context.Context, loanIDs ...int64) error
}

// Clock возвращает текущее время. Подменяется в тестах.
type Clock interface {
	Now() time.Time
}

// SystemClock использует системное время.
type SystemClock struct{}

// Now возвращает текущее время в UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// RegisterInput содержит данные для регистрации клиента.
type RegisterInput struct {
	FirstName     string
	LastName      string
	Age           int
	PhoneNumber   string
	MonthlyIncome decimal.Decimal
}

// LoanRequest описывает запрошенные условия кредита.
type LoanRequest struct {
	Amount decimal.Decimal
	Tenure int
	// Rate равен nil, если ставка не указана.
	Rate *decimal.Decimal
}

// Service содержит бизнес-логику системы одобрения кредитов.
type Service struct {
	repo   Repository
	cache  LoanCache
	clock  Clock
	policy engine.Policy
}

// NewService создаёт сервис. Пустые cache и clock заменяются на Nop и системные часы.
func NewService(repo Repository, loanCache LoanCache, clock Clock, policy engine.Policy) *Service {
	if loanCache == nil {
		loanCache = cache.Nop{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		repo:   repo,
		cache:  loanCache,
		clock:  clock,
		policy: policy,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// RegisterCustomer регистрирует клиента и рассчитывает его кредитный лимит.
func (s *Service) RegisterCustomer(ctx context.Context, in RegisterInput) (*model.Customer, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if !validation.IsValidName(in.FirstName) {
		return nil, fmt.Errorf("%w: first name is required", engine.ErrInvalidInput)
	}
	if in.LastName != "" && !validation.IsValidName(in.LastName) {
		return nil, fmt.Errorf("%w: last name is too long", engine.ErrInvalidInput)
	}
	if !validation.IsValidAge(in.Age) {
		return nil, fmt.Errorf("%w: age %d is out of range", engine.ErrInvalidInput, in.Age)
	}
	if !validation.IsValidPhoneNumber(in.PhoneNumber) {
		return nil, fmt.Errorf("%w: invalid phone number %q", engine.ErrInvalidInput, in.PhoneNumber)
	}

	if !engine.HasMoneyScale(in.MonthlyIncome) {
		return nil, fmt.Errorf("%w: monthly income %s has more than 2 decimal places", engine.ErrInvalidInput, in.MonthlyIncome)
	}

	limit, err := engine.ApprovedLimit(in.MonthlyIncome)
	if err != nil {
		return nil, err
	}

	c := model.Customer{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Age:           in.Age,
		PhoneNumber:   in.PhoneNumber,
		MonthlyIncome: in.MonthlyIncome,
		ApprovedLimit: limit,
		CurrentDebt:   decimal.Zero,
	}

	id, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id

	return &c, nil
}

// CheckEligibility рассчитывает рейтинг клиента и решение по заявке без выдачи кредита.
func (s *Service) CheckEligibility(ctx context.Context, customerID int64, req LoanRequest) (model.EligibilityDecision, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return model.EligibilityDecision{}, err
	}

	loans, err := s.repo.GetLoansByCustomer(ctx, customerID)
	if err != nil {
		return model.EligibilityDecision{}, err
	}

	return s.evaluate(*customer, loans, req, s.clock.Now())
}

func (s *Service) evaluate(customer model.Customer, loans []model.Loan, req LoanRequest, now time.Time) (model.EligibilityDecision, error) {
	score := engine.ComputeScore(customer, loans, now, s.policy)

	return engine.Evaluate(engine.EligibilityRequest{
		Customer: customer,
		Amount:   req.Amount,
		Tenure:   req.Tenure,
		Rate:     req.Rate,
	}, score, loans, now, s.policy)
}

// CreateLoan проверяет заявку и при одобрении выдаёт кредит. При отказе кредит
// равен nil, а причина содержится в решении.
func (s *Service) CreateLoan(ctx context.Context, customerID int64, req LoanRequest) (model.EligibilityDecision, *model.Loan, error) {
	var decision model.EligibilityDecision
	now := s.clock.Now()

	loan, err := s.repo.OriginateLoan(ctx, customerID, func(customer model.Customer, loans []model.Loan) (*model.Loan, *model.Customer, error) {
		d, err := s.evaluate(customer, loans, req, now)
		if err != nil {
			return nil, nil, err
		}
		decision = d

		if !d.Approved {
			return nil, nil, nil
		}

		loan, updated, err := engine.Originate(customer, d, req.Amount, now)
		if err != nil {
			return nil, nil, err
		}
		return &loan, &updated, nil
	})
	if err != nil {
		return model.EligibilityDecision{}, nil, err
	}

	return decision, loan, nil
}

// GetLoan возвращает кредит вместе с данными клиента.
func (s *Service) GetLoan(ctx context.Context, loanID int64) (*model.LoanDetails, error) {
	if details, ok := s.cache.GetLoan(ctx, loanID); ok {
		return details, nil
	}

	loan, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	customer, err := s.repo.GetCustomer(ctx, loan.CustomerID)
	if err != nil {
		return nil, err
	}

	details := model.LoanDetails{Loan: *loan, Customer: *customer}
	// Кэш необязателен: при ошибке отдаём данные из БД.
	_ = s.cache.SetLoan(ctx, details)

	return &details, nil
}

// ListLoans возвращает все кредиты клиента.
func (s *Service) ListLoans(ctx context.Context, customerID int64) ([]model.Loan, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.GetLoansByCustomer(ctx, customerID)
}

// GetStatement возвращает выписку по кредиту клиента на текущую дату.
func (s *Service) GetStatement(ctx context.Context, customerID, loanID int64) (*model.Statement, error) {
	loan, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.CustomerID != customerID {
		return nil, fmt.Errorf("%w: loan %d does not belong to customer %d", repository.ErrLoanNotFound, loanID, customerID)
	}

	st, err := engine.BuildStatement(*loan, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return &st, nil
}
