// Package handler содержит HTTP-обработчики API системы одобрения кредитов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/credit-approval-system/internal/engine"
	"github.com/mmeshcher/credit-approval-system/internal/model"
	"github.com/mmeshcher/credit-approval-system/internal/repository"
	"github.com/mmeshcher/credit-approval-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	RegisterCustomer(ctx context.Context, in service.RegisterInput) (*model.Customer, error)
	CheckEligibility(ctx context.Context, customerID int64, req service.LoanRequest) (model.EligibilityDecision, error)
	CreateLoan(ctx context.Context, customerID int64, req service.LoanRequest) (model.EligibilityDecision, *model.Loan, error)
	GetLoan(ctx context.Context, loanID int64) (*model.LoanDetails, error)
	ListLoans(ctx context.Context, customerID int64) ([]model.Loan, error)
	GetStatement(ctx context.Context, customerID, loanID int64) (*model.Statement, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

// number кодирует десятичное значение как JSON-число с двумя знаками.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

type registerRequest struct {
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Age           int             `json:"age"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	PhoneNumber   phoneNumber     `json:"phone_number"`
}

// phoneNumber принимает номер и строкой, и числом.
type phoneNumber string

func (p *phoneNumber) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = phoneNumber(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = phoneNumber(n.String())
	return nil
}

type registerResponse struct {
	CustomerID    int64       `json:"customer_id"`
	Name          string      `json:"name"`
	Age           int         `json:"age"`
	MonthlyIncome json.Number `json:"monthly_income"`
	ApprovedLimit json.Number `json:"approved_limit"`
	PhoneNumber   string      `json:"phone_number"`
}

// Register регистрирует нового клиента.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c, err := h.service.RegisterCustomer(r.Context(), service.RegisterInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Age:           req.Age,
		PhoneNumber:   string(req.PhoneNumber),
		MonthlyIncome: req.MonthlyIncome,
	})
	if err != nil {
		h.writeError(w, "register customer error", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, registerResponse{
		CustomerID:    c.ID,
		Name:          c.Name(),
		Age:           c.Age,
		MonthlyIncome: number(c.MonthlyIncome),
		ApprovedLimit: number(c.ApprovedLimit),
		PhoneNumber:   c.PhoneNumber,
	})
}

type loanRequest struct {
	CustomerID   int64            `json:"customer_id"`
	LoanAmount   decimal.Decimal  `json:"loan_amount"`
	InterestRate *decimal.Decimal `json:"interest_rate"`
	Tenure       int              `json:"tenure"`
}

func (req loanRequest) toService() service.LoanRequest {
	return service.LoanRequest{
		Amount: req.LoanAmount,
		Tenure: req.Tenure,
		Rate:   req.InterestRate,
	}
}

type eligibilityResponse struct {
	CustomerID            int64       `json:"customer_id"`
	Approval              bool        `json:"approval"`
	InterestRate          json.Number `json:"interest_rate"`
	CorrectedInterestRate json.Number `json:"corrected_interest_rate"`
	Tenure                int         `json:"tenure"`
	MonthlyInstallment    json.Number `json:"monthly_installment"`
	Message               string      `json:"message,omitempty"`
}

// CheckEligibility возвращает решение по заявке без выдачи кредита.
func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	d, err := h.service.CheckEligibility(r.Context(), req.CustomerID, req.toService())
	if err != nil {
		h.writeError(w, "check eligibility error", err, zap.Int64("customerID", req.CustomerID))
		return
	}

	resp := eligibilityResponse{
		CustomerID:            req.CustomerID,
		Approval:              d.Approved,
		InterestRate:          number(d.InterestRate),
		CorrectedInterestRate: number(d.CorrectedInterestRate),
		Tenure:                d.Tenure,
		MonthlyInstallment:    number(d.MonthlyInstallment),
	}
	if !d.Approved {
		resp.Message = d.Reason.Message()
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type createLoanResponse struct {
	LoanID             *int64      `json:"loan_id"`
	CustomerID         int64       `json:"customer_id"`
	LoanApproved       bool        `json:"loan_approved"`
	Message            string      `json:"message"`
	MonthlyInstallment json.Number `json:"monthly_installment"`
}

// CreateLoan выдаёт кредит, если заявка одобрена.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	d, loan, err := h.service.CreateLoan(r.Context(), req.CustomerID, req.toService())
	if err != nil {
		h.writeError(w, "create loan error", err, zap.Int64("customerID", req.CustomerID))
		return
	}

	resp := createLoanResponse{
		CustomerID:         req.CustomerID,
		LoanApproved:       d.Approved,
		Message:            d.Reason.Message(),
		MonthlyInstallment: number(d.MonthlyInstallment),
	}
	status := http.StatusOK
	if loan != nil {
		resp.LoanID = &loan.ID
		status = http.StatusCreated
	}

	h.writeJSON(w, status, resp)
}

type loanCustomer struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Age         int    `json:"age"`
}

type viewLoanResponse struct {
	LoanID             int64        `json:"loan_id"`
	Customer           loanCustomer `json:"customer"`
	LoanAmount         json.Number  `json:"loan_amount"`
	InterestRate       json.Number  `json:"interest_rate"`
	MonthlyInstallment json.Number  `json:"monthly_installment"`
	Tenure             int          `json:"tenure"`
}

// ViewLoan возвращает кредит вместе с данными клиента.
func (h *Handler) ViewLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loan_id")
	if !ok {
		return
	}

	details, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.writeError(w, "view loan error", err, zap.Int64("loanID", loanID))
		return
	}

	l, c := details.Loan, details.Customer
	h.writeJSON(w, http.StatusOK, viewLoanResponse{
		LoanID: l.ID,
		Customer: loanCustomer{
			ID:          c.ID,
			FirstName:   c.FirstName,
			LastName:    c.LastName,
			PhoneNumber: c.PhoneNumber,
			Age:         c.Age,
		},
		LoanAmount:         number(l.Amount),
		InterestRate:       number(l.InterestRate),
		MonthlyInstallment: number(l.MonthlyInstallment),
		Tenure:             l.Tenure,
	})
}

type loanItemResponse struct {
	LoanID             int64       `json:"loan_id"`
	LoanAmount         json.Number `json:"loan_amount"`
	InterestRate       json.Number `json:"interest_rate"`
	MonthlyInstallment json.Number `json:"monthly_installment"`
	RepaymentsLeft     int         `json:"repayments_left"`
}

// ViewLoans возвращает список кредитов клиента.
func (h *Handler) ViewLoans(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customer_id")
	if !ok {
		return
	}

	loans, err := h.service.ListLoans(r.Context(), customerID)
	if err != nil {
		h.writeError(w, "view loans error", err, zap.Int64("customerID", customerID))
		return
	}

	resp := make([]loanItemResponse, 0, len(loans))
	for _, l := range loans {
		resp = append(resp, loanItemResponse{
			LoanID:             l.ID,
			LoanAmount:         number(l.Amount),
			InterestRate:       number(l.InterestRate),
			MonthlyInstallment: number(l.MonthlyInstallment),
			RepaymentsLeft:     l.RepaymentsLeft(),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type statementResponse struct {
	CustomerID         int64       `json:"customer_id"`
	LoanID             int64       `json:"loan_id"`
	Principal          json.Number `json:"principal"`
	InterestRate       json.Number `json:"interest_rate"`
	MonthlyInstallment json.Number `json:"monthly_installment"`
	AmountPaid         json.Number `json:"amount_paid"`
	EMIsPaid           int         `json:"emis_paid"`
	EMIsDue            int         `json:"emis_due"`
	RepaymentsLeft     int         `json:"repayments_left"`
	StartDate          string      `json:"start_date"`
	EndDate            string      `json:"end_date"`
}

// ViewStatement возвращает выписку по кредиту клиента.
func (h *Handler) ViewStatement(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customer_id")
	if !ok {
		return
	}
	loanID, ok := pathID(w, r, "loan_id")
	if !ok {
		return
	}

	st, err := h.service.GetStatement(r.Context(), customerID, loanID)
	if err != nil {
		h.writeError(w, "view statement error", err,
			zap.Int64("customerID", customerID), zap.Int64("loanID", loanID))
		return
	}

	h.writeJSON(w, http.StatusOK, statementResponse{
		CustomerID:         st.CustomerID,
		LoanID:             st.LoanID,
		Principal:          number(st.Principal),
		InterestRate:       number(st.InterestRate),
		MonthlyInstallment: number(st.MonthlyInstallment),
		AmountPaid:         number(st.AmountPaid),
		EMIsPaid:           st.EMIsPaid,
		EMIsDue:            st.EMIsDue,
		RepaymentsLeft:     st.EMIsRemaining,
		StartDate:          st.StartDate.Format(time.DateOnly),
		EndDate:            st.EndDate.Format(time.DateOnly),
	})
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Error("health check error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrCustomerNotFound), errors.Is(err, repository.ErrLoanNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrPhoneExists):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}
