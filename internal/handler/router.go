package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/credit-approval-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware системы одобрения кредитов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Post("/register", h.Register)
	r.Post("/check-eligibility", h.CheckEligibility)
	r.Post("/create-loan", h.CreateLoan)

	r.Get("/view-loan/{loan_id}", h.ViewLoan)
	r.Get("/view-loans/{customer_id}", h.ViewLoans)
	r.Get("/view-statement/{customer_id}/{loan_id}", h.ViewStatement)

	r.Get("/health", h.Health)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
