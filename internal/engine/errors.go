// Package engine реализует расчёт кредитного рейтинга, решения по заявке,
// аннуитетного платежа и выписки по кредиту. Пакет не обращается к хранилищу
// и не читает системное время: все данные передаются вызывающей стороной.
package engine

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных числовых параметрах или датах.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotApproved возвращается при попытке оформить кредит по неодобренной заявке.
	ErrNotApproved = errors.New("loan is not approved")
)
