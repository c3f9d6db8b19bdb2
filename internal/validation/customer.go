// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
	maxNameLength  = 100
	minAge         = 18
	maxAge         = 120
)

// IsValidPhoneNumber проверяет номер телефона: 10–15 цифр, допускается ведущий «+».
func IsValidPhoneNumber(number string) bool {
	number = strings.TrimPrefix(number, "+")
	if len(number) < minPhoneDigits || len(number) > maxPhoneDigits {
		return false
	}

	for _, ch := range number {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// IsValidName проверяет, что имя не пустое и не длиннее 100 символов.
func IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= maxNameLength
}

// IsValidAge проверяет, что возраст клиента допускает выдачу кредита.
func IsValidAge(age int) bool {
	return age >= minAge && age <= maxAge
}
