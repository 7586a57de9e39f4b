// Package card содержит проверки платёжной карты: Луна, срок действия, CVV и маскирование номера.
package card

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	validate  = validator.New()
	expiryRe  = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	cvvRe     = regexp.MustCompile(`^\d{3,4}$`)
	maskedPad = "**** **** **** "
)

// Sanitize оставляет в номере только цифры (пробелы и дефисы пользователь вводит сам)
func Sanitize(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid проверяет контрольную сумму Луна по очищенному номеру
func Valid(number string) bool {
	digits := Sanitize(number)
	if digits == "" {
		return false
	}
	return validate.Var(digits, "numeric,luhn_checksum") == nil
}

// Mask возвращает "**** **** **** 1234"; если цифр меньше четырёх — "****"
func Mask(number string) string {
	digits := Sanitize(number)
	if len(digits) < 4 {
		return "****"
	}
	return maskedPad + digits[len(digits)-4:]
}

// ValidExpiry принимает "MM/YY". Карта действует до конца указанного месяца, сравнение по UTC
func ValidExpiry(expiry string, now time.Time) bool {
	m := expiryRe.FindStringSubmatch(strings.TrimSpace(expiry))
	if m == nil {
		return false
	}
	month, _ := strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	year := 2000 + yy

	now = now.UTC()
	if year != now.Year() {
		return year > now.Year()
	}
	return month >= int(now.Month())
}

// ValidCVV — три или четыре цифры
func ValidCVV(cvv string) bool {
	return cvvRe.MatchString(cvv)
}

// LastDigitEven — правило мок-шлюза: чётная последняя цифра означает одобрение
func LastDigitEven(number string) bool {
	digits := Sanitize(number)
	if digits == "" {
		return false
	}
	last := rune(digits[len(digits)-1])
	return unicode.IsDigit(last) && (last-'0')%2 == 0
}

// Details — данные карты из запроса. Полный номер и CVV живут только в памяти
type Details struct {
	Number string `json:"number" validate:"required,min=12,max=23"`
	Expiry string `json:"expiry" validate:"required,len=5"`
	CVV    string `json:"cvv" validate:"required,min=3,max=4"`
	Holder string `json:"holder" validate:"required,min=2,max=80"`
	Brand  string `json:"brand,omitempty" validate:"omitempty,max=20"`
}

// CheckShape проверяет только форму полей: обязательность, длины, количество цифр номера.
// Содержимое (Луна, срок, CVV) проверяет Verify
func (d Details) CheckShape() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New(fieldReason(verrs[0]))
		}
		return fmt.Errorf("invalid card data: %w", err)
	}
	digits := Sanitize(d.Number)
	if len(digits) < 12 || len(digits) > 19 {
		return errors.New("card number must have 12 to 19 digits")
	}
	return nil
}

// Verify проверяет номер по Луну, срок действия и CVV
func (d Details) Verify(now time.Time) error {
	if !Valid(d.Number) {
		return errors.New("invalid card number")
	}
	if !ValidExpiry(d.Expiry, now) {
		return errors.New("card expired or invalid expiry")
	}
	if !ValidCVV(d.CVV) {
		return errors.New("invalid cvv")
	}
	return nil
}

// Check — CheckShape и Verify подряд, возвращает первую причину отказа
func (d Details) Check(now time.Time) error {
	if err := d.CheckShape(); err != nil {
		return err
	}
	return d.Verify(now)
}

// fieldReason переводит ошибку валидатора в короткую причину для клиента
func fieldReason(fe validator.FieldError) string {
	switch fe.Field() {
	case "Number":
		if fe.Tag() == "required" {
			return "card number is required"
		}
		return "card number must have 12 to 19 digits"
	case "Expiry":
		if fe.Tag() == "required" {
			return "expiry is required"
		}
		return "expiry must be in MM/YY format"
	case "CVV":
		if fe.Tag() == "required" {
			return "cvv is required"
		}
		return "invalid cvv"
	case "Holder":
		if fe.Tag() == "required" {
			return "holder is required"
		}
		return "holder must have 2 to 80 characters"
	case "Brand":
		return "brand must have at most 20 characters"
	}
	return "invalid card data"
}
