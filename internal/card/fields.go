package card

import (
	"regexp"
	"time"

	"github.com/radieske/competitions-bet-platform/internal/shared/form"
)

// Código próprio da validade do cartão; os demais vêm de form
const CodeDatePassed = "date_passed"

// Limites do número do cartão, contados sobre os dígitos já extraídos
const (
	MinNumberLength = 12
	MaxNumberLength = 19
)

// Nomes dos campos no formulário de depósito
const (
	FieldNumber = "cc_number"
	FieldExpiry = "cc_expiry"
	FieldCode   = "cc_code"
)

// LuhnValid falha com CodeInvalid quando o checksum não fecha
func LuhnValid() form.Check[string] {
	return func(s string) *form.FieldError {
		if !Luhn(s) {
			return &form.FieldError{Code: form.CodeInvalid, Message: "Enter a valid credit card number."}
		}
		return nil
	}
}

// NotPassed falha com CodeDatePassed quando a data é anterior ao dia corrente de now()
func NotPassed(now func() time.Time) form.Check[time.Time] {
	return func(t time.Time) *form.FieldError {
		n := now().UTC()
		today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
		if t.Before(today) {
			return &form.FieldError{Code: CodeDatePassed, Message: "This expiry date has passed."}
		}
		return nil
	}
}

func digitsOnly(raw string) (string, error) { return Digits(raw), nil }

// NumberField: remove separadores, confere tamanho e checksum
func NumberField() *form.Field[string] {
	return form.NewField(FieldNumber, digitsOnly,
		form.MinLength(MinNumberLength),
		form.MaxLength(MaxNumberLength),
		LuhnValid(),
	)
}

// ExpiryField aceita MM/YY, MM/YYYY ou uma data; guarda sempre o último dia do mês
func ExpiryField(now func() time.Time) *form.Field[time.Time] {
	return form.NewField(FieldExpiry, ParseExpiry, NotPassed(now)).WithNormalize(NormalizeExpiry)
}

var securityCodeRe = regexp.MustCompile(`^[0-9]{3,4}$`)

func identity(raw string) (string, error) { return raw, nil }

// SecurityCodeField: 3 ou 4 dígitos, sem remover nada da entrada
func SecurityCodeField() *form.Field[string] {
	return form.NewField(FieldCode, identity,
		form.Matches(securityCodeRe, "Enter a valid security code."),
	)
}
