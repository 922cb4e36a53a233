package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/radieske/competitions-bet-platform/internal/card"
	"github.com/radieske/competitions-bet-platform/internal/shared/form"
	"github.com/radieske/competitions-bet-platform/internal/shared/money"
)

// Códigos de erro específicos de saldo e aposta
const (
	CodeNotPositive       = "not_positive"
	CodeMinBalance        = "min_balance"
	CodeInsufficientFunds = "insufficient_funds"

	FieldAmount    = "amount"
	FieldBetAmount = "bet_amount"
	FieldBalance   = "balance"
)

// AddFundsForm é o corpo do POST /profile/
type AddFundsForm struct {
	CardNumber string      `json:"cc_number"`
	Expiry     string      `json:"cc_expiry"`
	Code       string      `json:"cc_code"`
	Amount     money.Input `json:"amount"`
}

// AddFunds são os dados já validados do depósito
type AddFunds struct {
	CardNumber  string
	Expiry      time.Time
	AmountCents int64
}

// Clean valida todos os campos antes de qualquer efeito; devolve todas as falhas juntas
func (f AddFundsForm) Clean(now func() time.Time) (AddFunds, form.Errors) {
	var out AddFunds
	var errs form.Errors

	amount, aerrs := cleanAmount(FieldAmount, string(f.Amount))
	errs = append(errs, aerrs...)

	number, nerrs := card.NumberField().Clean(f.CardNumber)
	errs = append(errs, nerrs...)

	expiry, eerrs := card.ExpiryField(now).Clean(f.Expiry)
	errs = append(errs, eerrs...)

	_, cerrs := card.SecurityCodeField().Clean(f.Code)
	errs = append(errs, cerrs...)

	if len(errs) > 0 {
		return out, errs
	}
	out.CardNumber, out.Expiry, out.AmountCents = number, expiry, amount
	return out, nil
}

// BetForm é o corpo do POST /bet/?id=
type BetForm struct {
	Amount money.Input `json:"bet_amount"`
}

func (f BetForm) Clean() (int64, form.Errors) {
	return cleanAmount(FieldBetAmount, string(f.Amount))
}

func amountField(name string) *form.Field[int64] {
	return form.NewField(name, money.ParseCents, func(v int64) *form.FieldError {
		if v <= 0 {
			return &form.FieldError{Code: CodeNotPositive, Message: "Amount must be greater than zero."}
		}
		return nil
	})
}

func cleanAmount(name, raw string) (int64, form.Errors) {
	return amountField(name).Clean(raw)
}

// RegisterForm é o corpo do POST /register/
type RegisterForm struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,max=100,email"`
	Password1 string `json:"password1" validate:"required,min=8,notnumeric,notcommon"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
}

// LoginForm é o corpo do POST /login/
type LoginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// tags do validator -> códigos de erro por campo
var tagCodes = map[string]string{
	"required":   form.CodeRequired,
	"min":        form.CodeMinLength,
	"max":        form.CodeMaxLength,
	"email":      form.CodeInvalid,
	"username":   form.CodeInvalid,
	"eqfield":    "password_mismatch",
	"notnumeric": "password_entirely_numeric",
	"notcommon":  "password_too_common",
}

var tagMessages = map[string]string{
	"required":   "This field is required.",
	"min":        "This password is too short. It must contain at least 8 characters.",
	"max":        "Ensure this value is not too long.",
	"email":      "Enter a valid email address.",
	"username":   "Enter a valid username. Letters, digits and @/./+/-/_ only.",
	"eqfield":    "The two password fields didn't match.",
	"notnumeric": "This password is entirely numeric.",
	"notcommon":  "This password is too common.",
}

var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range strings.Fields(`
		password password1 password123 passw0rd 12345678 123456789 1234567890 qwerty qwerty123
		qwertyuiop abc123 abcd1234 abcde123 abcdef123 iloveyou admin123 administrator letmein
		welcome welcome1 football baseball monkey dragon sunshine princess trustno1 whatever
		superman batman starwars master shadow michael jennifer 1q2w3e4r 1qaz2wsx zaq12wsx
		aa123456 changeme secret123 test1234 computer internet`) {
		commonPasswords[p] = struct{}{}
	}
}

// customValidations são as tags próprias usadas nos DTOs de cadastro
var customValidations = map[string]validator.Func{
	"notnumeric": func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0
	},
	"notcommon": func(fl validator.FieldLevel) bool {
		_, common := commonPasswords[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
		return !common
	},
	"username": func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("@.+-_", r) {
				return false
			}
		}
		return true
	},
}

func registerValidations(v *validator.Validate, fns map[string]validator.Func) error {
	for tag, fn := range fns {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validation: %w", tag, err)
		}
	}
	return nil
}

// newValidator entra em pânico se alguma tag própria não registrar
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := registerValidations(v, customValidations); err != nil {
		panic(err)
	}
	return v
}

// validateStruct roda o validator e converte as falhas para form.Errors
func validateStruct(v *validator.Validate, s any) form.Errors {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return form.Errors{form.New("__all__", form.CodeInvalid, err.Error())}
	}
	out := make(form.Errors, 0, len(verrs))
	for _, fe := range verrs {
		code, ok := tagCodes[fe.Tag()]
		if !ok {
			code = form.CodeInvalid
		}
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "Enter a valid value."
		}
		out = append(out, form.New(fe.Field(), code, msg))
	}
	return out
}

// passwordTooSimilar compara a senha com username, nome e parte local do e-mail
func passwordTooSimilar(f RegisterForm) bool {
	pw := strings.ToLower(f.Password1)
	local, _, _ := strings.Cut(f.Email, "@")
	for _, attr := range []string{f.Username, f.FirstName, f.LastName, local} {
		a := strings.ToLower(strings.TrimSpace(attr))
		if len(a) < 3 {
			continue
		}
		if strings.Contains(pw, a) || strings.Contains(a, pw) {
			return true
		}
	}
	return false
}
