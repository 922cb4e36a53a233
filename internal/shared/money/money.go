// Package money converte valores decimais de formulário para centavos.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Limites herdados das colunas decimais: até 8 dígitos, 2 casas
const (
	MaxDigits     = 8
	DecimalPlaces = 2
)

var (
	ErrSyntax    = errors.New("enter a number")
	ErrPlaces    = fmt.Errorf("ensure that there are no more than %d decimal places", DecimalPlaces)
	ErrMaxDigits = fmt.Errorf("ensure that there are no more than %d digits in total", MaxDigits)
)

// ParseCents lê "123", "123.4", "-1", "0.05" e devolve centavos.
// Não aceita expoente nem separador de milhar.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrSyntax
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")
	if intPart == "" && frac == "" {
		return 0, ErrSyntax
	}
	for _, part := range []string{intPart, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, ErrSyntax
			}
		}
	}
	if len(frac) > DecimalPlaces {
		return 0, ErrPlaces
	}
	intPart = strings.TrimLeft(intPart, "0")
	if len(intPart)+DecimalPlaces > MaxDigits {
		return 0, ErrMaxDigits
	}

	frac += strings.Repeat("0", DecimalPlaces-len(frac))
	whole := int64(0)
	if intPart != "" {
		v, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return 0, ErrSyntax
		}
		whole = v
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	total := whole*100 + cents
	if neg {
		total = -total
	}
	return total, nil
}

// Format devolve centavos como "1234.56"
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Input aceita o valor no JSON tanto como número quanto como string
type Input string

func (in *Input) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*in = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return ErrSyntax
		}
		*in = Input(unq)
		return nil
	}
	*in = Input(s)
	return nil
}
