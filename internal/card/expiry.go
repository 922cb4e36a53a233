package card

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ExpiryDate devolve o último dia do mês (00:00 UTC), respeitando anos bissextos.
func ExpiryDate(year int, month time.Month) time.Time {
	// dia 0 do mês seguinte = último dia deste mês
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// NormalizeExpiry leva qualquer instante para o último dia do seu mês.
// Aplicar duas vezes dá o mesmo resultado.
func NormalizeExpiry(t time.Time) time.Time {
	return ExpiryDate(t.Year(), t.Month())
}

var expiryRe = regexp.MustCompile(`^(\d{1,2})/(\d{2}|\d{4})$`)

var errExpiryFormat = errors.New("expiry must be MM/YY or MM/YYYY")

// ParseExpiry interpreta "MM/YY" ou "MM/YYYY" e devolve a data de validade.
// Anos com dois dígitos seguem a janela 00-68 -> 2000-2068, 69-99 -> 1969-1999.
func ParseExpiry(s string) (time.Time, error) {
	m := expiryRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, errExpiryFormat
	}
	month, _ := strconv.Atoi(m[1])
	if month < 1 || month > 12 {
		return time.Time{}, errExpiryFormat
	}
	year, _ := strconv.Atoi(m[2])
	if len(m[2]) == 2 {
		if year <= 68 {
			year += 2000
		} else {
			year += 1900
		}
	}
	return ExpiryDate(year, time.Month(month)), nil
}
