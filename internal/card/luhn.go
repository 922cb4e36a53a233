// Package card valida dados de cartão informados no depósito de saldo:
// número (Luhn), validade e código de segurança.
// Nenhuma função aqui faz I/O; o relógio é injetável.
package card

import (
	"fmt"
	"strings"
)

// dobro de cada dígito já reduzido (d*2, somando os dígitos quando > 9)
var doubled = [10]int{0, 2, 4, 6, 8, 1, 3, 5, 7, 9}

// Luhn informa se digits passa no checksum mod 10.
// Entrada vazia ou com qualquer caractere fora de 0-9 é inválida.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d = doubled[d]
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Digits remove tudo que não for dígito ASCII.
// Aceita string, inteiros e fmt.Stringer; nil devolve "".
func Digits(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
