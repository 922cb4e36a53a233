package form

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// MinLength falha com CodeMinLength quando s tem menos de n caracteres
func MinLength(n int) Check[string] {
	return func(s string) *FieldError {
		if l := utf8.RuneCountInString(s); l < n {
			return &FieldError{Code: CodeMinLength,
				Message: fmt.Sprintf("Ensure this value has at least %d characters (it has %d).", n, l)}
		}
		return nil
	}
}

// MaxLength falha com CodeMaxLength quando s tem mais de n caracteres
func MaxLength(n int) Check[string] {
	return func(s string) *FieldError {
		if l := utf8.RuneCountInString(s); l > n {
			return &FieldError{Code: CodeMaxLength,
				Message: fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", n, l)}
		}
		return nil
	}
}

// Matches falha com CodeInvalid quando s não casa com re
func Matches(re *regexp.Regexp, msg string) Check[string] {
	return func(s string) *FieldError {
		if !re.MatchString(s) {
			return &FieldError{Code: CodeInvalid, Message: msg}
		}
		return nil
	}
}
