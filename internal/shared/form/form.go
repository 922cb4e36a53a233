// Package form monta campos de formulário a partir de cadeias explícitas de checagens
// e reporta as falhas por campo, com um código estável para cada uma.
package form

import (
	"sort"
	"strings"
)

// Códigos de erro comuns a qualquer campo
const (
	CodeRequired  = "required"
	CodeMinLength = "min_length"
	CodeMaxLength = "max_length"
	CodeInvalid   = "invalid"
)

// FieldError descreve uma falha de validação associada a um campo
type FieldError struct {
	Field   string `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Errors agrupa falhas de vários campos, na ordem em que ocorreram
type Errors []FieldError

func (es Errors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Has informa se existe algum erro com o código dado no campo
func (es Errors) Has(field, code string) bool {
	for _, e := range es {
		if e.Field == field && e.Code == code {
			return true
		}
	}
	return false
}

// ByField agrupa os erros por campo (formato das respostas JSON)
func (es Errors) ByField() map[string][]FieldError {
	out := make(map[string][]FieldError, len(es))
	for _, e := range es {
		out[e.Field] = append(out[e.Field], e)
	}
	return out
}

// Fields devolve os nomes de campo com erro, ordenados
func (es Errors) Fields() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range es {
		if _, ok := seen[e.Field]; !ok {
			seen[e.Field] = struct{}{}
			out = append(out, e.Field)
		}
	}
	sort.Strings(out)
	return out
}

// Err devolve nil quando não há erros
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// Check valida um valor já convertido. Devolve nil quando está ok.
type Check[T any] func(v T) *FieldError

// Parser converte a entrada bruta. Um erro vira CodeInvalid.
type Parser[T any] func(raw string) (T, error)

// Field é um campo de formulário montado a partir de uma cadeia explícita de checagens.
// Todas as checagens rodam; todas as falhas são reportadas.
type Field[T any] struct {
	Name      string
	Required  bool
	parse     Parser[T]
	normalize func(T) T
	checks    []Check[T]
}

// NewField monta um campo obrigatório com o parser e as checagens dadas
func NewField[T any](name string, parse Parser[T], checks ...Check[T]) *Field[T] {
	return &Field[T]{Name: name, Required: true, parse: parse, checks: checks}
}

// WithNormalize aplica n ao valor antes das checagens (tanto em Clean quanto em CleanValue)
func (f *Field[T]) WithNormalize(n func(T) T) *Field[T] {
	f.normalize = n
	return f
}

// Optional torna o campo opcional: entrada vazia não gera erro nem roda checagens
func (f *Field[T]) Optional() *Field[T] {
	f.Required = false
	return f
}

// Clean converte e valida a entrada bruta
func (f *Field[T]) Clean(raw string) (T, Errors) {
	var zero T
	if strings.TrimSpace(raw) == "" {
		if f.Required {
			return zero, Errors{f.fail(CodeRequired, "This field is required.")}
		}
		return zero, nil
	}
	v, err := f.parse(raw)
	if err != nil {
		return zero, Errors{f.fail(CodeInvalid, err.Error())}
	}
	return f.CleanValue(v)
}

// CleanValue valida um valor que já chegou tipado (ex.: uma data)
func (f *Field[T]) CleanValue(v T) (T, Errors) {
	if f.normalize != nil {
		v = f.normalize(v)
	}
	var errs Errors
	for _, check := range f.checks {
		if fe := check(v); fe != nil {
			fe.Field = f.Name
			errs = append(errs, *fe)
		}
	}
	if len(errs) > 0 {
		var zero T
		return zero, errs
	}
	return v, nil
}

func (f *Field[T]) fail(code, msg string) FieldError {
	return FieldError{Field: f.Name, Code: code, Message: msg}
}

// New cria um erro de campo avulso (regras que não cabem numa Check)
func New(field, code, msg string) FieldError {
	return FieldError{Field: field, Code: code, Message: msg}
}
