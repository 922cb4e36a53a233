// Package model define as entidades do catálogo e as regras que valem antes de qualquer escrita.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrCompetitionDates       = errors.New("competition cannot end before its start")
	ErrStageBeforeCompetition = errors.New("stage cannot be held before the competition start")
	ErrStageAfterCompetition  = errors.New("stage cannot be held after the competition end")
	ErrFutureTimestamp        = errors.New("date and time is bigger than current")
	ErrNotFound               = errors.New("not found")
	ErrInvalidReference       = errors.New("referenced record does not exist")
)

// ValidationError aponta o campo inválido de uma entidade
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error { return &ValidationError{Field: field, Err: err} }

// Limites de tamanho dos campos de texto
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 200
	MaxPlaceLength       = 150
)

// Audit é embutido por valor em toda entidade persistida
type Audit struct {
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Record é satisfeito por ponteiros para entidades que embutem Audit
type Record interface {
	AuditInfo() *Audit
	Validate(now time.Time) error
}

func (a *Audit) AuditInfo() *Audit { return a }

// Stamp prepara o registro para gravação: gera id e created na primeira vez e sempre renova modified
func (a *Audit) Stamp(now time.Time) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Created.IsZero() {
		a.Created = now
	}
	a.Modified = now
}

// ValidateTimestamps garante que created/modified não estão no futuro
func (a Audit) ValidateTimestamps(now time.Time) error {
	if a.Created.After(now) {
		return invalid("created", ErrFutureTimestamp)
	}
	if a.Modified.After(now) {
		return invalid("modified", ErrFutureTimestamp)
	}
	return nil
}

func validateText(field, v string, max int, required bool) error {
	if required && strings.TrimSpace(v) == "" {
		return invalid(field, errors.New("this field may not be blank"))
	}
	if utf8.RuneCountInString(v) > max {
		return invalid(field, fmt.Errorf("ensure this field has no more than %d characters", max))
	}
	return nil
}

type Competition struct {
	Audit
	Name  string `json:"name"`
	Start Date   `json:"competition_start"`
	End   Date   `json:"competition_end"`
}

func (c *Competition) Validate(now time.Time) error {
	if err := validateText("name", c.Name, MaxNameLength, true); err != nil {
		return err
	}
	if c.Start.IsZero() {
		return invalid("competition_start", errors.New("this field is required"))
	}
	if c.End.IsZero() {
		return invalid("competition_end", errors.New("this field is required"))
	}
	if !c.End.After(c.Start.Time) {
		return invalid("competition_end", ErrCompetitionDates)
	}
	return c.ValidateTimestamps(now)
}

// Contains informa se d está dentro do período da competição (extremos inclusos)
func (c *Competition) Contains(d Date) error {
	if d.Before(c.Start.Time) {
		return ErrStageBeforeCompetition
	}
	if d.After(c.End.Time) {
		return ErrStageAfterCompetition
	}
	return nil
}

type Sport struct {
	Audit
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Sport) Validate(now time.Time) error {
	if err := validateText("name", s.Name, MaxNameLength, true); err != nil {
		return err
	}
	if err := validateText("description", s.Description, MaxDescriptionLength, false); err != nil {
		return err
	}
	return s.ValidateTimestamps(now)
}

// CompetitionSport liga um esporte a uma competição (a competição é opcional)
type CompetitionSport struct {
	Audit
	CompetitionID *string `json:"competition_id"`
	SportID       string  `json:"sport_id"`
}

func (cs *CompetitionSport) Validate(now time.Time) error {
	if cs.SportID == "" {
		return invalid("sport_id", errors.New("this field is required"))
	}
	if err := validUUID("sport_id", cs.SportID); err != nil {
		return err
	}
	if cs.CompetitionID != nil {
		if err := validUUID("competition_id", *cs.CompetitionID); err != nil {
			return err
		}
	}
	return cs.ValidateTimestamps(now)
}

type Stage struct {
	Audit
	Name           string  `json:"name"`
	StageDate      Date    `json:"stage_date"`
	Place          string  `json:"place"`
	BetCoefficient float64 `json:"bet_coefficient"`
	CompSportID    *string `json:"comp_sport"`
}

// Validate confere só os campos do próprio registro; o período da competição
// é conferido com ValidateWithin quando a etapa está ligada a uma.
func (s *Stage) Validate(now time.Time) error {
	if err := validateText("name", s.Name, MaxNameLength, true); err != nil {
		return err
	}
	if s.StageDate.IsZero() {
		return invalid("stage_date", errors.New("this field is required"))
	}
	if err := validateText("place", s.Place, MaxPlaceLength, false); err != nil {
		return err
	}
	if s.BetCoefficient < MinCoefficient || s.BetCoefficient > MaxCoefficient {
		return invalid("bet_coefficient", fmt.Errorf("must be between %.2f and %.2f", MinCoefficient, MaxCoefficient))
	}
	if s.CompSportID != nil {
		if err := validUUID("comp_sport", *s.CompSportID); err != nil {
			return err
		}
	}
	return s.ValidateTimestamps(now)
}

// CarryOver mantém o coeficiente sorteado quando a substituição não o informa
func (s *Stage) CarryOver(prev Stage) {
	if s.BetCoefficient == 0 {
		s.BetCoefficient = prev.BetCoefficient
	}
}

// ValidateWithin confere que a data da etapa cai no período da competição
func (s *Stage) ValidateWithin(c *Competition) error {
	if c == nil {
		return nil
	}
	if err := c.Contains(s.StageDate); err != nil {
		return invalid("stage_date", err)
	}
	return nil
}

func validUUID(field, v string) error {
	if _, err := uuid.Parse(v); err != nil {
		return invalid(field, errors.New("must be a valid UUID"))
	}
	return nil
}
