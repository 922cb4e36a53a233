package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/competitions-bet-platform/internal/catalog/model"
)

// Nomes dos recursos, usados nas rotas e nos eventos de alteração
const (
	KindCompetitions      = "competitions"
	KindSports            = "sports"
	KindStages            = "stages"
	KindCompetitionSports = "competitionssports"
)

var CompetitionSpec = Spec[model.Competition]{
	Kind:    KindCompetitions,
	Table:   "crud_api.competition",
	Columns: []string{"name", "competition_start", "competition_end"},
	OrderBy: "competition_start, competition_end, name",
	Fields: func(c *model.Competition) []any {
		return []any{&c.Name, &c.Start, &c.End}
	},
	BeforeWrite: stagesStayWithin,
	Constraints: map[string]error{
		"competition_dates_check": &model.ValidationError{Field: "competition_end", Err: model.ErrCompetitionDates},
	},
}

var SportSpec = Spec[model.Sport]{
	Kind:    KindSports,
	Table:   "crud_api.sport",
	Columns: []string{"name", "description"},
	OrderBy: "name",
	Fields: func(s *model.Sport) []any {
		return []any{&s.Name, &s.Description}
	},
}

var CompetitionSportSpec = Spec[model.CompetitionSport]{
	Kind:    KindCompetitionSports,
	Table:   "crud_api.competition_sport",
	Columns: []string{"competition_id", "sport_id"},
	OrderBy: "competition_id NULLS FIRST, sport_id",
	Fields: func(cs *model.CompetitionSport) []any {
		return []any{&cs.CompetitionID, &cs.SportID}
	},
	BeforeWrite: pairingStagesStayWithin,
}

var StageSpec = Spec[model.Stage]{
	Kind:    KindStages,
	Table:   "crud_api.stage",
	Columns: []string{"name", "stage_date", "place", "bet_coefficient", "comp_sport_id"},
	OrderBy: "stage_date, name",
	Fields: func(s *model.Stage) []any {
		return []any{&s.Name, &s.StageDate, &s.Place, &s.BetCoefficient, &s.CompSportID}
	},
	OnCreate: func(s *model.Stage) {
		if s.BetCoefficient == 0 {
			s.BetCoefficient = model.RandomCoefficient(nil)
		}
	},
	BeforeWrite: stageWithinCompetition,
}

// stageWithinCompetition confere a data da etapa contra a competição do par competição/esporte.
// A linha do par fica travada (FOR SHARE) até o fim da transação.
func stageWithinCompetition(ctx context.Context, q Querier, s *model.Stage) error {
	if s.CompSportID == nil {
		return nil
	}
	var competitionID sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT competition_id FROM crud_api.competition_sport WHERE id=$1 FOR SHARE`, *s.CompSportID).Scan(&competitionID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.ValidationError{Field: "comp_sport", Err: model.ErrInvalidReference}
	}
	if err != nil {
		return fmt.Errorf("load comp_sport: %w", err)
	}
	if !competitionID.Valid {
		return nil
	}

	var c model.Competition
	if err := q.QueryRowContext(ctx,
		`SELECT competition_start, competition_end FROM crud_api.competition WHERE id=$1 FOR SHARE`,
		competitionID.String).Scan(&c.Start, &c.End); err != nil {
		return fmt.Errorf("load competition: %w", err)
	}
	return s.ValidateWithin(&c)
}

// stagesStayWithin impede que a mudança de datas da competição deixe etapas fora do período
func stagesStayWithin(ctx context.Context, q Querier, c *model.Competition) error {
	return checkStagesRange(ctx, q,
		`cs.competition_id=$1`, c.ID, c.Start, c.End)
}

// pairingStagesStayWithin: ao religar um par a outra competição, as etapas dele precisam caber no novo período
func pairingStagesStayWithin(ctx context.Context, q Querier, cs *model.CompetitionSport) error {
	if cs.CompetitionID == nil {
		return nil
	}
	var c model.Competition
	err := q.QueryRowContext(ctx,
		`SELECT competition_start, competition_end FROM crud_api.competition WHERE id=$1 FOR SHARE`,
		*cs.CompetitionID).Scan(&c.Start, &c.End)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.ValidationError{Field: "competition_id", Err: model.ErrInvalidReference}
	}
	if err != nil {
		return fmt.Errorf("load competition: %w", err)
	}
	return checkStagesRange(ctx, q, `cs.id=$1`, cs.ID, c.Start, c.End)
}

func checkStagesRange(ctx context.Context, q Querier, cond string, id string, start, end model.Date) error {
	var before, after bool
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(BOOL_OR(s.stage_date < $2), FALSE), COALESCE(BOOL_OR(s.stage_date > $3), FALSE)
		FROM crud_api.stage s
		JOIN crud_api.competition_sport cs ON cs.id = s.comp_sport_id
		WHERE `+cond, id, start, end).Scan(&before, &after)
	if err != nil {
		return fmt.Errorf("check stage dates: %w", err)
	}
	switch {
	case before:
		return &model.ValidationError{Field: "stage_date", Err: model.ErrStageBeforeCompetition}
	case after:
		return &model.ValidationError{Field: "stage_date", Err: model.ErrStageAfterCompetition}
	}
	return nil
}
