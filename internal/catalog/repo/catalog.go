package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/competitions-bet-platform/internal/catalog/model"
)

// Catalog agrupa as tabelas do catálogo e as consultas das páginas de detalhe
type Catalog struct {
	Competitions      *Table[model.Competition, *model.Competition]
	Sports            *Table[model.Sport, *model.Sport]
	CompetitionSports *Table[model.CompetitionSport, *model.CompetitionSport]
	Stages            *Table[model.Stage, *model.Stage]
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{
		Competitions:      NewTable[model.Competition, *model.Competition](db, CompetitionSpec),
		Sports:            NewTable[model.Sport, *model.Sport](db, SportSpec),
		CompetitionSports: NewTable[model.CompetitionSport, *model.CompetitionSport](db, CompetitionSportSpec),
		Stages:            NewTable[model.Stage, *model.Stage](db, StageSpec),
	}
}

// Counts alimenta a página inicial
type Counts struct {
	Competitions int `json:"competitions"`
	Sports       int `json:"sports"`
	Stages       int `json:"stages"`
}

func (c *Catalog) Counts(ctx context.Context) (Counts, error) {
	var out Counts
	var err error
	if out.Competitions, err = c.Competitions.Count(ctx); err != nil {
		return out, err
	}
	if out.Sports, err = c.Sports.Count(ctx); err != nil {
		return out, err
	}
	if out.Stages, err = c.Stages.Count(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// SportsOf devolve os esportes ligados a uma competição
func (c *Catalog) SportsOf(ctx context.Context, competitionID string) ([]model.Sport, error) {
	return c.Sports.Where(ctx,
		`id IN (SELECT sport_id FROM crud_api.competition_sport WHERE competition_id=$1)`, competitionID)
}

// StageGroup são as etapas de um par competição/esporte
type StageGroup struct {
	CompSportID string        `json:"comp_sport"`
	Stages      []model.Stage `json:"stages"`
}

// StagesOf devolve as etapas de um esporte agrupadas por par competição/esporte
func (c *Catalog) StagesOf(ctx context.Context, sportID string) ([]StageGroup, error) {
	pairs, err := c.CompetitionSports.Where(ctx, `sport_id=$1`, sportID)
	if err != nil {
		return nil, err
	}
	stages, err := c.Stages.Where(ctx,
		`comp_sport_id IN (SELECT id FROM crud_api.competition_sport WHERE sport_id=$1)`, sportID)
	if err != nil {
		return nil, fmt.Errorf("stages of sport: %w", err)
	}
	return GroupStages(pairs, stages), nil
}

// GroupStages distribui as etapas pelos pares, mantendo a ordem dos pares
func GroupStages(pairs []model.CompetitionSport, stages []model.Stage) []StageGroup {
	idx := make(map[string]int, len(pairs))
	groups := make([]StageGroup, len(pairs))
	for i, p := range pairs {
		idx[p.ID] = i
		groups[i] = StageGroup{CompSportID: p.ID, Stages: []model.Stage{}}
	}
	for _, s := range stages {
		if s.CompSportID == nil {
			continue
		}
		if i, ok := idx[*s.CompSportID]; ok {
			groups[i].Stages = append(groups[i].Stages, s)
		}
	}
	return groups
}
