package sitehttp

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	catalog "github.com/radieske/competitions-bet-platform/internal/catalog/model"
	"github.com/radieske/competitions-bet-platform/internal/catalog/repo"
)

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	var counts repo.Counts
	if s.Cache != nil {
		if ok, err := s.Cache.GetCounts(r.Context(), &counts); ok && err == nil {
			writeJSON(w, http.StatusOK, counts)
			return
		}
	}
	counts, err := s.Relations.Counts(r.Context())
	if err != nil {
		s.internalError(w, "home counts failed", err)
		return
	}
	if s.Cache != nil {
		if err := s.Cache.SetCounts(r.Context(), counts); err != nil {
			s.Log.Warn("cache counts failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) competitions(w http.ResponseWriter, r *http.Request) {
	listPage(s, w, r, repo.KindCompetitions, s.Competitions)
}

func (s *Server) sports(w http.ResponseWriter, r *http.Request) {
	listPage(s, w, r, repo.KindSports, s.Sports)
}

func (s *Server) stages(w http.ResponseWriter, r *http.Request) {
	listPage(s, w, r, repo.KindStages, s.Stages)
}

// listPage serve ?page= com leitura pelo cache; a página é normalizada antes da chave
func listPage[T any](s *Server, w http.ResponseWriter, r *http.Request, kind string, src Pages[T]) {
	ctx := r.Context()
	count, err := src.Count(ctx)
	if err != nil {
		s.internalError(w, "count "+kind+" failed", err)
		return
	}
	number, numPages := pageNumber(r.URL.Query().Get("page"), count, PageSize)

	var page Page[T]
	if s.Cache != nil {
		if ok, err := s.Cache.GetPage(ctx, kind, number, &page); ok && err == nil && page.Count == count {
			writeJSON(w, http.StatusOK, page)
			return
		}
	}

	items, err := src.List(ctx, PageSize, (number-1)*PageSize)
	if err != nil {
		s.internalError(w, "list "+kind+" failed", err)
		return
	}
	page = Page[T]{
		Items:       items,
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	if s.Cache != nil {
		if err := s.Cache.SetPage(ctx, kind, number, page); err != nil {
			s.Log.Warn("cache page failed", zap.String("kind", kind), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) notFound(w http.ResponseWriter, err error) bool {
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return true
	}
	return false
}

type competitionPage struct {
	Competition catalog.Competition `json:"competition"`
	Sports      []catalog.Sport     `json:"sports"`
}

func (s *Server) competition(w http.ResponseWriter, r *http.Request) {
	c, err := s.Competitions.Get(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		if !s.notFound(w, err) {
			s.internalError(w, "load competition failed", err)
		}
		return
	}
	sports, err := s.Relations.SportsOf(r.Context(), c.ID)
	if err != nil {
		s.internalError(w, "load sports of competition failed", err)
		return
	}
	writeJSON(w, http.StatusOK, competitionPage{Competition: c, Sports: sports})
}

type sportPage struct {
	Sport  catalog.Sport     `json:"sport"`
	Stages []repo.StageGroup `json:"query_stages"`
}

func (s *Server) sport(w http.ResponseWriter, r *http.Request) {
	sp, err := s.Sports.Get(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		if !s.notFound(w, err) {
			s.internalError(w, "load sport failed", err)
		}
		return
	}
	groups, err := s.Relations.StagesOf(r.Context(), sp.ID)
	if err != nil {
		s.internalError(w, "load stages of sport failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sportPage{Sport: sp, Stages: groups})
}

type stagePage struct {
	Stage     catalog.Stage `json:"stage"`
	PlacedBet bool          `json:"client_placed_bet"`
}

func (s *Server) stage(w http.ResponseWriter, r *http.Request) {
	st, err := s.Stages.Get(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		if !s.notFound(w, err) {
			s.internalError(w, "load stage failed", err)
		}
		return
	}
	held, err := s.Accounts.HoldsStage(r.Context(), principal(r), st.ID)
	if err != nil {
		s.internalError(w, "load client stages failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stagePage{Stage: st, PlacedBet: held})
}
