package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/account/auth"
	"github.com/radieske/competitions-bet-platform/internal/catalog/model"
	"github.com/radieske/competitions-bet-platform/internal/catalog/repo"
	"github.com/radieske/competitions-bet-platform/internal/shared/logger"
	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// Notifier avisa outros serviços sobre escritas no catálogo
type Notifier interface {
	PublishChanged(ctx context.Context, e events.CatalogChanged) error
}

// API expõe o CRUD do catálogo em /api/<recurso>/
type API struct {
	Log      *zap.Logger
	Auth     auth.Authenticator
	Notifier Notifier
	Metrics  *Metrics

	Competitions      Store[model.Competition]
	Sports            Store[model.Sport]
	CompetitionSports Store[model.CompetitionSport]
	Stages            Store[model.Stage]
}

// NewAPI liga as tabelas do catálogo às rotas
func NewAPI(log *zap.Logger, authn auth.Authenticator, n Notifier, m *Metrics, c *repo.Catalog) *API {
	return &API{
		Log:               log,
		Auth:              authn,
		Notifier:          n,
		Metrics:           m,
		Competitions:      c.Competitions,
		Sports:            c.Sports,
		CompetitionSports: c.CompetitionSports,
		Stages:            c.Stages,
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Requests(a.Log))
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Use(a.authenticate)
		r.Use(permit)

		r.Mount("/"+repo.KindCompetitions, newResource[model.Competition](a, repo.KindCompetitions, a.Competitions).routes())
		r.Mount("/"+repo.KindSports, newResource[model.Sport](a, repo.KindSports, a.Sports).routes())
		r.Mount("/"+repo.KindStages, newResource[model.Stage](a, repo.KindStages, a.Stages).routes())
		r.Mount("/"+repo.KindCompetitionSports, newResource[model.CompetitionSport](a, repo.KindCompetitionSports, a.CompetitionSports).routes())
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (a *API) notify(ctx context.Context, kind, id, action string) {
	a.Metrics.write(kind, action)
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.PublishChanged(ctx, events.CatalogChanged{Kind: kind, ID: id, Action: action}); err != nil {
		a.Log.Warn("publish catalog change failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
	}
}
