// Package sitehttp serve as páginas do site como documentos JSON:
// catálogo paginado, detalhes, cadastro, login, perfil e aposta.
package sitehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/account/auth"
	"github.com/radieske/competitions-bet-platform/internal/account/model"
	"github.com/radieske/competitions-bet-platform/internal/account/service"
	catalog "github.com/radieske/competitions-bet-platform/internal/catalog/model"
	"github.com/radieske/competitions-bet-platform/internal/catalog/repo"
	"github.com/radieske/competitions-bet-platform/internal/shared/logger"
)

// Pages é a leitura paginada de um tipo do catálogo; *repo.Table satisfaz
type Pages[T any] interface {
	List(ctx context.Context, limit, offset int) ([]T, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (T, error)
}

// Relations são as consultas que cruzam tabelas; *repo.Catalog satisfaz
type Relations interface {
	Counts(ctx context.Context) (repo.Counts, error)
	SportsOf(ctx context.Context, competitionID string) ([]catalog.Sport, error)
	StagesOf(ctx context.Context, sportID string) ([]repo.StageGroup, error)
}

// PageCache guarda páginas de listagem e contadores; *cache.RedisCache satisfaz
type PageCache interface {
	GetPage(ctx context.Context, kind string, page int, dst any) (bool, error)
	SetPage(ctx context.Context, kind string, page int, v any) error
	GetCounts(ctx context.Context, dst any) (bool, error)
	SetCounts(ctx context.Context, v any) error
}

// Accounts é o fluxo de conta; *service.Service satisfaz
type Accounts interface {
	auth.Authenticator
	Register(ctx context.Context, f service.RegisterForm) (model.User, error)
	Login(ctx context.Context, f service.LoginForm) (string, model.Principal, error)
	Logout(ctx context.Context, p model.Principal) error
	Profile(ctx context.Context, p model.Principal) (service.Profile, error)
	AddFunds(ctx context.Context, p model.Principal, f service.AddFundsForm) (int64, error)
	PrepareBet(ctx context.Context, p model.Principal, stageID string) (service.BetContext, error)
	PlaceBet(ctx context.Context, p model.Principal, stageID string, f service.BetForm) (int64, error)
	HoldsStage(ctx context.Context, p model.Principal, stageID string) (bool, error)
}

type Server struct {
	Log      *zap.Logger
	Accounts Accounts
	Cache    PageCache

	Competitions Pages[catalog.Competition]
	Sports       Pages[catalog.Sport]
	Stages       Pages[catalog.Stage]
	Relations    Relations

	// WS atende /ws quando presente
	WS http.HandlerFunc
	// SecureCookie marca o cookie de sessão como Secure
	SecureCookie bool
}

func NewServer(log *zap.Logger, accounts Accounts, cache PageCache, c *repo.Catalog) *Server {
	return &Server{
		Log:          log,
		Accounts:     accounts,
		Cache:        cache,
		Competitions: c.Competitions,
		Sports:       c.Sports,
		Stages:       c.Stages,
		Relations:    c,
	}
}

// Paths usados nos redirecionamentos
const (
	PathLogin   = "/login/"
	PathProfile = "/profile/"
	PathStages  = "/stages/"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Requests(s.Log))
	r.Use(s.identify)

	r.Get("/", s.home)
	r.Get("/competitions/", s.competitions)
	r.Get("/sports/", s.sports)
	r.Get("/stages/", s.stages)
	r.Get("/register/", s.registerForm)
	r.Post("/register/", s.register)
	r.Get("/login/", s.loginForm)
	r.Post("/login/", s.login)

	r.Group(func(r chi.Router) {
		r.Use(loginRequired)
		r.Get("/competition/", s.competition)
		r.Get("/sport/", s.sport)
		r.Get("/stage/", s.stage)
		r.Get("/logout/", s.logout)
		r.Post("/logout/", s.logout)
		r.Get("/profile/", s.profile)
		r.Post("/profile/", s.addFunds)
		r.Get("/bet/", s.betForm)
		r.Post("/bet/", s.placeBet)
	})

	if s.WS != nil {
		r.Get("/ws", s.WS)
	}
	return r
}

// identify resolve o token (header ou cookie) sem exigir login
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := auth.RequestToken(r); tok != "" {
			if p, err := s.Accounts.Authenticate(r.Context(), tok); err == nil {
				r = r.WithContext(auth.WithPrincipal(r.Context(), p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// loginRequired manda o visitante anônimo para /login/?next=<página>
func loginRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			http.Redirect(w, r, PathLogin+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func principal(r *http.Request) model.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.Log.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
