// Package service concentra o fluxo de conta do site: cadastro, login,
// depósito e aposta. Toda validação acontece antes de qualquer escrita.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/radieske/competitions-bet-platform/internal/account/model"
	catalog "github.com/radieske/competitions-bet-platform/internal/catalog/model"
	"github.com/radieske/competitions-bet-platform/internal/shared/form"
	"github.com/radieske/competitions-bet-platform/internal/shared/money"
	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// Store é a persistência usada pelo serviço (Postgres em produção)
type Store interface {
	CreateUser(ctx context.Context, u *model.User) (model.Client, error)
	PromoteSuperuser(ctx context.Context, username, passwordHash string) error
	PrincipalByUsername(ctx context.Context, username string) (model.Principal, error)
	PrincipalByToken(ctx context.Context, token string) (model.Principal, error)
	IssueToken(ctx context.Context, clientID, candidate string) (string, error)
	ClearToken(ctx context.Context, clientID string) error
	AddFunds(ctx context.Context, clientID string, amount int64) (int64, error)
	PlaceBet(ctx context.Context, clientID, stageID string, amount, minBalance int64) (model.StageClient, int64, error)
	HoldsStage(ctx context.Context, clientID, stageID string) (bool, error)
	ClientStages(ctx context.Context, clientID string) ([]catalog.Stage, error)
}

// StageReader resolve etapas do catálogo
type StageReader interface {
	Get(ctx context.Context, id string) (catalog.Stage, error)
}

// Publisher publica atividade de clientes depois do commit
type Publisher interface {
	PublishActivity(ctx context.Context, e events.ClientActivity) error
}

type Service struct {
	log      *zap.Logger
	store    Store
	stages   StageReader
	publ     Publisher
	metrics  *Metrics
	validate *validator.Validate

	Now      func() time.Time
	NewToken func() (string, error)
	// custo do bcrypt; testes usam bcrypt.MinCost
	HashCost int
}

func New(log *zap.Logger, store Store, stages StageReader, publ Publisher, m *Metrics) *Service {
	return &Service{
		log:      log,
		store:    store,
		stages:   stages,
		publ:     publ,
		metrics:  m,
		validate: newValidator(),
		Now:      time.Now,
		NewToken: randomToken,
		HashCost: bcrypt.DefaultCost,
	}
}

// randomToken gera 20 bytes aleatórios em hex (40 caracteres)
func randomToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Register valida o formulário e cria usuário + cliente com saldo zero
func (s *Service) Register(ctx context.Context, f RegisterForm) (model.User, error) {
	if errs := validateStruct(s.validate, f); errs != nil {
		return model.User{}, errs
	}
	if passwordTooSimilar(f) {
		return model.User{}, form.Errors{form.New("password2", "password_too_similar",
			"The password is too similar to the personal information.")}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password1), s.HashCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		Username:     f.Username,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Email:        f.Email,
		PasswordHash: string(hash),
	}
	if _, err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return model.User{}, form.Errors{form.New("username", "unique", "A user with that username already exists.")}
		}
		return model.User{}, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// EnsureSuperuser cria (ou promove) o administrador configurado no ambiente
func (s *Service) EnsureSuperuser(ctx context.Context, username, password, email string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.HashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := model.User{Username: username, Email: email, PasswordHash: string(hash), IsSuperuser: true}
	_, err = s.store.CreateUser(ctx, &u)
	if errors.Is(err, model.ErrUsernameTaken) {
		return s.store.PromoteSuperuser(ctx, username, string(hash))
	}
	return err
}

// Login confere as credenciais e emite (ou reaproveita) o token do cliente
func (s *Service) Login(ctx context.Context, f LoginForm) (token string, p model.Principal, err error) {
	if errs := validateStruct(s.validate, f); errs != nil {
		return "", model.Principal{}, errs
	}
	p, err = s.store.PrincipalByUsername(ctx, f.Username)
	if err != nil {
		return "", model.Principal{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(f.Password)) != nil {
		return "", model.Principal{}, model.ErrWrongPassword
	}

	candidate, err := s.NewToken()
	if err != nil {
		return "", model.Principal{}, err
	}
	token, err = s.store.IssueToken(ctx, p.ClientID, candidate)
	if err != nil {
		return "", model.Principal{}, err
	}
	return token, p, nil
}

func (s *Service) Logout(ctx context.Context, p model.Principal) error {
	return s.store.ClearToken(ctx, p.ClientID)
}

// Authenticate resolve o usuário dono do token
func (s *Service) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	return s.store.PrincipalByToken(ctx, token)
}

// Profile são os dados exibidos na página de perfil
type Profile struct {
	Username     string          `json:"username"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	BalanceCents int64           `json:"money_cents"`
	Stages       []catalog.Stage `json:"client_stages"`
}

func (s *Service) Profile(ctx context.Context, p model.Principal) (Profile, error) {
	stages, err := s.store.ClientStages(ctx, p.ClientID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		BalanceCents: p.MoneyCents,
		Stages:       stages,
	}, nil
}

// AddFunds valida valor e cartão e só então credita o saldo
func (s *Service) AddFunds(ctx context.Context, p model.Principal, f AddFundsForm) (int64, error) {
	in, errs := f.Clean(s.Now)
	if errs != nil {
		s.metrics.rejected("add_funds", errs.Fields()...)
		return p.MoneyCents, errs
	}

	balance, err := s.store.AddFunds(ctx, p.ClientID, in.AmountCents)
	if err != nil {
		return p.MoneyCents, err
	}
	s.metrics.fundsAdded(in.AmountCents)
	s.log.Info("funds added",
		zap.String("client_id", p.ClientID),
		zap.Int64("amount_cents", in.AmountCents),
		zap.Int64("balance_cents", balance),
	)

	s.publish(ctx, events.ClientActivity{
		Kind:         events.KindFundsAdded,
		ClientID:     p.ClientID,
		AmountCents:  in.AmountCents,
		BalanceCents: balance,
	})
	return balance, nil
}

// BetContext é o que a página de aposta mostra antes do envio
type BetContext struct {
	Stage        catalog.Stage `json:"stage"`
	BalanceCents int64         `json:"money_cents"`
}

// PrepareBet resolve a etapa e confere se o cliente já apostou nela.
// Devolve model.ErrStageNotFound ou model.ErrAlreadyPlaced para o handler redirecionar.
func (s *Service) PrepareBet(ctx context.Context, p model.Principal, stageID string) (BetContext, error) {
	if stageID == "" {
		return BetContext{}, model.ErrStageNotFound
	}
	if _, err := uuid.Parse(stageID); err != nil {
		return BetContext{}, model.ErrStageNotFound
	}
	stage, err := s.stages.Get(ctx, stageID)
	if errors.Is(err, catalog.ErrNotFound) {
		return BetContext{}, model.ErrStageNotFound
	}
	if err != nil {
		return BetContext{}, err
	}
	held, err := s.store.HoldsStage(ctx, p.ClientID, stageID)
	if err != nil {
		return BetContext{}, err
	}
	if held {
		return BetContext{}, model.ErrAlreadyPlaced
	}
	return BetContext{Stage: stage, BalanceCents: p.MoneyCents}, nil
}

// HoldsStage informa se o cliente já apostou na etapa
func (s *Service) HoldsStage(ctx context.Context, p model.Principal, stageID string) (bool, error) {
	return s.store.HoldsStage(ctx, p.ClientID, stageID)
}

// PlaceBet valida o valor e grava a aposta. Repetir a aposta numa etapa já
// apostada devolve model.ErrAlreadyPlaced sem efeito nenhum.
func (s *Service) PlaceBet(ctx context.Context, p model.Principal, stageID string, f BetForm) (int64, error) {
	if _, err := s.PrepareBet(ctx, p, stageID); err != nil {
		return p.MoneyCents, err
	}
	amount, errs := f.Clean()
	if errs != nil {
		s.metrics.rejected("place_bet", errs.Fields()...)
		return p.MoneyCents, errs
	}

	sc, balance, err := s.store.PlaceBet(ctx, p.ClientID, stageID, amount, model.MinBetBalanceCents)
	switch {
	case errors.Is(err, model.ErrBalanceBelowMinimum):
		s.metrics.rejected("place_bet", CodeMinBalance)
		return balance, form.Errors{form.New(FieldBalance, CodeMinBalance,
			fmt.Sprintf("Balance should be equal or greater than %s to place a bet.", money.Format(model.MinBetBalanceCents)))}
	case errors.Is(err, model.ErrInsufficientFunds):
		s.metrics.rejected("place_bet", CodeInsufficientFunds)
		return balance, form.Errors{form.New(FieldBetAmount, CodeInsufficientFunds,
			"Bet amount exceeds the available balance.")}
	case err != nil:
		return p.MoneyCents, err
	}

	s.metrics.betPlaced(amount)
	s.log.Info("bet placed",
		zap.String("client_id", p.ClientID),
		zap.String("stage_id", stageID),
		zap.Int64("amount_cents", amount),
	)
	s.publish(ctx, events.ClientActivity{
		EventID:      sc.ID,
		Kind:         events.KindBetPlaced,
		ClientID:     p.ClientID,
		StageID:      stageID,
		AmountCents:  amount,
		BalanceCents: balance,
	})
	return balance, nil
}

// publish não falha a requisição: o saldo já foi gravado
func (s *Service) publish(ctx context.Context, e events.ClientActivity) {
	if s.publ == nil {
		return
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	e.TsUnixMs = s.Now().UnixMilli()
	if err := s.publ.PublishActivity(ctx, e); err != nil {
		s.log.Warn("publish client activity failed", zap.String("kind", e.Kind), zap.Error(err))
	}
}
