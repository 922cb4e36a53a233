package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/competitions-bet-platform/internal/account/model"
	catalog "github.com/radieske/competitions-bet-platform/internal/catalog/model"
	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// memStore reproduz em memória as regras do repositório Postgres.
// O mutex faz o papel do SELECT ... FOR UPDATE na linha do cliente.
type memStore struct {
	mu      sync.Mutex
	users   map[string]model.User   // por username
	clients map[string]model.Client // por id
	byUser  map[string]string       // user id -> client id
	bets    map[string]model.StageClient
	stages  map[string]catalog.Stage
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]model.User{},
		clients: map[string]model.Client{},
		byUser:  map[string]string{},
		bets:    map[string]model.StageClient{},
		stages:  map[string]catalog.Stage{},
	}
}

func betKey(clientID, stageID string) string { return clientID + "/" + stageID }

func (m *memStore) addStage(name string) catalog.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := catalog.Stage{Name: name, StageDate: catalog.NewDate(2026, 8, 4), BetCoefficient: 2}
	s.Stamp(time.Now())
	m.stages[s.ID] = s
	return s
}

func (m *memStore) principal(u model.User) model.Principal {
	c := m.clients[m.byUser[u.ID]]
	return model.Principal{User: u, ClientID: c.ID, MoneyCents: c.MoneyCents}
}

func (m *memStore) CreateUser(_ context.Context, u *model.User) (model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return model.Client{}, model.ErrUsernameTaken
	}
	u.ID = uuid.NewString()
	u.Created = time.Now()
	m.users[u.Username] = *u
	c := model.Client{UserID: u.ID}
	c.Stamp(time.Now())
	m.clients[c.ID] = c
	m.byUser[u.ID] = c.ID
	return c, nil
}

func (m *memStore) PromoteSuperuser(_ context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return model.ErrUserNotFound
	}
	u.IsSuperuser, u.PasswordHash = true, hash
	m.users[username] = u
	return nil
}

func (m *memStore) PrincipalByUsername(_ context.Context, username string) (model.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return model.Principal{}, model.ErrUserNotFound
	}
	return m.principal(u), nil
}

func (m *memStore) PrincipalByToken(_ context.Context, token string) (model.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if c := m.clients[m.byUser[u.ID]]; token != "" && c.Token == token {
			return m.principal(u), nil
		}
	}
	return model.Principal{}, model.ErrInvalidToken
}

func (m *memStore) IssueToken(_ context.Context, clientID, candidate string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok {
		return "", model.ErrClientNotFound
	}
	if c.Token == "" {
		c.Token = candidate
		m.clients[clientID] = c
	}
	return c.Token, nil
}

func (m *memStore) ClearToken(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.clients[clientID]
	c.Token = ""
	m.clients[clientID] = c
	return nil
}

func (m *memStore) AddFunds(_ context.Context, clientID string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok {
		return 0, model.ErrClientNotFound
	}
	if c.MoneyCents+amount < 0 {
		return 0, model.ErrNegativeBalance
	}
	c.MoneyCents += amount
	m.clients[clientID] = c
	return c.MoneyCents, nil
}

func (m *memStore) PlaceBet(_ context.Context, clientID, stageID string, amount, minBalance int64) (model.StageClient, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok {
		return model.StageClient{}, 0, model.ErrClientNotFound
	}
	if _, held := m.bets[betKey(clientID, stageID)]; held {
		return model.StageClient{}, c.MoneyCents, model.ErrAlreadyPlaced
	}
	if _, ok := m.stages[stageID]; !ok {
		return model.StageClient{}, c.MoneyCents, model.ErrStageNotFound
	}
	if c.MoneyCents < minBalance {
		return model.StageClient{}, c.MoneyCents, model.ErrBalanceBelowMinimum
	}
	if c.MoneyCents < amount {
		return model.StageClient{}, c.MoneyCents, model.ErrInsufficientFunds
	}
	c.MoneyCents -= amount
	m.clients[clientID] = c
	sc := model.StageClient{StageID: stageID, ClientID: clientID, BetCents: amount}
	sc.Stamp(time.Now())
	m.bets[betKey(clientID, stageID)] = sc
	return sc, c.MoneyCents, nil
}

func (m *memStore) HoldsStage(_ context.Context, clientID, stageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.bets[betKey(clientID, stageID)]
	return held, nil
}

func (m *memStore) ClientStages(_ context.Context, clientID string) ([]catalog.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []catalog.Stage{}
	for _, sc := range m.bets {
		if sc.ClientID == clientID {
			out = append(out, m.stages[sc.StageID])
		}
	}
	return out, nil
}

func (m *memStore) balance(clientID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[clientID].MoneyCents
}

// Get implementa StageReader
func (m *memStore) Get(_ context.Context, id string) (catalog.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stages[id]
	if !ok {
		return catalog.Stage{}, catalog.ErrNotFound
	}
	return s, nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.ClientActivity
}

func (p *memPublisher) PublishActivity(_ context.Context, e events.ClientActivity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *memPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}
