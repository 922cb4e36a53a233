package sitehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/account/auth"
	"github.com/radieske/competitions-bet-platform/internal/account/model"
	"github.com/radieske/competitions-bet-platform/internal/account/service"
	catalog "github.com/radieske/competitions-bet-platform/internal/catalog/model"
	"github.com/radieske/competitions-bet-platform/internal/catalog/repo"
	"github.com/radieske/competitions-bet-platform/internal/shared/form"
	"github.com/radieske/competitions-bet-platform/internal/shared/money"
)

type memPages[T any] struct {
	items []T
	id    func(T) string
}

func (m *memPages[T]) List(_ context.Context, limit, offset int) ([]T, error) {
	if offset >= len(m.items) {
		return []T{}, nil
	}
	end := len(m.items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return m.items[offset:end], nil
}

func (m *memPages[T]) Count(context.Context) (int, error) { return len(m.items), nil }

func (m *memPages[T]) Get(_ context.Context, id string) (T, error) {
	for _, v := range m.items {
		if m.id(v) == id {
			return v, nil
		}
	}
	var zero T
	return zero, catalog.ErrNotFound
}

type memRelations struct {
	counts repo.Counts
	calls  int
}

func (m *memRelations) Counts(context.Context) (repo.Counts, error) {
	m.calls++
	return m.counts, nil
}

func (m *memRelations) SportsOf(context.Context, string) ([]catalog.Sport, error) {
	return []catalog.Sport{{Name: "Football"}}, nil
}

func (m *memRelations) StagesOf(_ context.Context, sportID string) ([]repo.StageGroup, error) {
	return []repo.StageGroup{{CompSportID: "pair-" + sportID, Stages: []catalog.Stage{}}}, nil
}

// memCache guarda os valores já serializados, como o Redis
type memCache struct {
	pages  map[string][]byte
	counts []byte
}

func newMemCache() *memCache { return &memCache{pages: map[string][]byte{}} }

func (c *memCache) GetPage(_ context.Context, kind string, page int, dst any) (bool, error) {
	b, ok := c.pages[fmt.Sprintf("%s:%d", kind, page)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetPage(_ context.Context, kind string, page int, v any) error {
	b, err := json.Marshal(v)
	c.pages[fmt.Sprintf("%s:%d", kind, page)] = b
	return err
}

func (c *memCache) GetCounts(_ context.Context, dst any) (bool, error) {
	if c.counts == nil {
		return false, nil
	}
	return true, json.Unmarshal(c.counts, dst)
}

func (c *memCache) SetCounts(_ context.Context, v any) error {
	b, err := json.Marshal(v)
	c.counts = b
	return err
}

// fakeAccounts tem um único usuário "ann" com senha "secret"
type fakeAccounts struct {
	token   string
	balance int64
	held    map[string]bool
	stages  map[string]catalog.Stage
}

var ann = model.Principal{User: model.User{Username: "ann"}, ClientID: "client-ann"}

func (f *fakeAccounts) Authenticate(_ context.Context, token string) (model.Principal, error) {
	if f.token == "" || token != f.token {
		return model.Principal{}, model.ErrInvalidToken
	}
	p := ann
	p.MoneyCents = f.balance
	return p, nil
}

func (f *fakeAccounts) Register(_ context.Context, rf service.RegisterForm) (model.User, error) {
	if rf.Username == "" {
		return model.User{}, form.Errors{form.New("username", form.CodeRequired, "This field is required.")}
	}
	return model.User{Username: rf.Username}, nil
}

func (f *fakeAccounts) Login(_ context.Context, lf service.LoginForm) (string, model.Principal, error) {
	if lf.Username != "ann" {
		return "", model.Principal{}, model.ErrUserNotFound
	}
	if lf.Password != "secret" {
		return "", model.Principal{}, model.ErrWrongPassword
	}
	if f.token == "" {
		f.token = "tok-ann"
	}
	return f.token, ann, nil
}

func (f *fakeAccounts) Logout(context.Context, model.Principal) error {
	f.token = ""
	return nil
}

func (f *fakeAccounts) Profile(_ context.Context, p model.Principal) (service.Profile, error) {
	return service.Profile{Username: p.Username, BalanceCents: p.MoneyCents, Stages: []catalog.Stage{}}, nil
}

func (f *fakeAccounts) AddFunds(_ context.Context, p model.Principal, af service.AddFundsForm) (int64, error) {
	cents, err := money.ParseCents(string(af.Amount))
	if err != nil || cents <= 0 {
		return p.MoneyCents, form.Errors{form.New(service.FieldAmount, service.CodeNotPositive, "Amount must be greater than zero.")}
	}
	f.balance += cents
	return f.balance, nil
}

func (f *fakeAccounts) PrepareBet(_ context.Context, p model.Principal, stageID string) (service.BetContext, error) {
	st, ok := f.stages[stageID]
	if !ok {
		return service.BetContext{}, model.ErrStageNotFound
	}
	if f.held[stageID] {
		return service.BetContext{}, model.ErrAlreadyPlaced
	}
	return service.BetContext{Stage: st, BalanceCents: p.MoneyCents}, nil
}

func (f *fakeAccounts) PlaceBet(ctx context.Context, p model.Principal, stageID string, bf service.BetForm) (int64, error) {
	if _, err := f.PrepareBet(ctx, p, stageID); err != nil {
		return p.MoneyCents, err
	}
	if f.balance < model.MinBetBalanceCents {
		return f.balance, form.Errors{form.New(service.FieldBalance, service.CodeMinBalance, "too low")}
	}
	cents, _ := money.ParseCents(string(bf.Amount))
	f.balance -= cents
	f.held[stageID] = true
	return f.balance, nil
}

func (f *fakeAccounts) HoldsStage(_ context.Context, _ model.Principal, stageID string) (bool, error) {
	return f.held[stageID], nil
}

type fixture struct {
	srv       *Server
	handler   http.Handler
	accounts  *fakeAccounts
	relations *memRelations
	cache     *memCache
}

func newFixture(t *testing.T, nCompetitions int) *fixture {
	t.Helper()
	comps := make([]catalog.Competition, nCompetitions)
	for i := range comps {
		comps[i] = catalog.Competition{Audit: catalog.Audit{ID: fmt.Sprintf("c%02d", i)}, Name: fmt.Sprintf("Cup %02d", i)}
	}
	final := catalog.Stage{Audit: catalog.Audit{ID: "stage-final"}, Name: "Final"}
	f := &fixture{
		accounts: &fakeAccounts{
			held:   map[string]bool{},
			stages: map[string]catalog.Stage{final.ID: final},
		},
		relations: &memRelations{counts: repo.Counts{Competitions: nCompetitions, Sports: 2, Stages: 1}},
		cache:     newMemCache(),
	}
	f.srv = &Server{
		Log:          zap.NewNop(),
		Accounts:     f.accounts,
		Cache:        f.cache,
		Competitions: &memPages[catalog.Competition]{items: comps, id: func(c catalog.Competition) string { return c.ID }},
		Sports: &memPages[catalog.Sport]{
			items: []catalog.Sport{{Audit: catalog.Audit{ID: "football"}, Name: "Football"}},
			id:    func(s catalog.Sport) string { return s.ID },
		},
		Stages:    &memPages[catalog.Stage]{items: []catalog.Stage{final}, id: func(s catalog.Stage) string { return s.ID }},
		Relations: f.relations,
	}
	f.handler = f.srv.Router()
	return f
}

func (f *fixture) do(method, target, body string, loggedIn bool) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if loggedIn {
		if f.accounts.token == "" {
			f.accounts.token = "tok-ann"
		}
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: f.accounts.token})
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func TestPageNumber(t *testing.T) {
	tests := []struct {
		raw          string
		count        int
		want, wantOf int
	}{
		{"", 23, 1, 3},
		{"2", 23, 2, 3},
		{"abc", 23, 1, 3},
		{"0", 23, 1, 3},
		{"99", 23, 3, 3},
		{"", 0, 1, 1},
		{"5", 10, 1, 1},
	}
	for _, tt := range tests {
		got, of := pageNumber(tt.raw, tt.count, PageSize)
		if got != tt.want || of != tt.wantOf {
			t.Errorf("pageNumber(%q, %d) = (%d, %d), want (%d, %d)", tt.raw, tt.count, got, of, tt.want, tt.wantOf)
		}
	}
}

func TestHomeUsesCache(t *testing.T) {
	f := newFixture(t, 3)
	for i := 0; i < 2; i++ {
		w := f.do(http.MethodGet, "/", "", false)
		var counts repo.Counts
		if err := json.Unmarshal(w.Body.Bytes(), &counts); err != nil || counts.Competitions != 3 || counts.Sports != 2 {
			t.Fatalf("home = %s", w.Body)
		}
	}
	if f.relations.calls != 1 {
		t.Errorf("counts computed %d times, want 1", f.relations.calls)
	}
}

func TestListPagination(t *testing.T) {
	f := newFixture(t, 23)
	tests := []struct {
		query    string
		number   int
		items    int
		next     bool
		previous bool
	}{
		{"", 1, 10, true, false},
		{"?page=2", 2, 10, true, true},
		{"?page=3", 3, 3, false, true},
		{"?page=last-one", 1, 10, true, false},
		{"?page=40", 3, 3, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := f.do(http.MethodGet, "/competitions/"+tt.query, "", false)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var page Page[catalog.Competition]
			_ = json.Unmarshal(w.Body.Bytes(), &page)
			if page.Number != tt.number || len(page.Items) != tt.items || page.HasNext != tt.next ||
				page.HasPrevious != tt.previous || page.NumPages != 3 || page.Count != 23 {
				t.Errorf("page = %+v", page)
			}
		})
	}
	if _, ok := f.cache.pages["competitions:3"]; !ok {
		t.Error("page 3 was not cached")
	}
}

func TestDetailPagesRequireLogin(t *testing.T) {
	f := newFixture(t, 1)
	for _, path := range []string{"/competition/?id=c00", "/sport/?id=football", "/stage/?id=stage-final", "/profile/", "/bet/?id=stage-final", "/logout/"} {
		w := f.do(http.MethodGet, path, "", false)
		if w.Code != http.StatusFound {
			t.Errorf("GET %s = %d, want 302", path, w.Code)
			continue
		}
		want := PathLogin + "?next=" + url.QueryEscape(path)
		if loc := w.Header().Get("Location"); loc != want {
			t.Errorf("GET %s redirected to %q, want %q", path, loc, want)
		}
	}
}

func TestDetailPages(t *testing.T) {
	f := newFixture(t, 1)

	w := f.do(http.MethodGet, "/competition/?id=c00", "", true)
	var cp competitionPage
	if _ = json.Unmarshal(w.Body.Bytes(), &cp); w.Code != http.StatusOK || cp.Competition.ID != "c00" || len(cp.Sports) != 1 {
		t.Errorf("competition page = %d %s", w.Code, w.Body)
	}

	w = f.do(http.MethodGet, "/sport/?id=football", "", true)
	var sp sportPage
	if _ = json.Unmarshal(w.Body.Bytes(), &sp); w.Code != http.StatusOK || len(sp.Stages) != 1 || sp.Stages[0].CompSportID != "pair-football" {
		t.Errorf("sport page = %d %s", w.Code, w.Body)
	}

	f.accounts.held["stage-final"] = true
	w = f.do(http.MethodGet, "/stage/?id=stage-final", "", true)
	var stp stagePage
	if _ = json.Unmarshal(w.Body.Bytes(), &stp); w.Code != http.StatusOK || !stp.PlacedBet {
		t.Errorf("stage page = %d %s", w.Code, w.Body)
	}

	for _, path := range []string{"/competition/", "/competition/?id=missing", "/stage/?id=nope"} {
		if w := f.do(http.MethodGet, path, "", true); w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, w.Code)
		}
	}
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(http.MethodPost, "/login/", `{"username":"ann","password":"wrong"}`, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", w.Code)
	}
	w = f.do(http.MethodPost, "/login/", `{"username":"bob","password":"secret"}`, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown user = %d", w.Code)
	}

	w = f.do(http.MethodPost, "/login/?next=/stages/", `{"username":"ann","password":"secret"}`, false)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/stages/" {
		t.Fatalf("login = %d -> %q", w.Code, w.Header().Get("Location"))
	}
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != "tok-ann" || !cookie.HttpOnly {
		t.Fatalf("cookie = %+v", cookie)
	}

	// o token também vale como Bearer
	r := httptest.NewRequest(http.MethodGet, "/profile/", nil)
	r.Header.Set("Authorization", "Bearer tok-ann")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Errorf("profile with bearer = %d", rec.Code)
	}

	w = f.do(http.MethodGet, "/logout/", "", true)
	if w.Code != http.StatusOK || f.accounts.token != "" {
		t.Errorf("logout = %d, token %q", w.Code, f.accounts.token)
	}
	r = httptest.NewRequest(http.MethodGet, "/profile/", nil)
	r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "tok-ann"})
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusFound {
		t.Errorf("profile after logout = %d, want 302", rec.Code)
	}
}

func TestSafeNext(t *testing.T) {
	for in, want := range map[string]string{
		"":                    PathProfile,
		"/stages/":            "/stages/",
		"//evil.example":      PathProfile,
		"https://evil.example": PathProfile,
	} {
		if got := safeNext(in); got != want {
			t.Errorf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(http.MethodPost, "/register/", `{"username":""}`, false)
	var body formErrors
	if _ = json.Unmarshal(w.Body.Bytes(), &body); w.Code != http.StatusBadRequest || body.Errors["username"][0].Code != form.CodeRequired {
		t.Errorf("register empty = %d %s", w.Code, w.Body)
	}

	r := httptest.NewRequest(http.MethodPost, "/register/", strings.NewReader("username=zoe&password1=x"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"zoe"`) {
		t.Errorf("register urlencoded = %d %s", rec.Code, rec.Body)
	}
}

func TestAddFundsAndBet(t *testing.T) {
	f := newFixture(t, 0)

	w := f.do(http.MethodPost, "/profile/", `{"amount":"-1"}`, true)
	var ferr formErrors
	if _ = json.Unmarshal(w.Body.Bytes(), &ferr); w.Code != http.StatusBadRequest || ferr.Errors[service.FieldAmount][0].Code != service.CodeNotPositive {
		t.Errorf("add -1 = %d %s", w.Code, w.Body)
	}

	// saldo abaixo do mínimo: erro no formulário, sem redirecionar
	w = f.do(http.MethodPost, "/bet/?id=stage-final", `{"bet_amount":"10"}`, true)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), service.CodeMinBalance) {
		t.Errorf("bet with low balance = %d %s", w.Code, w.Body)
	}

	w = f.do(http.MethodPost, "/profile/", `{"amount":150}`, true)
	var prof service.Profile
	if _ = json.Unmarshal(w.Body.Bytes(), &prof); w.Code != http.StatusOK || prof.BalanceCents != 15000 {
		t.Errorf("add 150 = %d %s", w.Code, w.Body)
	}

	w = f.do(http.MethodGet, "/bet/?id=stage-final", "", true)
	var bc service.BetContext
	if _ = json.Unmarshal(w.Body.Bytes(), &bc); w.Code != http.StatusOK || bc.Stage.ID != "stage-final" || bc.BalanceCents != 15000 {
		t.Errorf("bet form = %d %s", w.Code, w.Body)
	}

	w = f.do(http.MethodPost, "/bet/?id=stage-final", `{"bet_amount":"50"}`, true)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != PathProfile {
		t.Errorf("bet = %d -> %q", w.Code, w.Header().Get("Location"))
	}
	if f.accounts.balance != 10000 {
		t.Errorf("balance = %d", f.accounts.balance)
	}

	tests := []struct {
		method, target, want string
	}{
		{http.MethodGet, "/bet/?id=stage-final", PathProfile},
		{http.MethodPost, "/bet/?id=stage-final", PathProfile},
		{http.MethodGet, "/bet/", PathStages},
		{http.MethodGet, "/bet/?id=unknown", PathStages},
	}
	for _, tt := range tests {
		w := f.do(tt.method, tt.target, `{"bet_amount":"50"}`, true)
		if w.Code != http.StatusFound || w.Header().Get("Location") != tt.want {
			t.Errorf("%s %s = %d -> %q, want 302 -> %q", tt.method, tt.target, w.Code, w.Header().Get("Location"), tt.want)
		}
	}
	if f.accounts.balance != 10000 {
		t.Errorf("repeated bet changed balance to %d", f.accounts.balance)
	}
}
