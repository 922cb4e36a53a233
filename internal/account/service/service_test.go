package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/radieske/competitions-bet-platform/internal/account/model"
	"github.com/radieske/competitions-bet-platform/internal/card"
	"github.com/radieske/competitions-bet-platform/internal/shared/form"
	"github.com/radieske/competitions-bet-platform/internal/shared/money"
	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

func newTestService(t *testing.T) (*Service, *memStore, *memPublisher) {
	t.Helper()
	store := newMemStore()
	publ := &memPublisher{}
	s := New(zap.NewNop(), store, store, publ, NewMetrics(prometheus.NewRegistry()))
	s.HashCost = bcrypt.MinCost
	s.Now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return s, store, publ
}

var validRegistration = RegisterForm{
	Username:  "username",
	FirstName: "first_name",
	LastName:  "last_name",
	Email:     "sirius@sirius.ru",
	Password1: "Gnkjhdfj8890",
	Password2: "Gnkjhdfj8890",
}

func register(t *testing.T, s *Service, store *memStore) model.Principal {
	t.Helper()
	if _, err := s.Register(context.Background(), validRegistration); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	p, err := store.PrincipalByUsername(context.Background(), validRegistration.Username)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func refresh(t *testing.T, store *memStore, p model.Principal) model.Principal {
	t.Helper()
	p.MoneyCents = store.balance(p.ClientID)
	return p
}

func validFunds(amount string) AddFundsForm {
	return AddFundsForm{
		CardNumber: "4242 4242 4242 4242",
		Expiry:     "7/30",
		Code:       "111",
		Amount:     money.Input(amount),
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(f *RegisterForm)
		field string
		code  string
	}{
		{"blank username", func(f *RegisterForm) { f.Username = "" }, "username", form.CodeRequired},
		{"blank password1", func(f *RegisterForm) { f.Password1 = "" }, "password1", form.CodeRequired},
		{"blank password2", func(f *RegisterForm) { f.Password2 = "" }, "password2", form.CodeRequired},
		{"bad email", func(f *RegisterForm) { f.Email = "Vlad Beznosov" }, "email", form.CodeInvalid},
		{"different passwords", func(f *RegisterForm) { f.Password1 = "JHfdshkfdfkhs71239217" }, "password2", "password_mismatch"},
		{"common password", func(f *RegisterForm) { f.Password1, f.Password2 = "Abcde123", "Abcde123" }, "password1", "password_too_common"},
		{"numeric password", func(f *RegisterForm) { f.Password1, f.Password2 = "123456789", "123456789" }, "password1", "password_entirely_numeric"},
		{"short password", func(f *RegisterForm) { f.Password1, f.Password2 = "ABC123", "ABC123" }, "password1", form.CodeMinLength},
		{"similar password", func(f *RegisterForm) { f.Password1, f.Password2 = "username2024", "username2024" }, "password2", "password_too_similar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestService(t)
			f := validRegistration
			tt.edit(&f)

			_, err := s.Register(context.Background(), f)
			var errs form.Errors
			if !errors.As(err, &errs) {
				t.Fatalf("Register() error = %v, want form.Errors", err)
			}
			if !errs.Has(tt.field, tt.code) {
				t.Errorf("errors = %+v, want %s/%s", errs, tt.field, tt.code)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s, store, _ := newTestService(t)
	register(t, s, store)

	_, err := s.Register(context.Background(), validRegistration)
	var errs form.Errors
	if !errors.As(err, &errs) || !errs.Has("username", "unique") {
		t.Errorf("second Register() = %v", err)
	}
}

func TestLoginIssuesAndReusesToken(t *testing.T) {
	s, store, _ := newTestService(t)
	p := register(t, s, store)
	ctx := context.Background()

	calls := 0
	s.NewToken = func() (string, error) {
		calls++
		return []string{"token-a", "token-b", "token-c"}[calls-1], nil
	}

	tok1, _, err := s.Login(ctx, LoginForm{Username: "username", Password: "Gnkjhdfj8890"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	tok2, _, err := s.Login(ctx, LoginForm{Username: "username", Password: "Gnkjhdfj8890"})
	if err != nil {
		t.Fatalf("second Login() error = %v", err)
	}
	if tok1 != "token-a" || tok2 != tok1 {
		t.Errorf("tokens = %q, %q; want the first token reused", tok1, tok2)
	}

	who, err := s.Authenticate(ctx, tok1)
	if err != nil || who.ClientID != p.ClientID {
		t.Fatalf("Authenticate() = (%+v, %v)", who, err)
	}

	if err := s.Logout(ctx, who); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Authenticate(ctx, tok1); !errors.Is(err, model.ErrInvalidToken) {
		t.Errorf("Authenticate after logout = %v, want ErrInvalidToken", err)
	}
	tok3, _, _ := s.Login(ctx, LoginForm{Username: "username", Password: "Gnkjhdfj8890"})
	if tok3 == tok1 {
		t.Errorf("login after logout reused %q", tok3)
	}
}

func TestLoginErrors(t *testing.T) {
	s, store, _ := newTestService(t)
	register(t, s, store)
	ctx := context.Background()

	if _, _, err := s.Login(ctx, LoginForm{Username: "nobody", Password: "x"}); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("unknown user: %v", err)
	}
	if _, _, err := s.Login(ctx, LoginForm{Username: "username", Password: "wrong"}); !errors.Is(err, model.ErrWrongPassword) {
		t.Errorf("wrong password: %v", err)
	}
	var errs form.Errors
	if _, _, err := s.Login(ctx, LoginForm{}); !errors.As(err, &errs) || !errs.Has("username", form.CodeRequired) {
		t.Errorf("empty form: %v", err)
	}
}

func TestEnsureSuperuser(t *testing.T) {
	s, store, _ := newTestService(t)
	ctx := context.Background()

	if err := s.EnsureSuperuser(ctx, "admin", "s3cret-pass", "admin@localhost"); err != nil {
		t.Fatal(err)
	}
	// segunda chamada promove/atualiza sem duplicar
	if err := s.EnsureSuperuser(ctx, "admin", "other-pass", "admin@localhost"); err != nil {
		t.Fatal(err)
	}
	p, _ := store.PrincipalByUsername(ctx, "admin")
	if !p.IsSuperuser {
		t.Error("admin is not superuser")
	}
	if _, _, err := s.Login(ctx, LoginForm{Username: "admin", Password: "other-pass"}); err != nil {
		t.Errorf("login with updated password: %v", err)
	}
}

func TestAddFunds(t *testing.T) {
	s, store, publ := newTestService(t)
	p := register(t, s, store)
	ctx := context.Background()

	// só o valor, negativo: nada muda
	_, err := s.AddFunds(ctx, p, AddFundsForm{Amount: "-1"})
	var errs form.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("AddFunds(-1) error = %v", err)
	}
	for _, want := range []struct{ field, code string }{
		{FieldAmount, CodeNotPositive},
		{card.FieldNumber, form.CodeRequired},
		{card.FieldExpiry, form.CodeRequired},
		{card.FieldCode, form.CodeRequired},
	} {
		if !errs.Has(want.field, want.code) {
			t.Errorf("missing %s/%s in %+v", want.field, want.code, errs)
		}
	}
	if got := store.balance(p.ClientID); got != 0 {
		t.Fatalf("balance after rejected deposit = %d, want 0", got)
	}

	balance, err := s.AddFunds(ctx, p, validFunds("1"))
	if err != nil {
		t.Fatalf("AddFunds(1) error = %v", err)
	}
	if balance != 100 || store.balance(p.ClientID) != 100 {
		t.Errorf("balance = %d, want 100 cents", balance)
	}
	if kinds := publ.kinds(); len(kinds) != 1 || kinds[0] != events.KindFundsAdded {
		t.Errorf("published = %v", kinds)
	}
}

func TestAddFundsRejectsBadCardWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(f *AddFundsForm)
		field string
		code  string
	}{
		{"zero amount", func(f *AddFundsForm) { f.Amount = "0" }, FieldAmount, CodeNotPositive},
		{"garbage amount", func(f *AddFundsForm) { f.Amount = "1e3" }, FieldAmount, form.CodeInvalid},
		{"bad checksum", func(f *AddFundsForm) { f.CardNumber = "4111-1111-1111-1110" }, card.FieldNumber, form.CodeInvalid},
		{"expired", func(f *AddFundsForm) { f.Expiry = "10/09" }, card.FieldExpiry, card.CodeDatePassed},
		{"bad code", func(f *AddFundsForm) { f.Code = "66666" }, card.FieldCode, form.CodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store, publ := newTestService(t)
			p := register(t, s, store)
			f := validFunds("50")
			tt.edit(&f)

			_, err := s.AddFunds(context.Background(), p, f)
			var errs form.Errors
			if !errors.As(err, &errs) || !errs.Has(tt.field, tt.code) {
				t.Fatalf("AddFunds() = %v, want %s/%s", err, tt.field, tt.code)
			}
			if store.balance(p.ClientID) != 0 || len(publ.kinds()) != 0 {
				t.Error("rejected deposit had side effects")
			}
		})
	}
}

func TestPlaceBet(t *testing.T) {
	s, store, publ := newTestService(t)
	p := register(t, s, store)
	stage := store.addStage("final")
	ctx := context.Background()

	// saldo abaixo de 100.00
	if _, err := s.AddFunds(ctx, p, validFunds("99.99")); err != nil {
		t.Fatal(err)
	}
	p = refresh(t, store, p)
	_, err := s.PlaceBet(ctx, p, stage.ID, BetForm{Amount: "10"})
	var errs form.Errors
	if !errors.As(err, &errs) || !errs.Has(FieldBalance, CodeMinBalance) {
		t.Fatalf("PlaceBet with low balance = %v", err)
	}

	if _, err := s.AddFunds(ctx, p, validFunds("0.01")); err != nil {
		t.Fatal(err)
	}
	p = refresh(t, store, p)

	// valor maior que o saldo
	_, err = s.PlaceBet(ctx, p, stage.ID, BetForm{Amount: "100.01"})
	if !errors.As(err, &errs) || !errs.Has(FieldBetAmount, CodeInsufficientFunds) {
		t.Fatalf("PlaceBet over balance = %v", err)
	}

	// valor não positivo
	_, err = s.PlaceBet(ctx, p, stage.ID, BetForm{Amount: "-5"})
	if !errors.As(err, &errs) || !errs.Has(FieldBetAmount, CodeNotPositive) {
		t.Fatalf("PlaceBet negative = %v", err)
	}

	balance, err := s.PlaceBet(ctx, p, stage.ID, BetForm{Amount: "40"})
	if err != nil {
		t.Fatalf("PlaceBet() error = %v", err)
	}
	if balance != 6000 {
		t.Errorf("balance = %d, want 6000", balance)
	}

	// repetir é idempotente
	p = refresh(t, store, p)
	if _, err := s.PlaceBet(ctx, p, stage.ID, BetForm{Amount: "40"}); !errors.Is(err, model.ErrAlreadyPlaced) {
		t.Errorf("second PlaceBet = %v, want ErrAlreadyPlaced", err)
	}
	if store.balance(p.ClientID) != 6000 {
		t.Error("repeated bet changed the balance")
	}

	prof, err := s.Profile(ctx, p)
	if err != nil || len(prof.Stages) != 1 || prof.Stages[0].ID != stage.ID {
		t.Errorf("Profile() = (%+v, %v)", prof, err)
	}

	kinds := publ.kinds()
	if len(kinds) != 3 || kinds[2] != events.KindBetPlaced {
		t.Errorf("published = %v", kinds)
	}
}

func TestPrepareBet(t *testing.T) {
	s, store, _ := newTestService(t)
	p := register(t, s, store)
	ctx := context.Background()

	for _, id := range []string{"", "not-a-uuid", "8f0c0a1e-5b7e-4d2a-9d1e-1b2c3d4e5f60"} {
		if _, err := s.PrepareBet(ctx, p, id); !errors.Is(err, model.ErrStageNotFound) {
			t.Errorf("PrepareBet(%q) = %v, want ErrStageNotFound", id, err)
		}
	}

	stage := store.addStage("semi")
	bc, err := s.PrepareBet(ctx, p, stage.ID)
	if err != nil || bc.Stage.ID != stage.ID {
		t.Errorf("PrepareBet() = (%+v, %v)", bc, err)
	}
}

// apostas concorrentes em etapas diferentes nunca deixam o saldo negativo
func TestConcurrentBetsKeepBalanceNonNegative(t *testing.T) {
	s, store, _ := newTestService(t)
	p := register(t, s, store)
	ctx := context.Background()
	if _, err := s.AddFunds(ctx, p, validFunds("300")); err != nil {
		t.Fatal(err)
	}
	p = refresh(t, store, p)

	const n = 10
	stages := make([]string, n)
	for i := range stages {
		stages[i] = store.addStage("stage").ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for _, id := range stages {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := s.PlaceBet(ctx, p, id, BetForm{Amount: "100"}); err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	// 300 -> 200 -> 100 -> 0; depois disso o saldo mínimo barra
	if placed != 3 {
		t.Errorf("placed = %d, want 3", placed)
	}
	if got := store.balance(p.ClientID); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

// a mesma aposta enviada em paralelo só é gravada uma vez
func TestConcurrentSameStageIsIdempotent(t *testing.T) {
	s, store, _ := newTestService(t)
	p := register(t, s, store)
	ctx := context.Background()
	if _, err := s.AddFunds(ctx, p, validFunds("1000")); err != nil {
		t.Fatal(err)
	}
	p = refresh(t, store, p)
	stage := store.addStage("final")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.PlaceBet(ctx, p, stage.ID, BetForm{Amount: "150"})
		}()
	}
	wg.Wait()

	if got := store.balance(p.ClientID); got != 85000 {
		t.Errorf("balance = %d, want 85000", got)
	}
}
