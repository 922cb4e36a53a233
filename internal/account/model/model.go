package model

import (
	"errors"
	"time"

	catalog "github.com/radieske/competitions-bet-platform/internal/catalog/model"
)

// Saldo mínimo (em centavos) para poder apostar
const MinBetBalanceCents int64 = 100_00

var (
	ErrUserNotFound        = errors.New("user with this username was not found")
	ErrWrongPassword       = errors.New("incorrect username or password")
	ErrUsernameTaken       = errors.New("a user with that username already exists")
	ErrInvalidToken        = errors.New("invalid token")
	ErrClientNotFound      = errors.New("client not found")
	ErrStageNotFound       = errors.New("stage not found")
	ErrAlreadyPlaced       = errors.New("bet already placed on this stage")
	ErrBalanceBelowMinimum = errors.New("balance below the minimum required to bet")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNegativeBalance     = errors.New("balance cannot be negative")
)

type User struct {
	ID           string    `json:"id"`
	Created      time.Time `json:"created"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsSuperuser  bool      `json:"is_superuser"`
}

// Client é o perfil de apostador de um usuário (1:1)
type Client struct {
	catalog.Audit
	UserID     string `json:"user_id"`
	MoneyCents int64  `json:"money_cents"`
	Token      string `json:"-"`
}

func (c *Client) Validate(now time.Time) error {
	if c.MoneyCents < 0 {
		return ErrNegativeBalance
	}
	return c.ValidateTimestamps(now)
}

// Principal é o usuário autenticado por token, com o cliente associado
type Principal struct {
	User
	ClientID   string `json:"client_id"`
	MoneyCents int64  `json:"money_cents"`
}

// StageClient registra a aposta de um cliente numa etapa
type StageClient struct {
	catalog.Audit
	StageID  string `json:"stage_id"`
	ClientID string `json:"client_id"`
	BetCents int64  `json:"bet_cents"`
}
