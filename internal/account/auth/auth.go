// Package auth carrega o usuário autenticado no contexto da requisição.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/radieske/competitions-bet-platform/internal/account/model"
)

// CookieName é o cookie gravado no login do site
const CookieName = "token"

// Authenticator resolve um token para o usuário dono dele
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(model.Principal)
	return p, ok
}

// BearerToken lê "Authorization: Bearer <token>"; aceita também o esquema "Token"
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// RequestToken tenta o header e depois o cookie
func RequestToken(r *http.Request) string {
	if tok := BearerToken(r); tok != "" {
		return tok
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
