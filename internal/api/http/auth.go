package httpapi

import (
	"net/http"

	"github.com/radieske/competitions-bet-platform/internal/account/auth"
)

// authenticate exige um token válido em toda rota da API
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := auth.BearerToken(r)
		if tok == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication credentials were not provided"})
			return
		}
		p, err := a.Auth.Authenticate(r.Context(), tok)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// Allowed: leitura e PATCH para qualquer autenticado; POST, PUT e DELETE só para superusuário
func Allowed(method string, superuser bool) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPatch:
		return true
	}
	return superuser
}

func permit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication credentials were not provided"})
			return
		}
		if !Allowed(r.Method, p.IsSuperuser) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "you do not have permission to perform this action"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
