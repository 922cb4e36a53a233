package sitehttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/radieske/competitions-bet-platform/internal/account/auth"
	"github.com/radieske/competitions-bet-platform/internal/account/model"
	"github.com/radieske/competitions-bet-platform/internal/account/service"
	"github.com/radieske/competitions-bet-platform/internal/shared/form"
)

// formErrors é o corpo 400 das páginas com formulário
type formErrors struct {
	Errors map[string][]form.FieldError `json:"errors"`
}

func writeFormErrors(w http.ResponseWriter, errs form.Errors) {
	writeJSON(w, http.StatusBadRequest, formErrors{Errors: errs.ByField()})
}

// decode aceita JSON ou formulário urlencoded, como um navegador enviaria
func decode(r *http.Request, dst any) error {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return err
		}
		return fromValues(r.PostForm, dst)
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// fromValues passa os campos do formulário pelo mesmo caminho do JSON
func fromValues(vals url.Values, dst any) error {
	m := make(map[string]string, len(vals))
	for k := range vals {
		m[k] = vals.Get(k)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func badBody(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
}

// handleFormErr responde 400 para erros de formulário; devolve false para os demais
func handleFormErr(w http.ResponseWriter, err error) bool {
	var errs form.Errors
	if errors.As(err, &errs) {
		writeFormErrors(w, errs)
		return true
	}
	return false
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"fields": {"username", "first_name", "last_name", "email", "password1", "password2"},
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var f service.RegisterForm
	if err := decode(r, &f); err != nil {
		badBody(w)
		return
	}
	u, err := s.Accounts.Register(r.Context(), f)
	if err != nil {
		if !handleFormErr(w, err) {
			s.internalError(w, "register failed", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"fields": {"username", "password"}})
}

type loginResponse struct {
	Token string `json:"token"`
	Next  string `json:"next"`
}

// login grava o token em cookie e manda para o perfil (ou para ?next=)
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var f service.LoginForm
	if err := decode(r, &f); err != nil {
		badBody(w)
		return
	}
	token, _, err := s.Accounts.Login(r.Context(), f)
	switch {
	case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrWrongPassword):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
		return
	case err != nil:
		if !handleFormErr(w, err) {
			s.internalError(w, "login failed", err)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	next := safeNext(r.URL.Query().Get("next"))
	w.Header().Set("Location", next)
	writeJSON(w, http.StatusSeeOther, loginResponse{Token: token, Next: next})
}

// safeNext só aceita caminhos locais
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return PathProfile
	}
	return next
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.Accounts.Logout(r.Context(), principal(r)); err != nil {
		s.internalError(w, "logout failed", err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.Accounts.Profile(r.Context(), principal(r))
	if err != nil {
		s.internalError(w, "load profile failed", err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

// addFunds é o POST do perfil: credita e devolve o perfil atualizado
func (s *Server) addFunds(w http.ResponseWriter, r *http.Request) {
	var f service.AddFundsForm
	if err := decode(r, &f); err != nil {
		badBody(w)
		return
	}
	p := principal(r)
	balance, err := s.Accounts.AddFunds(r.Context(), p, f)
	if err != nil {
		if !handleFormErr(w, err) {
			s.internalError(w, "add funds failed", err)
		}
		return
	}
	p.MoneyCents = balance
	prof, err := s.Accounts.Profile(r.Context(), p)
	if err != nil {
		s.internalError(w, "load profile failed", err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

// betRedirect trata etapa inexistente e aposta repetida
func betRedirect(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, model.ErrStageNotFound):
		http.Redirect(w, r, PathStages, http.StatusFound)
	case errors.Is(err, model.ErrAlreadyPlaced):
		http.Redirect(w, r, PathProfile, http.StatusFound)
	default:
		return false
	}
	return true
}

func (s *Server) betForm(w http.ResponseWriter, r *http.Request) {
	bc, err := s.Accounts.PrepareBet(r.Context(), principal(r), r.URL.Query().Get("id"))
	if err != nil {
		if !betRedirect(w, r, err) {
			s.internalError(w, "prepare bet failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, bc)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var f service.BetForm
	if err := decode(r, &f); err != nil {
		badBody(w)
		return
	}
	_, err := s.Accounts.PlaceBet(r.Context(), principal(r), r.URL.Query().Get("id"), f)
	if err != nil {
		if betRedirect(w, r, err) || handleFormErr(w, err) {
			return
		}
		s.internalError(w, "place bet failed", err)
		return
	}
	http.Redirect(w, r, PathProfile, http.StatusSeeOther)
}
