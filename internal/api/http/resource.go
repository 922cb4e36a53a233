package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/competitions-bet-platform/internal/catalog/model"
	"github.com/radieske/competitions-bet-platform/pkg/contracts/events"
)

// Store é o CRUD que cada recurso precisa; *repo.Table satisfaz
type Store[T any] interface {
	List(ctx context.Context, limit, offset int) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, v *T) error
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id string) error
}

// resource monta as rotas de um tipo do catálogo sobre um Store
type resource[T any, P interface {
	*T
	model.Record
}] struct {
	api   *API
	kind  string
	store Store[T]
}

func newResource[T any, P interface {
	*T
	model.Record
}](a *API, kind string, s Store[T]) *resource[T, P] {
	return &resource[T, P]{api: a, kind: kind, store: s}
}

func (res *resource[T, P]) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", res.list)
	r.Post("/", res.create)
	r.Get("/{id}", res.retrieve)
	r.Put("/{id}", res.replace)
	r.Patch("/{id}", res.partialUpdate)
	r.Delete("/{id}", res.destroy)
	return r
}

// list aceita ?limit= e ?offset= opcionais
func (res *resource[T, P]) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	items, err := res.store.List(r.Context(), limit, offset)
	if err != nil {
		res.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (res *resource[T, P]) retrieve(w http.ResponseWriter, r *http.Request) {
	v, err := res.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		res.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (res *resource[T, P]) create(w http.ResponseWriter, r *http.Request) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := res.store.Create(r.Context(), &v); err != nil {
		res.fail(w, err)
		return
	}
	id := P(&v).AuditInfo().ID
	res.api.notify(r.Context(), res.kind, id, events.ActionCreated)
	writeJSON(w, http.StatusCreated, v)
}

// carrier é implementado por tipos com campos que têm default no cadastro
// e que o PUT não deve zerar quando omitidos
type carrier[T any] interface {
	CarryOver(prev T)
}

// replace exige o registro completo; os campos ausentes voltam ao zero e são validados,
// exceto os que o tipo preserva via CarryOver
func (res *resource[T, P]) replace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prev, err := res.store.Get(r.Context(), id)
	if err != nil {
		res.fail(w, err)
		return
	}
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if c, ok := any(&v).(carrier[T]); ok {
		c.CarryOver(prev)
	}
	res.save(w, r, id, &v)
}

// partialUpdate aplica o corpo sobre o registro atual
func (res *resource[T, P]) partialUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := res.store.Get(r.Context(), id)
	if err != nil {
		res.fail(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	res.save(w, r, id, &v)
}

func (res *resource[T, P]) save(w http.ResponseWriter, r *http.Request, id string, v *T) {
	P(v).AuditInfo().ID = id
	if err := res.store.Update(r.Context(), v); err != nil {
		res.fail(w, err)
		return
	}
	res.api.notify(r.Context(), res.kind, id, events.ActionUpdated)
	writeJSON(w, http.StatusOK, v)
}

func (res *resource[T, P]) destroy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := res.store.Delete(r.Context(), id); err != nil {
		res.fail(w, err)
		return
	}
	res.api.notify(r.Context(), res.kind, id, events.ActionDeleted)
	w.WriteHeader(http.StatusNoContent)
}

// fail traduz erros de domínio: validação -> 400 por campo, inexistente -> 404
func (res *resource[T, P]) fail(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string][]string{verr.Field: {verr.Err.Error()}})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, model.ErrInvalidReference):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		res.api.Log.Error("catalog request failed", zap.String("kind", res.kind), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
