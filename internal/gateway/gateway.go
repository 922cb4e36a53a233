// Package gateway encaminha /api/ para o api-service e o resto para o site-service.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

func proxy(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil {
		return nil, fmt.Errorf("parse upstream %q: %w", to, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute URL", to)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// New monta o roteamento do gateway; o caminho original é preservado
func New(log *zap.Logger, apiURL, siteURL string) (http.Handler, error) {
	api, err := proxy(apiURL)
	if err != nil {
		return nil, err
	}
	site, err := proxy(siteURL)
	if err != nil {
		return nil, err
	}
	onErr := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream failed", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}
	api.ErrorHandler, site.ErrorHandler = onErr, onErr

	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.Handle("/", site)
	return WithCORS(mux), nil
}

// WithCORS libera chamadas do navegador com token no header
func WithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", strings.Join([]string{
			http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPost,
			http.MethodPut, http.MethodPatch, http.MethodDelete,
		}, ", "))
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
