// Package http serves a read-only JSON view of vaults and accounts for
// explorers and monitoring. Mutations are only available over gRPC.
package http

import (
	"net/http"

	"github.com/dmitrijs2005/alarmlock/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// logFields tags every log record of a request with its id.
func logFields(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithFields(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logFields)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/owners/{owner}/addresses", h.deriveAddresses)
		r.Get("/vaults/{address}", h.getVault)
		r.Get("/vaults/{address}/events", h.listEvents)
		r.Get("/accounts/{address}", h.getBalance)
	})
	return r
}
