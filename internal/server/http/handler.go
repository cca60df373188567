package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/api"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/logging"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/dmitrijs2005/alarmlock/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type vaultReader interface {
	Program() address.Address
	DeriveAddresses(owner address.Address) address.Pair
	GetVault(ctx context.Context, addr address.Address) (*services.VaultState, error)
	GetBalance(ctx context.Context, addr address.Address) (uint64, error)
	History(ctx context.Context, addr address.Address) ([]models.Event, error)
}

type Handler struct {
	vaults vaultReader
	logger logging.Logger
}

func NewHandler(vaults vaultReader, logger logging.Logger) *Handler {
	return &Handler{vaults: vaults, logger: logger}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, name := http.StatusInternalServerError, "InternalError"
	switch {
	case errors.Is(err, address.ErrInvalidAddress):
		status, name = http.StatusBadRequest, "InvalidAddress"
	case errors.Is(err, common.ErrRecordNotFound):
		status, name = http.StatusNotFound, common.Name(err)
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: name, RequestID: middleware.GetReqID(r.Context())})
}

func toVault(st *services.VaultState) api.Vault {
	v := st.Vault
	return api.Vault{
		Address:     v.Address.String(),
		Owner:       v.Owner.String(),
		Holding:     v.Holding.String(),
		UnlockTime:  v.UnlockTime,
		Initialized: v.Initialized,
		Deposit:     v.Deposit,
		LifecycleID: v.LifecycleID,
		Balance:     st.Balance,
		Unlockable:  st.Unlockable,
	}
}

func toEvents(history []models.Event) []api.Event {
	out := make([]api.Event, 0, len(history))
	for _, e := range history {
		out = append(out, api.Event{
			ID:          e.ID,
			Seq:         e.Seq,
			Kind:        string(e.Kind),
			Vault:       e.Vault.String(),
			LifecycleID: e.LifecycleID,
			Owner:       e.Owner.String(),
			Amount:      e.Amount,
			UnlockTime:  e.UnlockTime,
			Timestamp:   e.Timestamp,
		})
	}
	return out
}

func (h *Handler) deriveAddresses(w http.ResponseWriter, r *http.Request) {
	owner, err := address.Parse(chi.URLParam(r, "owner"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pair := h.vaults.DeriveAddresses(owner)
	writeJSON(w, http.StatusOK, api.DeriveAddressesResponse{
		Program: h.vaults.Program().String(),
		Vault:   pair.Vault.String(),
		Holding: pair.Holding.String(),
	})
}

func (h *Handler) getVault(w http.ResponseWriter, r *http.Request) {
	addr, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.vaults.GetVault(r.Context(), addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVault(st))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	addr, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	history, err := h.vaults.History(r.Context(), addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvents(history))
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := address.Parse(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	balance, err := h.vaults.GetBalance(r.Context(), addr)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.BalanceResponse{Address: addr.String(), Balance: balance})
}
