package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/cautela/internal/notify"
	"github.com/erazemk/cautela/internal/remote"
	"github.com/erazemk/cautela/internal/session"
	"github.com/erazemk/cautela/internal/store"
	"github.com/erazemk/cautela/internal/syncer"
)

// SyncHandler exposes the sync indicator, manual sync and endpoint setup.
type SyncHandler struct {
	DB    *sql.DB
	Units *session.Manager
}

type syncResponse struct {
	Status   syncer.Status    `json:"status"`
	Endpoint bool             `json:"endpoint_configured"`
	Warnings []notify.Warning `json:"notification_warnings"`
	Error    string           `json:"error,omitempty"`
}

func statusOf(u *session.Unit) syncResponse {
	warnings := u.Dispatcher.Warnings()
	if warnings == nil {
		warnings = []notify.Warning{}
	}
	return syncResponse{
		Status:   u.Sync.Status(),
		Endpoint: u.Remote.Endpoint() != "",
		Warnings: warnings,
	}
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, statusOf(GetUnit(r.Context())))
}

// Sync handles POST /api/sync.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	unit := GetUnit(r.Context())
	err := unit.Sync.Fetch(r.Context(), syncer.ModeManual)

	resp := statusOf(unit)
	if err != nil {
		resp.Error = err.Error()
		jsonResponse(w, http.StatusBadGateway, resp)
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

type endpointRequest struct {
	Endpoint string `json:"endpoint"`
	PIN      string `json:"pin"`
}

// SetEndpoint handles PUT /api/config/endpoint. The endpoint is saved even
// when the test sync fails; the response carries the sync error.
func (h *SyncHandler) SetEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := store.VerifyAdminPIN(r.Context(), h.DB, req.PIN)
	if err != nil {
		slog.Error("verifying admin pin", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	unit := GetUnit(r.Context())
	if !ok {
		slog.Warn("endpoint change refused", "unit", unit.ID(), "remote", r.RemoteAddr)
		jsonError(w, http.StatusForbidden, "invalid admin pin")
		return
	}

	err = unit.ConfigureEndpoint(r.Context(), req.Endpoint)
	if err != nil && !errors.Is(err, remote.ErrUnavailable) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := statusOf(unit)
	if err != nil {
		resp.Error = err.Error()
	}
	jsonResponse(w, http.StatusOK, resp)
}
