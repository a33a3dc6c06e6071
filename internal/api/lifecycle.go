package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/cautela/internal/imaging"
	"github.com/erazemk/cautela/internal/lifecycle"
	"github.com/erazemk/cautela/internal/model"
)

// LifecycleHandler handles checkouts and returns.
type LifecycleHandler struct{}

type checkoutRequest struct {
	Borrower model.Person             `json:"borrower"`
	Items    []lifecycle.CheckoutItem `json:"items"`
}

// Checkout handles POST /api/checkout. The logged in operator is the duty
// officer.
func (h *LifecycleHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for i := range req.Items {
		img, err := imaging.NormalizeDataURL(req.Items[i].Image)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Items[i].Image = img
	}

	unit := GetUnit(r.Context())
	res, err := unit.Lifecycle.Checkout(r.Context(), lifecycle.CheckoutRequest{
		Borrower:    req.Borrower,
		DutyOfficer: GetClaims(r.Context()).Operator(),
		Items:       req.Items,
	})
	if err != nil {
		transitionError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

type returnRequest struct {
	IDs          []string `json:"ids"`
	Observations string   `json:"observations"`
}

// Return handles POST /api/return. The logged in operator is the receiver.
func (h *LifecycleHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := GetUnit(r.Context()).Lifecycle.Return(r.Context(), lifecycle.ReturnRequest{
		IDs:          req.IDs,
		Receiver:     GetClaims(r.Context()).Operator(),
		Observations: req.Observations,
	})
	if err != nil {
		transitionError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func transitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrPrecondition):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrNotReady):
		jsonError(w, http.StatusConflict, "movements not loaded yet, sync first")
	default:
		slog.Error("transition failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
