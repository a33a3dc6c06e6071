package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/cautela/internal/auth"
	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/session"
	"github.com/erazemk/cautela/internal/store"
)

// AuthHandler handles operator login and logout.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	Units     *session.Manager
}

type loginRequest struct {
	Unit model.UnitID `json:"unit"`
	Rank string       `json:"rank"`
	Name string       `json:"name"`
	BM   string       `json:"bm"`
}

type loginResponse struct {
	Token    string       `json:"token"`
	Unit     model.UnitID `json:"unit"`
	Operator model.Person `json:"operator"`
}

// Login handles POST /api/auth/login. There are no passwords: the operator
// identifies themselves and becomes the unit's duty officer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	unit, err := h.Units.Unit(req.Unit)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "unknown unit")
		return
	}

	operator := model.NewPerson(req.Rank, req.Name, req.BM)
	if !operator.Complete() {
		jsonError(w, http.StatusBadRequest, "rank, name and bm required")
		return
	}
	if !model.ValidRank(operator.Rank) {
		jsonError(w, http.StatusBadRequest, "unknown rank")
		return
	}

	if err := unit.SetOperator(r.Context(), operator); err != nil {
		slog.Error("login failed", "unit", req.Unit, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, unit.ID(), operator)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	jsonResponse(w, http.StatusOK, loginResponse{Token: token, Unit: unit.ID(), Operator: operator})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.Unit, claims.ExpiresAt.Time); err != nil {
		slog.Error("revoking token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	unit := GetUnit(r.Context())
	if current, ok := unit.Operator(r.Context()); ok && current.BM == claims.BM {
		if err := unit.ClearOperator(r.Context()); err != nil {
			slog.Warn("clearing operator", "unit", unit.ID(), "error", err)
		}
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	jsonResponse(w, http.StatusOK, loginResponse{Unit: claims.Unit, Operator: claims.Operator()})
}
