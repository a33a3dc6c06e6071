package api

import (
	"net/http"

	"github.com/erazemk/cautela/internal/config"
	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/session"
)

// UnitsHandler lists the units an operator can log in to.
type UnitsHandler struct {
	Units *session.Manager
}

type unitResponse struct {
	config.Unit
	Configured bool `json:"configured"`
}

// List handles GET /api/units.
func (h *UnitsHandler) List(w http.ResponseWriter, r *http.Request) {
	units := h.Units.Units()
	out := make([]unitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, unitResponse{Unit: u.Config, Configured: u.Remote.Endpoint() != ""})
	}
	jsonResponse(w, http.StatusOK, out)
}

// Reference handles GET /api/reference: the pick lists of the forms.
func (h *UnitsHandler) Reference(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"ranks":          model.Ranks,
		"material_types": model.MaterialTypes,
	})
}
