package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/cautela/internal/export"
	"github.com/erazemk/cautela/internal/summary"
	"github.com/erazemk/cautela/internal/views"
)

// MovementsHandler serves the read-side views of the operator's unit.
type MovementsHandler struct {
	Now        func() time.Time
	Summarizer summary.Summarizer
}

type listResponse struct {
	Entries []views.Entry `json:"entries"`
	Summary views.Summary `json:"summary"`
}

// Pending handles GET /api/movements/pending.
func (h *MovementsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	records := GetUnit(r.Context()).Store.Snapshot()
	now := h.Now()
	jsonResponse(w, http.StatusOK, listResponse{
		Entries: views.Pending(records, r.URL.Query().Get("q"), now),
		Summary: views.Summarize(records, now),
	})
}

// History handles GET /api/movements.
func (h *MovementsHandler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := views.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := GetUnit(r.Context()).Store.Snapshot()
	now := h.Now()
	jsonResponse(w, http.StatusOK, listResponse{
		Entries: views.History(records, filter, r.URL.Query().Get("q"), now),
		Summary: views.Summarize(records, now),
	})
}

// Overdue handles GET /api/movements/overdue.
func (h *MovementsHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, views.Overdue(GetUnit(r.Context()).Store.Snapshot(), h.Now()))
}

// Get handles GET /api/movements/{id}.
func (h *MovementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := GetUnit(r.Context()).Store.Get(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "movement not found")
		return
	}
	jsonResponse(w, http.StatusOK, m)
}

// Summary handles GET /api/summary. The text is best effort and the call
// never fails.
func (h *MovementsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	text := h.Summarizer.Summarize(r.Context(), GetUnit(r.Context()).Store.Snapshot())
	jsonResponse(w, http.StatusOK, map[string]string{"summary": text})
}

// Export handles GET /api/export.xlsx.
func (h *MovementsHandler) Export(w http.ResponseWriter, r *http.Request) {
	unit := GetUnit(r.Context())
	name := fmt.Sprintf("cautelas-%s-%s.xlsx", unit.ID(), h.Now().Format("20060102"))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.WriteXLSX(w, unit.Store.Snapshot()); err != nil {
		slog.Error("export failed", "unit", unit.ID(), "error", err)
	}
}
