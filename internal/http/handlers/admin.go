package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/logx"
)

// AdminHandler serves the operational endpoints.
type AdminHandler struct {
	dispatch    dispatchUsecase
	maintenance maintenanceUsecase
	logger      logx.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(logger logx.Logger, dispatch dispatchUsecase, maintenance maintenanceUsecase) *AdminHandler {
	return &AdminHandler{dispatch: dispatch, maintenance: maintenance, logger: logger}
}

// Health handles GET /admin/health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap, err := h.maintenance.Health(r.Context())
	if err != nil {
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, healthToDTO(snap))
}

// Sweep handles POST /admin/sweep: one synchronous maintenance pass.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	h.maintenance.RunOnce(r.Context())
	writeJSON(h.logger, w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Dispatch handles POST /admin/dispatch/{orderID}. The optional wave query
// parameter picks the starting wave, default 1.
func (h *AdminHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	wave := 1
	if s := r.URL.Query().Get("wave"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid wave")
			return
		}
		wave = v
	}

	err := h.dispatch.Dispatch(r.Context(), orderID, wave)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusAccepted, map[string]string{"status": "dispatched"})
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "order not found")
	case errors.Is(err, apperr.ErrConflict):
		h.conflictPlain(w, r, err)
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *AdminHandler) conflictPlain(w http.ResponseWriter, r *http.Request, err error) {
	if reason, ok := apperr.ReasonOf(err); ok {
		writeConflict(h.logger, w, r, string(reason))
		return
	}
	writeError(h.logger, w, r, http.StatusConflict, "conflict")
}
