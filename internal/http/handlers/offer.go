package handlers

import (
	"errors"
	"net/http"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/logx"
)

// OfferHandler serves the driver responses to assignment offers.
type OfferHandler struct {
	usecase offerUsecase
	logger  logx.Logger
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(logger logx.Logger, uc offerUsecase) *OfferHandler {
	return &OfferHandler{usecase: uc, logger: logger}
}

// Accept handles POST /offers/{id}/accept. The driver is taken from the
// X-Driver-ID header set by the gateway.
func (h *OfferHandler) Accept(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid offer id")
		return
	}
	driverID, ok := driverFromHeader(r)
	if !ok {
		writeError(h.logger, w, r, http.StatusBadRequest, "missing driver id")
		return
	}

	res, err := h.usecase.Accept(r.Context(), assignmentID, driverID)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, assignmentToDTO(res.Assignment))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "offer not found")
	case errors.Is(err, apperr.ErrConflict):
		h.conflict(w, r, err)
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Decline handles POST /offers/{id}/decline.
func (h *OfferHandler) Decline(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid offer id")
		return
	}
	driverID, ok := driverFromHeader(r)
	if !ok {
		writeError(h.logger, w, r, http.StatusBadRequest, "missing driver id")
		return
	}
	var req declineRequest
	if r.ContentLength > 0 {
		if ok := decodeJSON(h.logger, w, r, &req); !ok {
			return
		}
	}

	a, err := h.usecase.Decline(r.Context(), assignmentID, driverID, req.Reason)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, assignmentToDTO(*a))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "offer not found")
	case errors.Is(err, apperr.ErrConflict):
		h.conflict(w, r, err)
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *OfferHandler) conflict(w http.ResponseWriter, r *http.Request, err error) {
	reason, ok := apperr.ReasonOf(err)
	if !ok {
		writeError(h.logger, w, r, http.StatusConflict, "conflict")
		return
	}
	writeConflict(h.logger, w, r, string(reason))
}
