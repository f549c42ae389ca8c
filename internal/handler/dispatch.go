package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/divecrm/divecrm/internal/renderer"
	"github.com/divecrm/divecrm/internal/service"
)

// SendManual sends the manual follow-up email to one customer
func (h *Handler) SendManual(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.dispatchSvc.SendManual(r.Context(), id, time.Now().UTC())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Email sent"})
	case errors.Is(err, service.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer_not_found", "Customer not found")
	case errors.Is(err, service.ErrAlreadySent):
		writeError(w, http.StatusConflict, "already_sent", "This customer already received the manual email")
	case errors.Is(err, renderer.ErrMissingTemplate):
		writeError(w, http.StatusUnprocessableEntity, "template_not_found", "No template available for this customer's language")
	default:
		h.log.Error().Err(err).Str("customer_id", id).Msg("manual send failed")
		writeError(w, http.StatusBadGateway, "delivery_failed", "The email could not be delivered")
	}
}

// SendManualToAll sends the manual follow-up to every customer that has
// not received one yet
func (h *Handler) SendManualToAll(w http.ResponseWriter, r *http.Request) {
	sent, failed, err := h.dispatchSvc.SendManualToAll(r.Context(), time.Now().UTC())
	if err != nil {
		h.log.Error().Err(err).Msg("send-all failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to send emails")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent, "failed": failed})
}

// MarketingRequest represents an ad-hoc bulk email request
type MarketingRequest struct {
	Subject          string   `json:"subject"`
	Body             string   `json:"body"`
	Recipients       []string `json:"recipients"`
	IncludeCustomers bool     `json:"includeCustomers"`
}

// SendMarketing sends one message to an explicit recipient list, optionally
// including every customer
func (h *Handler) SendMarketing(w http.ResponseWriter, r *http.Request) {
	var req MarketingRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.Subject == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Subject and body are required")
		return
	}
	if len(req.Recipients) == 0 && !req.IncludeCustomers {
		writeError(w, http.StatusBadRequest, "validation_error", "At least one recipient is required")
		return
	}

	sent, failed, err := h.dispatchSvc.SendMarketing(r.Context(), req.Subject, req.Body, req.Recipients, req.IncludeCustomers)
	if err != nil {
		h.log.Error().Err(err).Msg("marketing send failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to send emails")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sent": sent, "failed": failed})
}

// RunTick runs one scheduler pass immediately. Useful for verifying the
// follow-up pipeline without waiting for the next interval.
func (h *Handler) RunTick(w http.ResponseWriter, r *http.Request) {
	res := h.ticker.RunTick(r.Context(), time.Now().UTC())
	writeJSON(w, http.StatusOK, res)
}
