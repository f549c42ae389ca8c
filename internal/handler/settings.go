package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// vatRateKey stores the default VAT rate applied to new customer records.
const vatRateKey = "settings:vat_rate"

// defaultVATRate is the Portuguese standard rate.
const defaultVATRate = 0.22

// GetVATRate returns the configured default VAT rate
func (h *Handler) GetVATRate(w http.ResponseWriter, r *http.Request) {
	rate := defaultVATRate
	val, err := h.rdb.GetString(r.Context(), vatRateKey)
	if err != nil && !errors.Is(err, redis.Nil) {
		h.log.Error().Err(err).Msg("vat rate lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load VAT rate")
		return
	}
	if val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			rate = parsed
		}
	}
	writeJSON(w, http.StatusOK, map[string]float64{"vatRate": rate})
}

// VATRateRequest represents a VAT rate change
type VATRateRequest struct {
	VATRate float64 `json:"vatRate"`
}

// SetVATRate updates the default VAT rate applied to new customer records
func (h *Handler) SetVATRate(w http.ResponseWriter, r *http.Request) {
	var req VATRateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.VATRate < 0 || req.VATRate > 1 {
		writeError(w, http.StatusBadRequest, "validation_error", "VAT rate must be between 0 and 1")
		return
	}

	val := strconv.FormatFloat(req.VATRate, 'f', -1, 64)
	if err := h.rdb.SetWithTTL(r.Context(), vatRateKey, val, 0); err != nil {
		h.log.Error().Err(err).Msg("vat rate update failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update VAT rate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"vatRate": req.VATRate})
}
