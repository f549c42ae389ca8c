package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/divecrm/divecrm/internal/middleware"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/repository"
)

// visitDateLayout is the wire format for visit dates
const visitDateLayout = "2006-01-02"

// CustomerRequest represents a create or update customer request
type CustomerRequest struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	DiveCount     int     `json:"diveCount"`
	VisitDate     string  `json:"visitDate"`
	Language      string  `json:"language"`
	InvoiceAmount float64 `json:"invoiceAmount"`
	Discount      float64 `json:"discount"`
	VATRate       float64 `json:"vatRate"`
}

func (req *CustomerRequest) validate() (time.Time, model.Language, error) {
	if req.Name == "" {
		return time.Time{}, "", errors.New("name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return time.Time{}, "", errors.New("a valid email address is required")
	}
	visitDate, err := time.Parse(visitDateLayout, req.VisitDate)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("visitDate must be in %s format", visitDateLayout)
	}
	lang := model.Language(req.Language)
	if req.Language == "" {
		lang = model.LanguagePT
	}
	if !lang.IsSupported() {
		return time.Time{}, "", fmt.Errorf("unsupported language %q", req.Language)
	}
	if req.InvoiceAmount < 0 || req.Discount < 0 || req.VATRate < 0 {
		return time.Time{}, "", errors.New("amounts must not be negative")
	}
	return visitDate, lang, nil
}

// CreateCustomer registers a new customer
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	visitDate, lang, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	exists, err := h.customers.ExistsByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Error().Err(err).Msg("customer lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create customer")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "email_exists", "A customer with this email already exists")
		return
	}

	now := time.Now().UTC()
	c := &model.Customer{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Email:         req.Email,
		DiveCount:     req.DiveCount,
		VisitDate:     visitDate,
		Language:      lang,
		InvoiceAmount: req.InvoiceAmount,
		Discount:      req.Discount,
		VATRate:       req.VATRate,
		AddedBy:       middleware.GetUsername(r.Context()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.customers.Create(r.Context(), c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email_exists", "A customer with this email already exists")
			return
		}
		h.log.Error().Err(err).Msg("customer create failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create customer")
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// ListCustomers returns every customer record
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("customer list failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list customers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"customers": customers})
}

// GetCustomer returns one customer by id
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupCustomer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateCustomer replaces a customer's editable fields
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupCustomer(w, r)
	if !ok {
		return
	}

	var req CustomerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	visitDate, lang, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	c.Name = req.Name
	c.Email = req.Email
	c.DiveCount = req.DiveCount
	c.VisitDate = visitDate
	c.Language = lang
	c.InvoiceAmount = req.InvoiceAmount
	c.Discount = req.Discount
	c.VATRate = req.VATRate
	c.UpdatedAt = time.Now().UTC()

	if err := h.customers.Update(r.Context(), c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email_exists", "A customer with this email already exists")
			return
		}
		h.log.Error().Err(err).Msg("customer update failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update customer")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// DeleteCustomer removes a customer record
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.customers.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer_not_found", "Customer not found")
			return
		}
		h.log.Error().Err(err).Msg("customer delete failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete customer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Customer deleted"})
}

// FeedbackRequest represents a customer feedback submission
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// SaveFeedback stores feedback a customer submitted through the link in
// their follow-up email. This endpoint is public.
func (h *Handler) SaveFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := readJSON(r, &req); err != nil || req.Feedback == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Feedback text is required")
		return
	}

	id := r.PathValue("id")
	if err := h.customers.SaveFeedback(r.Context(), id, req.Feedback, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer_not_found", "Customer not found")
			return
		}
		h.log.Error().Err(err).Msg("feedback save failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save feedback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Thank you for your feedback"})
}

// ListDeliveries returns a customer's email delivery history
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	records, err := h.deliveries.ListByCustomer(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("delivery list failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list deliveries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": records})
}

// ExportCustomers streams every customer as a CSV download
func (h *Handler) ExportCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("customer export failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to export customers")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="customers.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"Added By", "Name", "Email", "Dives", "Visit Date", "Language",
		"First Email", "Second Email", "Manual Email",
		"Amount", "Amount w/ VAT", "VAT", "Discount",
	})
	for _, c := range customers {
		cw.Write([]string{
			c.AddedBy,
			c.Name,
			c.Email,
			strconv.Itoa(c.DiveCount),
			c.VisitDate.Format(visitDateLayout),
			string(c.Language),
			yesNo(c.Sent(model.KindFirstFollowUp)),
			yesNo(c.Sent(model.KindSecondFollowUp)),
			yesNo(c.Sent(model.KindManual)),
			formatAmount(c.InvoiceAmount),
			formatAmount(c.InvoiceTotal()),
			formatAmount(c.InvoiceTotal() - c.InvoiceAmount),
			formatAmount(c.Discount),
		})
	}
	cw.Flush()
}

func (h *Handler) lookupCustomer(w http.ResponseWriter, r *http.Request) (*model.Customer, bool) {
	id := r.PathValue("id")
	c, err := h.customers.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer_not_found", "Customer not found")
			return nil, false
		}
		h.log.Error().Err(err).Msg("customer lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load customer")
		return nil, false
	}
	return c, true
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
