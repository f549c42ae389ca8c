package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/divecrm/divecrm/internal/middleware"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/renderer"
	"github.com/divecrm/divecrm/internal/repository"
)

// ListTemplates returns every stored template override
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("template list failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list templates")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

// GetTemplate returns one stored template override
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	kind, lang, ok := templateParams(w, r)
	if !ok {
		return
	}

	t, err := h.templates.GetByKindAndLanguage(r.Context(), kind, lang)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template_not_found", "No stored template for this kind and language")
			return
		}
		h.log.Error().Err(err).Msg("template lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load template")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// TemplateRequest represents a template override submission
type TemplateRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// PutTemplate creates or replaces a template override for one kind and language
func (h *Handler) PutTemplate(w http.ResponseWriter, r *http.Request) {
	kind, lang, ok := templateParams(w, r)
	if !ok {
		return
	}

	var req TemplateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.Subject == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Subject and body are required")
		return
	}

	now := time.Now().UTC()
	t := &model.EmailTemplate{
		ID:        uuid.New().String(),
		Kind:      kind,
		Language:  lang,
		Subject:   req.Subject,
		Body:      req.Body,
		UpdatedBy: middleware.GetUsername(r.Context()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.templates.Upsert(r.Context(), t); err != nil {
		h.log.Error().Err(err).Msg("template upsert failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save template")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTemplate removes one stored override, restoring the built-in
// template for that kind and language
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	kind, lang, ok := templateParams(w, r)
	if !ok {
		return
	}

	if err := h.templates.Delete(r.Context(), kind, lang); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template_not_found", "No stored template for this kind and language")
			return
		}
		h.log.Error().Err(err).Msg("template delete failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete template")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Template restored to default"})
}

// ResetTemplates deletes every stored override for one kind, falling back
// to the built-in templates
func (h *Handler) ResetTemplates(w http.ResponseWriter, r *http.Request) {
	kind := model.EmailKind(r.PathValue("kind"))
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, "validation_error", "Unknown email kind")
		return
	}

	if err := h.templates.DeleteByKind(r.Context(), kind); err != nil {
		h.log.Error().Err(err).Msg("template reset failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to reset templates")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Templates reset to defaults"})
}

// PreviewResponse represents a rendered email preview
type PreviewResponse struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Language string `json:"language"`
}

// PreviewEmail renders the email that would be sent to one customer,
// without sending it
func (h *Handler) PreviewEmail(w http.ResponseWriter, r *http.Request) {
	kind := model.EmailKind(r.PathValue("kind"))
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, "validation_error", "Unknown email kind")
		return
	}

	c, ok := h.lookupCustomer(w, r)
	if !ok {
		return
	}

	rendered, err := h.previewer.Render(r.Context(), kind, c)
	if err != nil {
		if errors.Is(err, renderer.ErrMissingTemplate) {
			writeError(w, http.StatusNotFound, "template_not_found", "No template available for this customer's language")
			return
		}
		h.log.Error().Err(err).Msg("preview render failed")
		writeError(w, http.StatusInternalServerError, "render_error", "Failed to render email")
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		Subject:  rendered.Subject,
		Body:     rendered.HTMLBody,
		Language: string(rendered.Language),
	})
}

func templateParams(w http.ResponseWriter, r *http.Request) (model.EmailKind, model.Language, bool) {
	kind := model.EmailKind(r.PathValue("kind"))
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, "validation_error", "Unknown email kind")
		return "", "", false
	}
	lang := model.Language(r.PathValue("lang"))
	if !lang.IsSupported() {
		writeError(w, http.StatusBadRequest, "validation_error", "Unsupported language")
		return "", "", false
	}
	return kind, lang, true
}
