package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/repository"
)

// ErrMissingTemplate is returned when neither a stored nor a built-in
// template exists for the requested kind in any fallback language.
var ErrMissingTemplate = errors.New("no template for kind")

// RenderError reports a template that failed to execute against a
// customer, usually because a placeholder referenced a missing field.
type RenderError struct {
	Kind     model.EmailKind
	Language model.Language
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s/%s: %v", e.Kind, e.Language, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// TemplateStore is the slice of the template repository the renderer needs.
type TemplateStore interface {
	GetByKindAndLanguage(ctx context.Context, kind model.EmailKind, lang model.Language) (*model.EmailTemplate, error)
}

// Rendered is the final subject and body for one customer.
type Rendered struct {
	Subject  string
	HTMLBody string
	Language model.Language
}

// Renderer fills email templates with customer data. It has no side
// effects: same template and customer in, same text out.
type Renderer struct {
	store       TemplateStore
	defaultLang model.Language
	appName     string
}

// New creates a Renderer. defaultLang is the fallback when a customer's
// language has no template of the requested kind.
func New(store TemplateStore, defaultLang model.Language, appName string) *Renderer {
	return &Renderer{store: store, defaultLang: defaultLang, appName: appName}
}

// Render produces the final subject and HTML body for one customer.
//
// Lookup order, pinned to a single fallback hop: stored template for the
// customer's language, built-in for the customer's language, stored for
// the default language, built-in for the default language. Only when all
// four miss does it return ErrMissingTemplate.
func (r *Renderer) Render(ctx context.Context, kind model.EmailKind, c *model.Customer) (*Rendered, error) {
	tpl, lang, err := r.lookup(ctx, kind, c.Language)
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"Name":      c.Name,
		"Email":     c.Email,
		"DiveCount": c.DiveCount,
		"VisitDate": c.VisitDate.Format("02/01/2006"),
		"AppName":   r.appName,
	}

	subject, err := execute("subject", tpl.Subject, data)
	if err != nil {
		return nil, &RenderError{Kind: kind, Language: lang, Err: err}
	}
	body, err := execute("body", tpl.Body, data)
	if err != nil {
		return nil, &RenderError{Kind: kind, Language: lang, Err: err}
	}

	return &Rendered{Subject: subject, HTMLBody: body, Language: lang}, nil
}

func (r *Renderer) lookup(ctx context.Context, kind model.EmailKind, lang model.Language) (*model.EmailTemplate, model.Language, error) {
	languages := []model.Language{lang}
	if r.defaultLang != "" && r.defaultLang != lang {
		languages = append(languages, r.defaultLang)
	}

	for _, l := range languages {
		if r.store != nil {
			tpl, err := r.store.GetByKindAndLanguage(ctx, kind, l)
			if err == nil {
				return tpl, l, nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, l, fmt.Errorf("template lookup: %w", err)
			}
		}
		if tpl, ok := builtin(kind, l); ok {
			return tpl, l, nil
		}
	}

	return nil, lang, fmt.Errorf("%w: %s (language %s, default %s)", ErrMissingTemplate, kind, lang, r.defaultLang)
}

func execute(name, src string, data map[string]interface{}) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
