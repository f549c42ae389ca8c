package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/model"
)

// TemplateRepository handles email template persistence
type TemplateRepository struct {
	db *database.Postgres
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *database.Postgres) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Upsert inserts a template or replaces the existing one for (kind, language)
func (r *TemplateRepository) Upsert(ctx context.Context, t *model.EmailTemplate) error {
	query := `
		INSERT INTO email_templates (id, kind, language, subject, body, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (kind, language)
		DO UPDATE SET subject = EXCLUDED.subject,
		              body = EXCLUDED.body,
		              updated_by = EXCLUDED.updated_by,
		              updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Kind, t.Language, t.Subject, t.Body, t.UpdatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

// GetByKindAndLanguage retrieves the template for an exact (kind, language) pair
func (r *TemplateRepository) GetByKindAndLanguage(ctx context.Context, kind model.EmailKind, lang model.Language) (*model.EmailTemplate, error) {
	query := `
		SELECT id, kind, language, subject, body, updated_by, created_at, updated_at
		FROM email_templates
		WHERE kind = $1 AND language = $2
	`
	var t model.EmailTemplate
	err := r.db.QueryRowContext(ctx, query, kind, lang).Scan(
		&t.ID, &t.Kind, &t.Language, &t.Subject, &t.Body, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// List returns all stored templates ordered by kind then language
func (r *TemplateRepository) List(ctx context.Context) ([]*model.EmailTemplate, error) {
	query := `
		SELECT id, kind, language, subject, body, updated_by, created_at, updated_at
		FROM email_templates
		ORDER BY kind, language
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*model.EmailTemplate
	for rows.Next() {
		var t model.EmailTemplate
		if err := rows.Scan(&t.ID, &t.Kind, &t.Language, &t.Subject, &t.Body, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return templates, nil
}

// Delete removes the template for (kind, language)
func (r *TemplateRepository) Delete(ctx context.Context, kind model.EmailKind, lang model.Language) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE kind = $1 AND language = $2`, kind, lang)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByKind removes every custom template of a kind, restoring the
// built-in defaults for it
func (r *TemplateRepository) DeleteByKind(ctx context.Context, kind model.EmailKind) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE kind = $1`, kind)
	if err != nil {
		return fmt.Errorf("failed to delete templates for kind %s: %w", kind, err)
	}
	return nil
}
