package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/model"
)

func newTemplateRepo(t *testing.T) (*TemplateRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTemplateRepository(database.NewPostgresFromDB(db)), mock
}

func TestTemplateUpsert(t *testing.T) {
	repo, mock := newTemplateRepo(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO email_templates .+ ON CONFLICT \(kind, language\)`).
		WithArgs("t1", model.KindFirstFollowUp, model.LanguageEN, "Subject", "<p>Body</p>", "ana", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &model.EmailTemplate{
		ID: "t1", Kind: model.KindFirstFollowUp, Language: model.LanguageEN,
		Subject: "Subject", Body: "<p>Body</p>", UpdatedBy: "ana",
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateGetByKindAndLanguageNotFound(t *testing.T) {
	repo, mock := newTemplateRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM email_templates\s+WHERE kind = \$1 AND language = \$2`).
		WithArgs(model.KindManual, model.LanguageDE).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "kind", "language", "subject", "body", "updated_by", "created_at", "updated_at",
		}))

	_, err := repo.GetByKindAndLanguage(context.Background(), model.KindManual, model.LanguageDE)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateDeleteByKind(t *testing.T) {
	repo, mock := newTemplateRepo(t)

	mock.ExpectExec(`DELETE FROM email_templates WHERE kind = \$1`).
		WithArgs(model.KindSecondFollowUp).
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, repo.DeleteByKind(context.Background(), model.KindSecondFollowUp))
	assert.NoError(t, mock.ExpectationsWereMet())
}
