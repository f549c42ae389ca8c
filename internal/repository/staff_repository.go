package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/model"
)

// StaffRepository handles staff account persistence
type StaffRepository struct {
	db *database.Postgres
}

// NewStaffRepository creates a new StaffRepository
func NewStaffRepository(db *database.Postgres) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create inserts a new staff user
func (r *StaffRepository) Create(ctx context.Context, u *model.StaffUser) error {
	query := `
		INSERT INTO staff_users (id, username, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create staff user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a staff user by username
func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*model.StaffUser, error) {
	query := `
		SELECT id, username, password_hash, is_admin, created_at, updated_at
		FROM staff_users
		WHERE username = $1
	`
	var u model.StaffUser
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return &u, nil
}

// GetByID retrieves a staff user by ID
func (r *StaffRepository) GetByID(ctx context.Context, id string) (*model.StaffUser, error) {
	query := `
		SELECT id, username, password_hash, is_admin, created_at, updated_at
		FROM staff_users
		WHERE id = $1
	`
	var u model.StaffUser
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return &u, nil
}

// List returns all staff users
func (r *StaffRepository) List(ctx context.Context) ([]*model.StaffUser, error) {
	query := `
		SELECT id, username, password_hash, is_admin, created_at, updated_at
		FROM staff_users
		ORDER BY username
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff users: %w", err)
	}
	defer rows.Close()

	var users []*model.StaffUser
	for rows.Next() {
		var u model.StaffUser
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff user: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staff users: %w", err)
	}
	return users, nil
}

// Delete removes a staff user
func (r *StaffRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM staff_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete staff user: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
