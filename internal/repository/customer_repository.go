package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/model"
)

// CustomerRepository handles customer data persistence
type CustomerRepository struct {
	db *database.Postgres
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *database.Postgres) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, name, email, dive_count, visit_date, language,
		       invoice_amount, discount, vat_rate, added_by,
		       first_sent_at, second_sent_at, manual_sent_at,
		       feedback, feedback_at, created_at, updated_at`

// sentColumn maps an email kind to its sent-timestamp column. The column
// name is interpolated into SQL, so the mapping is a closed set.
func sentColumn(kind model.EmailKind) (string, error) {
	switch kind {
	case model.KindFirstFollowUp:
		return "first_sent_at", nil
	case model.KindSecondFollowUp:
		return "second_sent_at", nil
	case model.KindManual:
		return "manual_sent_at", nil
	}
	return "", fmt.Errorf("%w: unknown email kind %q", ErrInvalidInput, kind)
}

// Create inserts a new customer
func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	query := `
		INSERT INTO customers (id, name, email, dive_count, visit_date, language,
		                       invoice_amount, discount, vat_rate, added_by,
		                       created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.Email,
		c.DiveCount,
		c.VisitDate,
		c.Language,
		c.InvoiceAmount,
		c.Discount,
		c.VATRate,
		c.AddedBy,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return r.scanCustomer(r.db.QueryRowContext(ctx, query, id))
}

// ExistsByEmail checks if a customer with the given email exists
func (r *CustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// List returns all customers, most recent visit first
func (r *CustomerRepository) List(ctx context.Context) ([]*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY visit_date DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()
	return r.collectCustomers(rows)
}

// FindEligible returns customers whose visit date is on or before the cutoff
// and whose sent-timestamp for the given kind is unset, oldest visit first so
// overdue sends go out before recent ones.
func (r *CustomerRepository) FindEligible(ctx context.Context, kind model.EmailKind, cutoff time.Time) ([]*model.Customer, error) {
	col, err := sentColumn(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + customerColumns + `
		FROM customers
		WHERE visit_date <= $1 AND ` + col + ` IS NULL
		ORDER BY visit_date ASC`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible customers: %w", err)
	}
	defer rows.Close()
	return r.collectCustomers(rows)
}

// MarkSent records that an email of the given kind went out. The update is
// guarded by the column being NULL, so a repeat call with the same arguments
// changes nothing and returns nil.
func (r *CustomerRepository) MarkSent(ctx context.Context, id string, kind model.EmailKind, ts time.Time) error {
	col, err := sentColumn(kind)
	if err != nil {
		return err
	}
	query := `UPDATE customers SET ` + col + ` = $1, updated_at = $1 WHERE id = $2 AND ` + col + ` IS NULL`
	result, err := r.db.ExecContext(ctx, query, ts, id)
	if err != nil {
		return fmt.Errorf("failed to mark %s sent: %w", kind, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		// Either already marked (a no-op) or the customer is gone.
		exists := false
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to mark %s sent: %w", kind, err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// Update rewrites the mutable customer fields
func (r *CustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	query := `
		UPDATE customers
		SET name = $1, email = $2, dive_count = $3, visit_date = $4, language = $5,
		    invoice_amount = $6, discount = $7, vat_rate = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Email, c.DiveCount, c.VisitDate, c.Language,
		c.InvoiceAmount, c.Discount, c.VATRate, time.Now(), c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update customer: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveFeedback stores a customer's free-text feedback
func (r *CustomerRepository) SaveFeedback(ctx context.Context, id string, feedback string, ts time.Time) error {
	query := `UPDATE customers SET feedback = $1, feedback_at = $2, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, feedback, ts, id)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a customer record
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) scanCustomer(row *sql.Row) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.DiveCount, &c.VisitDate, &c.Language,
		&c.InvoiceAmount, &c.Discount, &c.VATRate, &c.AddedBy,
		&c.FirstSentAt, &c.SecondSentAt, &c.ManualSentAt,
		&c.Feedback, &c.FeedbackAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepository) collectCustomers(rows *sql.Rows) ([]*model.Customer, error) {
	var customers []*model.Customer
	for rows.Next() {
		var c model.Customer
		err := rows.Scan(
			&c.ID, &c.Name, &c.Email, &c.DiveCount, &c.VisitDate, &c.Language,
			&c.InvoiceAmount, &c.Discount, &c.VATRate, &c.AddedBy,
			&c.FirstSentAt, &c.SecondSentAt, &c.ManualSentAt,
			&c.Feedback, &c.FeedbackAt, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}
	return customers, nil
}
