package repository

import (
	"context"
	"fmt"

	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/model"
)

// DeliveryLogRepository handles the dispatch audit trail
type DeliveryLogRepository struct {
	db *database.Postgres
}

// NewDeliveryLogRepository creates a new DeliveryLogRepository
func NewDeliveryLogRepository(db *database.Postgres) *DeliveryLogRepository {
	return &DeliveryLogRepository{db: db}
}

// Record inserts one delivery attempt outcome
func (r *DeliveryLogRepository) Record(ctx context.Context, rec *model.DeliveryRecord) error {
	query := `
		INSERT INTO delivery_log (id, customer_id, kind, language, recipient, status, error, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.CustomerID, rec.Kind, rec.Language, rec.Recipient, rec.Status, rec.Error, rec.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// ListByCustomer returns a customer's delivery history, newest first
func (r *DeliveryLogRepository) ListByCustomer(ctx context.Context, customerID string) ([]*model.DeliveryRecord, error) {
	query := `
		SELECT id, customer_id, kind, language, recipient, status, error, attempted_at
		FROM delivery_log
		WHERE customer_id = $1
		ORDER BY attempted_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var records []*model.DeliveryRecord
	for rows.Next() {
		var rec model.DeliveryRecord
		if err := rows.Scan(&rec.ID, &rec.CustomerID, &rec.Kind, &rec.Language, &rec.Recipient, &rec.Status, &rec.Error, &rec.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery records: %w", err)
	}
	return records, nil
}
