package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/divecrm/divecrm/internal/email"
	"github.com/divecrm/divecrm/internal/logger"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/renderer"
)

// Dispatch errors
var (
	ErrAlreadySent      = errors.New("email of this kind already sent to customer")
	ErrCustomerNotFound = errors.New("customer not found")
)

// CustomerStore is the slice of the customer repository the dispatch
// pipeline needs.
type CustomerStore interface {
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	List(ctx context.Context) ([]*model.Customer, error)
	FindEligible(ctx context.Context, kind model.EmailKind, cutoff time.Time) ([]*model.Customer, error)
	MarkSent(ctx context.Context, id string, kind model.EmailKind, ts time.Time) error
}

// DeliveryLog records dispatch attempt outcomes.
type DeliveryLog interface {
	Record(ctx context.Context, rec *model.DeliveryRecord) error
}

// Renderer produces final email content for one customer.
type Renderer interface {
	Render(ctx context.Context, kind model.EmailKind, c *model.Customer) (*renderer.Rendered, error)
}

// DispatchService owns the render-then-send pipeline for one customer.
// It is shared by the scheduler, the manual-send endpoints, and the bulk
// sender. Marking a customer sent happens here, after the send succeeds,
// so a failed send can never mark "sent".
type DispatchService struct {
	customers  CustomerStore
	deliveries DeliveryLog
	renderer   Renderer
	sender     email.Sender
	log        *logger.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(customers CustomerStore, deliveries DeliveryLog, r Renderer, sender email.Sender, log *logger.Logger) *DispatchService {
	return &DispatchService{
		customers:  customers,
		deliveries: deliveries,
		renderer:   r,
		sender:     sender,
		log:        log.WithComponent("dispatch"),
	}
}

// Due returns the customers eligible for the given kind as of the cutoff,
// oldest visit first.
func (s *DispatchService) Due(ctx context.Context, kind model.EmailKind, cutoff time.Time) ([]*model.Customer, error) {
	return s.customers.FindEligible(ctx, kind, cutoff)
}

// DispatchOne renders and sends one email to one customer, then marks the
// kind sent. A transient delivery failure is retried once immediately; a
// second failure (or a permanent one) is recorded and returned with the
// sent flag left unset, so a later tick retries.
func (s *DispatchService) DispatchOne(ctx context.Context, c *model.Customer, kind model.EmailKind, now time.Time) error {
	if c.Sent(kind) {
		return ErrAlreadySent
	}

	rendered, err := s.renderer.Render(ctx, kind, c)
	if err != nil {
		s.log.Dispatch(c.ID, string(kind), c.Email, err)
		s.record(ctx, c, kind, c.Language, model.DeliveryFailed, err, now)
		return err
	}

	msg := email.Message{
		To:       c.Email,
		Subject:  rendered.Subject,
		HTMLBody: rendered.HTMLBody,
	}

	if err := s.sendWithRetry(ctx, msg); err != nil {
		s.log.Dispatch(c.ID, string(kind), c.Email, err)
		s.record(ctx, c, kind, rendered.Language, model.DeliveryFailed, err, now)
		return err
	}

	if err := s.customers.MarkSent(ctx, c.ID, kind, now); err != nil {
		// The email went out but the flag didn't stick; surface it loudly,
		// the next tick would otherwise send a duplicate.
		s.log.Error().Err(err).Str("customer_id", c.ID).Str("kind", string(kind)).Msg("failed to mark email sent")
		return fmt.Errorf("mark sent: %w", err)
	}

	s.log.Dispatch(c.ID, string(kind), c.Email, nil)
	s.record(ctx, c, kind, rendered.Language, model.DeliverySent, nil, now)
	return nil
}

// SendManual sends the manual follow-up to one customer, guarded by the
// manual sent flag exactly like the scheduled kinds.
func (s *DispatchService) SendManual(ctx context.Context, customerID string, now time.Time) error {
	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return ErrCustomerNotFound
	}
	return s.DispatchOne(ctx, c, model.KindManual, now)
}

// SendManualToAll sends the manual follow-up to every customer that has
// not received one yet. Failures are isolated per customer.
func (s *DispatchService) SendManualToAll(ctx context.Context, now time.Time) (sent, failed int, err error) {
	customers, err := s.customers.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list customers: %w", err)
	}
	for _, c := range customers {
		if c.Sent(model.KindManual) {
			continue
		}
		if err := s.DispatchOne(ctx, c, model.KindManual, now); err != nil {
			failed++
			continue
		}
		sent++
	}
	return sent, failed, nil
}

// SendMarketing sends one ad-hoc message to an explicit recipient list,
// optionally unioned with every customer email. Duplicates are removed;
// per-recipient failures are collected, never aborting the batch.
func (s *DispatchService) SendMarketing(ctx context.Context, subject, htmlBody string, recipients []string, includeCustomers bool) (sent int, failed []string, err error) {
	seen := make(map[string]bool)
	var all []string
	for _, addr := range recipients {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		all = append(all, addr)
	}
	if includeCustomers {
		customers, err := s.customers.List(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("list customers: %w", err)
		}
		for _, c := range customers {
			if c.Email == "" || seen[c.Email] {
				continue
			}
			seen[c.Email] = true
			all = append(all, c.Email)
		}
	}

	for _, addr := range all {
		msg := email.Message{To: addr, Subject: subject, HTMLBody: htmlBody}
		if err := s.sendWithRetry(ctx, msg); err != nil {
			s.log.Error().Err(err).Str("recipient", addr).Msg("marketing email failed")
			failed = append(failed, addr)
			continue
		}
		sent++
	}
	return sent, failed, nil
}

func (s *DispatchService) sendWithRetry(ctx context.Context, msg email.Message) error {
	err := s.sender.Send(ctx, msg)
	if err == nil {
		return nil
	}
	if !email.IsTransient(err) {
		return err
	}
	// One immediate retry on a transient transport failure, no backoff.
	return s.sender.Send(ctx, msg)
}

func (s *DispatchService) record(ctx context.Context, c *model.Customer, kind model.EmailKind, lang model.Language, status model.DeliveryStatus, sendErr error, now time.Time) {
	if s.deliveries == nil {
		return
	}
	rec := &model.DeliveryRecord{
		ID:          uuid.New().String(),
		CustomerID:  c.ID,
		Kind:        kind,
		Language:    lang,
		Recipient:   c.Email,
		Status:      status,
		AttemptedAt: now,
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	if err := s.deliveries.Record(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("customer_id", c.ID).Msg("failed to record delivery outcome")
	}
}
