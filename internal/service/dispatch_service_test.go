package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divecrm/divecrm/internal/email"
	"github.com/divecrm/divecrm/internal/logger"
	"github.com/divecrm/divecrm/internal/model"
	"github.com/divecrm/divecrm/internal/renderer"
	"github.com/divecrm/divecrm/internal/repository"
)

type fakeCustomers struct {
	customers []*model.Customer
	marked    map[string]model.EmailKind
	markErr   error
	listErr   error
}

func newFakeCustomers(customers ...*model.Customer) *fakeCustomers {
	return &fakeCustomers{customers: customers, marked: make(map[string]model.EmailKind)}
}

func (f *fakeCustomers) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	for _, c := range f.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCustomers) List(ctx context.Context) ([]*model.Customer, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.customers, nil
}

func (f *fakeCustomers) FindEligible(ctx context.Context, kind model.EmailKind, cutoff time.Time) ([]*model.Customer, error) {
	var due []*model.Customer
	for _, c := range f.customers {
		if !c.Sent(kind) && !c.VisitDate.After(cutoff) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (f *fakeCustomers) MarkSent(ctx context.Context, id string, kind model.EmailKind, ts time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked[id] = kind
	return nil
}

type fakeSender struct {
	errs  []error
	calls []email.Message
}

func (f *fakeSender) Send(ctx context.Context, msg email.Message) error {
	f.calls = append(f.calls, msg)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, kind model.EmailKind, c *model.Customer) (*renderer.Rendered, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &renderer.Rendered{
		Subject:  "Subject for " + c.Name,
		HTMLBody: "<p>hello</p>",
		Language: c.Language,
	}, nil
}

type fakeDeliveries struct {
	records []*model.DeliveryRecord
}

func (f *fakeDeliveries) Record(ctx context.Context, rec *model.DeliveryRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func transientErr() error {
	return &email.DeliveryError{Reason: email.ReasonConnect, Transient: true, Err: errors.New("connection reset")}
}

func permanentErr() error {
	return &email.DeliveryError{Reason: email.ReasonRecipient, Transient: false, Err: errors.New("mailbox unavailable")}
}

func customer(id string) *model.Customer {
	return &model.Customer{
		ID:        id,
		Name:      "Customer " + id,
		Email:     id + "@example.com",
		VisitDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Language:  model.LanguageEN,
	}
}

func newService(customers *fakeCustomers, sender *fakeSender, deliveries *fakeDeliveries) *DispatchService {
	return NewDispatchService(customers, deliveries, &fakeRenderer{}, sender, logger.New("error", "json"))
}

func TestDispatchOneMarksSentAfterDelivery(t *testing.T) {
	c := customer("c1")
	customers := newFakeCustomers(c)
	sender := &fakeSender{}
	deliveries := &fakeDeliveries{}
	svc := newService(customers, sender, deliveries)

	now := time.Now().UTC()
	err := svc.DispatchOne(context.Background(), c, model.KindFirstFollowUp, now)
	require.NoError(t, err)

	assert.Len(t, sender.calls, 1)
	assert.Equal(t, "c1@example.com", sender.calls[0].To)
	assert.Equal(t, model.KindFirstFollowUp, customers.marked["c1"])

	require.Len(t, deliveries.records, 1)
	assert.Equal(t, model.DeliverySent, deliveries.records[0].Status)
}

func TestDispatchOneRetriesOnceOnTransientFailure(t *testing.T) {
	c := customer("c1")
	customers := newFakeCustomers(c)
	sender := &fakeSender{errs: []error{transientErr()}}
	svc := newService(customers, sender, &fakeDeliveries{})

	err := svc.DispatchOne(context.Background(), c, model.KindFirstFollowUp, time.Now().UTC())
	require.NoError(t, err)

	assert.Len(t, sender.calls, 2)
	assert.Equal(t, model.KindFirstFollowUp, customers.marked["c1"])
}

func TestDispatchOneDoesNotRetryPermanentFailure(t *testing.T) {
	c := customer("c1")
	customers := newFakeCustomers(c)
	sender := &fakeSender{errs: []error{permanentErr()}}
	deliveries := &fakeDeliveries{}
	svc := newService(customers, sender, deliveries)

	err := svc.DispatchOne(context.Background(), c, model.KindFirstFollowUp, time.Now().UTC())
	require.Error(t, err)

	assert.Len(t, sender.calls, 1)
	assert.Empty(t, customers.marked)

	require.Len(t, deliveries.records, 1)
	assert.Equal(t, model.DeliveryFailed, deliveries.records[0].Status)
	assert.NotEmpty(t, deliveries.records[0].Error)
}

func TestDispatchOneGivesUpAfterSecondTransientFailure(t *testing.T) {
	c := customer("c1")
	customers := newFakeCustomers(c)
	sender := &fakeSender{errs: []error{transientErr(), transientErr()}}
	svc := newService(customers, sender, &fakeDeliveries{})

	err := svc.DispatchOne(context.Background(), c, model.KindFirstFollowUp, time.Now().UTC())
	require.Error(t, err)

	assert.Len(t, sender.calls, 2)
	assert.Empty(t, customers.marked)
}

func TestDispatchOneRefusesAlreadySentKind(t *testing.T) {
	c := customer("c1")
	ts := time.Now().UTC()
	c.FirstSentAt = &ts

	customers := newFakeCustomers(c)
	sender := &fakeSender{}
	svc := newService(customers, sender, &fakeDeliveries{})

	err := svc.DispatchOne(context.Background(), c, model.KindFirstFollowUp, time.Now().UTC())
	assert.ErrorIs(t, err, ErrAlreadySent)
	assert.Empty(t, sender.calls)
}

func TestDispatchOneRenderFailureSendsNothing(t *testing.T) {
	c := customer("c1")
	customers := newFakeCustomers(c)
	sender := &fakeSender{}
	deliveries := &fakeDeliveries{}
	svc := NewDispatchService(customers, deliveries, &fakeRenderer{err: renderer.ErrMissingTemplate}, sender, logger.New("error", "json"))

	err := svc.DispatchOne(context.Background(), c, model.KindFirstFollowUp, time.Now().UTC())
	require.Error(t, err)

	assert.Empty(t, sender.calls)
	assert.Empty(t, customers.marked)
	require.Len(t, deliveries.records, 1)
	assert.Equal(t, model.DeliveryFailed, deliveries.records[0].Status)
}

func TestSendManualToAllIsolatesFailures(t *testing.T) {
	c1, c2, c3 := customer("c1"), customer("c2"), customer("c3")
	customers := newFakeCustomers(c1, c2, c3)

	// Second customer's send fails permanently, the rest go through
	sender := &fakeSender{errs: []error{nil, permanentErr()}}
	svc := newService(customers, sender, &fakeDeliveries{})

	sent, failed, err := svc.SendManualToAll(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, model.KindManual, customers.marked["c1"])
	assert.Equal(t, model.KindManual, customers.marked["c3"])
	assert.NotContains(t, customers.marked, "c2")
}

func TestSendManualToAllSkipsAlreadySent(t *testing.T) {
	c1, c2 := customer("c1"), customer("c2")
	ts := time.Now().UTC()
	c1.ManualSentAt = &ts

	customers := newFakeCustomers(c1, c2)
	sender := &fakeSender{}
	svc := newService(customers, sender, &fakeDeliveries{})

	sent, failed, err := svc.SendManualToAll(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
	assert.Len(t, sender.calls, 1)
	assert.Equal(t, "c2@example.com", sender.calls[0].To)
}

func TestSendManualUnknownCustomer(t *testing.T) {
	svc := newService(newFakeCustomers(), &fakeSender{}, &fakeDeliveries{})

	err := svc.SendManual(context.Background(), "missing", time.Now().UTC())
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestSendMarketingDeduplicatesRecipients(t *testing.T) {
	c1 := customer("c1")
	customers := newFakeCustomers(c1)
	sender := &fakeSender{}
	svc := newService(customers, sender, &fakeDeliveries{})

	sent, failed, err := svc.SendMarketing(context.Background(), "News", "<p>News</p>",
		[]string{"a@example.com", "a@example.com", "c1@example.com"}, true)
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Empty(t, failed)
	assert.Len(t, sender.calls, 2)
}

func TestSendMarketingCollectsFailedRecipients(t *testing.T) {
	sender := &fakeSender{errs: []error{permanentErr(), nil}}
	svc := newService(newFakeCustomers(), sender, &fakeDeliveries{})

	sent, failed, err := svc.SendMarketing(context.Background(), "News", "<p>News</p>",
		[]string{"bad@example.com", "good@example.com"}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"bad@example.com"}, failed)
}
