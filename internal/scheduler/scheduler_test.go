package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divecrm/divecrm/internal/config"
	"github.com/divecrm/divecrm/internal/logger"
	"github.com/divecrm/divecrm/internal/model"
)

type dispatched struct {
	customerID string
	kind       model.EmailKind
}

type fakeDispatcher struct {
	customers  []*model.Customer
	failIDs    map[string]bool
	dueErr     error
	cutoffs    map[model.EmailKind]time.Time
	dispatched []dispatched
}

func newFakeDispatcher(customers ...*model.Customer) *fakeDispatcher {
	return &fakeDispatcher{
		customers: customers,
		failIDs:   make(map[string]bool),
		cutoffs:   make(map[model.EmailKind]time.Time),
	}
}

func (f *fakeDispatcher) Due(ctx context.Context, kind model.EmailKind, cutoff time.Time) ([]*model.Customer, error) {
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	f.cutoffs[kind] = cutoff
	var due []*model.Customer
	for _, c := range f.customers {
		if !c.Sent(kind) && !c.VisitDate.After(cutoff) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (f *fakeDispatcher) DispatchOne(ctx context.Context, c *model.Customer, kind model.EmailKind, now time.Time) error {
	if f.failIDs[c.ID] {
		return errors.New("delivery failed")
	}
	f.dispatched = append(f.dispatched, dispatched{customerID: c.ID, kind: kind})
	return nil
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:         true,
		Interval:        time.Minute,
		Timezone:        "UTC",
		DefaultLanguage: "pt",
		LeaderTTL:       30 * time.Second,
		Offsets:         config.OffsetConfig{FirstDays: 1, SecondDays: 3},
	}
}

func newTestScheduler(t *testing.T, d Dispatcher) *Scheduler {
	t.Helper()
	s, err := New(d, nil, testConfig(), logger.New("error", "json"))
	require.NoError(t, err)
	return s
}

func visitor(id string, visit time.Time) *model.Customer {
	return &model.Customer{
		ID:        id,
		Name:      "Customer " + id,
		Email:     id + "@example.com",
		VisitDate: visit,
		Language:  model.LanguagePT,
	}
}

func TestRunTickDispatchesFirstFollowUpAfterOneDay(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	// Visited late yesterday: one calendar day ago, due regardless of hour
	d := newFakeDispatcher(visitor("c1", time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)))
	s := newTestScheduler(t, d)

	res := s.RunTick(context.Background(), now)

	assert.Equal(t, 1, res.Sent)
	require.Len(t, d.dispatched, 1)
	assert.Equal(t, model.KindFirstFollowUp, d.dispatched[0].kind)
}

func TestRunTickSkipsSameDayVisit(t *testing.T) {
	now := time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC)

	d := newFakeDispatcher(visitor("c1", time.Date(2026, 8, 29, 0, 30, 0, 0, time.UTC)))
	s := newTestScheduler(t, d)

	res := s.RunTick(context.Background(), now)

	assert.Zero(t, res.Sent)
	assert.Empty(t, d.dispatched)
}

func TestRunTickDispatchesSecondFollowUpAfterThreeDays(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	c := visitor("c1", time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC))
	sentAt := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	c.FirstSentAt = &sentAt

	d := newFakeDispatcher(c)
	s := newTestScheduler(t, d)

	res := s.RunTick(context.Background(), now)

	assert.Equal(t, 1, res.Sent)
	require.Len(t, d.dispatched, 1)
	assert.Equal(t, model.KindSecondFollowUp, d.dispatched[0].kind)
}

func TestRunTickSendsOneKindPerCustomerPerTick(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	// Old visit with nothing sent yet: due for both kinds, first wins
	d := newFakeDispatcher(visitor("c1", time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)))
	s := newTestScheduler(t, d)

	res := s.RunTick(context.Background(), now)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, d.dispatched, 1)
	assert.Equal(t, model.KindFirstFollowUp, d.dispatched[0].kind)
}

func TestRunTickIsolatesCustomerFailures(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	d := newFakeDispatcher(
		visitor("c1", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)),
		visitor("c2", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)),
	)
	d.failIDs["c1"] = true
	s := newTestScheduler(t, d)

	res := s.RunTick(context.Background(), now)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, d.dispatched, 1)
	assert.Equal(t, "c2", d.dispatched[0].customerID)
}

func TestRunTickCutoffsArePerKind(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	d := newFakeDispatcher()
	s := newTestScheduler(t, d)
	s.RunTick(context.Background(), now)

	first := d.cutoffs[model.KindFirstFollowUp]
	second := d.cutoffs[model.KindSecondFollowUp]

	// End of the day one and three calendar days before now
	assert.True(t, first.Before(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)))
	assert.True(t, first.After(time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC)))
	assert.True(t, second.Before(time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)))
	assert.True(t, second.After(time.Date(2026, 8, 26, 23, 59, 0, 0, time.UTC)))
}

func TestRunTickContinuesWhenOneKindQueryFails(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	d := newFakeDispatcher()
	d.dueErr = errors.New("database down")
	s := newTestScheduler(t, d)

	res := s.RunTick(context.Background(), now)

	assert.Zero(t, res.Sent)
	assert.Zero(t, res.Failed)
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Timezone = "Atlantis/Nowhere"

	_, err := New(newFakeDispatcher(), nil, cfg, logger.New("error", "json"))
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t, newFakeDispatcher())

	ctx := context.Background()
	s.Start(ctx)
	s.Stop(ctx)
}
