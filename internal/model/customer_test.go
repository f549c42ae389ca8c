package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentAtPerKind(t *testing.T) {
	ts := time.Now()
	c := &Customer{FirstSentAt: &ts}

	assert.True(t, c.Sent(KindFirstFollowUp))
	assert.False(t, c.Sent(KindSecondFollowUp))
	assert.False(t, c.Sent(KindManual))
	assert.Nil(t, c.SentAt(EmailKind("bogus")))
}

func TestEmailKindIsValid(t *testing.T) {
	assert.True(t, KindFirstFollowUp.IsValid())
	assert.True(t, KindSecondFollowUp.IsValid())
	assert.True(t, KindManual.IsValid())
	assert.False(t, EmailKind("newsletter").IsValid())
}

func TestLanguageIsSupported(t *testing.T) {
	assert.True(t, LanguagePT.IsSupported())
	assert.True(t, LanguageFR.IsSupported())
	assert.False(t, Language("it").IsSupported())
	assert.False(t, Language("").IsSupported())
}

func TestInvoiceTotal(t *testing.T) {
	c := &Customer{InvoiceAmount: 100, VATRate: 0.22}
	assert.InDelta(t, 122.0, c.InvoiceTotal(), 0.001)
}

func TestDaysSinceVisitIsCalendarBased(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Lisbon")
	assert.NoError(t, err)

	// Visit late in the evening; by 08:00 next morning one calendar day
	// has passed even though fewer than 24 hours elapsed
	c := &Customer{VisitDate: time.Date(2026, 8, 28, 23, 0, 0, 0, loc)}
	now := time.Date(2026, 8, 29, 8, 0, 0, 0, loc)

	assert.Equal(t, 1, c.DaysSinceVisit(now, loc))
	assert.Equal(t, 0, c.DaysSinceVisit(time.Date(2026, 8, 28, 23, 30, 0, 0, loc), loc))
	assert.Equal(t, 3, c.DaysSinceVisit(time.Date(2026, 9, 1, 0, 1, 0, 0, loc), loc))
}
