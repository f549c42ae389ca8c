package model

import (
	"time"
)

// Language is a customer's preferred email language (ISO 639-1 code)
type Language string

const (
	LanguagePT Language = "pt"
	LanguageEN Language = "en"
	LanguageDE Language = "de"
	LanguageFR Language = "fr"
)

// SupportedLanguages lists the languages with built-in templates
var SupportedLanguages = []Language{LanguagePT, LanguageEN, LanguageDE, LanguageFR}

// IsSupported reports whether the language has built-in template coverage
func (l Language) IsSupported() bool {
	for _, s := range SupportedLanguages {
		if l == s {
			return true
		}
	}
	return false
}

// EmailKind identifies one of the follow-up email types
type EmailKind string

const (
	KindFirstFollowUp  EmailKind = "first_followup"
	KindSecondFollowUp EmailKind = "second_followup"
	KindManual         EmailKind = "manual"
)

// ScheduledKinds are the kinds the background scheduler dispatches, in
// priority order (oldest obligation first).
var ScheduledKinds = []EmailKind{KindFirstFollowUp, KindSecondFollowUp}

// IsValid reports whether the kind is one the system knows about
func (k EmailKind) IsValid() bool {
	switch k {
	case KindFirstFollowUp, KindSecondFollowUp, KindManual:
		return true
	}
	return false
}

// Customer represents one diving customer record
type Customer struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	DiveCount     int        `json:"diveCount"`
	VisitDate     time.Time  `json:"visitDate"`
	Language      Language   `json:"language"`
	InvoiceAmount float64    `json:"invoiceAmount"`
	Discount      float64    `json:"discount"`
	VATRate       float64    `json:"vatRate"`
	AddedBy       string     `json:"addedBy"`
	FirstSentAt   *time.Time `json:"firstSentAt,omitempty"`
	SecondSentAt  *time.Time `json:"secondSentAt,omitempty"`
	ManualSentAt  *time.Time `json:"manualSentAt,omitempty"`
	Feedback      *string    `json:"feedback,omitempty"`
	FeedbackAt    *time.Time `json:"feedbackAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// SentAt returns the sent timestamp for the given email kind, nil if unsent
func (c *Customer) SentAt(kind EmailKind) *time.Time {
	switch kind {
	case KindFirstFollowUp:
		return c.FirstSentAt
	case KindSecondFollowUp:
		return c.SecondSentAt
	case KindManual:
		return c.ManualSentAt
	}
	return nil
}

// Sent reports whether an email of the given kind was already delivered
func (c *Customer) Sent(kind EmailKind) bool {
	return c.SentAt(kind) != nil
}

// InvoiceTotal returns the invoice amount with VAT applied
func (c *Customer) InvoiceTotal() float64 {
	return c.InvoiceAmount * (1 + c.VATRate)
}

// DaysSinceVisit returns the number of calendar days between the visit date
// and now, evaluated in the given location
func (c *Customer) DaysSinceVisit(now time.Time, loc *time.Location) int {
	visit := c.VisitDate.In(loc)
	visitDay := time.Date(visit.Year(), visit.Month(), visit.Day(), 0, 0, 0, 0, loc)
	n := now.In(loc)
	nowDay := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	return int(nowDay.Sub(visitDay) / (24 * time.Hour))
}
