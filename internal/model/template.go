package model

import "time"

// EmailTemplate is a stored email template keyed by (kind, language).
// Subject and Body are html/template sources with fields bound to
// customer attributes at render time (e.g. {{.Name}}).
type EmailTemplate struct {
	ID        string    `json:"id"`
	Kind      EmailKind `json:"kind"`
	Language  Language  `json:"language"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	UpdatedBy string    `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
