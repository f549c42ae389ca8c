package model

import "time"

// DeliveryStatus is the recorded outcome of one dispatch attempt
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryRecord is an audit row for one email dispatch attempt
type DeliveryRecord struct {
	ID          string         `json:"id"`
	CustomerID  string         `json:"customerId"`
	Kind        EmailKind      `json:"kind"`
	Language    Language       `json:"language"`
	Recipient   string         `json:"recipient"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	AttemptedAt time.Time      `json:"attemptedAt"`
}
