package email

import (
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"os"
	"syscall"
)

// FailureReason classifies what part of the transport failed
type FailureReason string

const (
	ReasonAuth      FailureReason = "auth"
	ReasonConnect   FailureReason = "connect"
	ReasonRecipient FailureReason = "recipient"
	ReasonProtocol  FailureReason = "protocol"
)

// DeliveryError describes a failed send. Transient failures (dials,
// timeouts, 4xx SMTP replies) are worth one immediate retry; permanent
// ones are not.
type DeliveryError struct {
	Reason    FailureReason
	Transient bool
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %v", e.Reason, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a DeliveryError marked transient
func IsTransient(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Transient
	}
	return false
}

// classify wraps a raw transport error into a DeliveryError
func classify(reason FailureReason, err error) *DeliveryError {
	return &DeliveryError{Reason: reason, Transient: transient(err), Err: err}
}

// transient reports whether a raw error looks retryable: network-level
// failures and 4xx SMTP status codes.
func transient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	return false
}
