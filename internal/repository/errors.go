package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors returned by all repositories so callers can branch
// without knowing about database/sql or pq.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("record already exists")
	ErrInvalidInput = errors.New("invalid input")
)

// isUniqueViolation reports whether err is a postgres unique constraint
// violation (customer email, template kind+language, staff username).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
