package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by repositories when a store-level constraint
// rejects a write. The database constraint is the real guarantee; services
// translate these into the caller-facing conflict errors.
var (
	ErrDuplicateDocument   = errors.New("document already registered")
	ErrDuplicateEnrollment = errors.New("student already enrolled in course")
	ErrDuplicateCourseName = errors.New("course name already in use")
	ErrExceedsBalance      = errors.New("payment exceeds remaining balance")
)

// pg unique_violation
const uniqueViolationCode = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != uniqueViolationCode {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
