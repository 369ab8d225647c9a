package db

import "strings"

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. When constraintName is provided it is matched against the error
// text first, falling back to the generic driver wording.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
