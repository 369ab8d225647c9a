package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil error", nil, "ux_outbox_dlq_event", false},
		{"postgres named constraint", errors.New(`duplicate key value violates unique constraint "ux_outbox_dlq_event"`), "ux_outbox_dlq_event", true},
		{"postgres generic", errors.New(`duplicate key value violates unique constraint "other"`), "", true},
		{"sqlite wording", errors.New("UNIQUE constraint failed: outbox_dlq.event_id"), "ux_outbox_dlq_event", true},
		{"unrelated error", errors.New("connection refused"), "ux_outbox_dlq_event", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation(%v, %q) = %v, want %v", tc.err, tc.constraint, got, tc.want)
			}
		})
	}
}
