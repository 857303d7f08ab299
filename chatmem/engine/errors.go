package engine

import (
	"fmt"
)

// CapacityError reports a per-key interactive message limit violation.
// Overflow distinguishes a store that already holds more rows than the
// configured maximum (for example the limit was lowered after rows were
// written) from an ordinary full partition; the former is never truncated
// because it would be ambiguous which messages to drop.
type CapacityError struct {
	Key      string
	Limit    int
	Count    int
	Overflow bool
}

func (e *CapacityError) Error() string {
	if e.Overflow {
		return fmt.Sprintf("Interactive message count '%d' exceeds maximum limit of '%d' for key: '%s'", e.Count, e.Limit, e.Key)
	}
	return fmt.Sprintf("Cannot add more messages. Maximum limit of '%d' reached for key: '%s'", e.Limit, e.Key)
}

// StoreError wraps a durable store failure with the operation that hit it.
// The cause is preserved for inspection via Unwrap.
type StoreError struct {
	Op    string
	Key   string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s for key %q: %v", e.Op, e.Key, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }
