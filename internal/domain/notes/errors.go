package notes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound covers both a missing note and a note the caller does not own.
// The two are indistinguishable to callers.
var ErrNotFound = errors.New("note not found")

// ErrDuplicateKey indicates an insert lost the race on an owner's
// idempotency key. The winning row is authoritative.
var ErrDuplicateKey = errors.New("idempotency key already used")

// ErrKeyReserved indicates the owner's idempotency key belongs to a deleted
// note. The key stays reserved; the create cannot be replayed or retried
// under it.
var ErrKeyReserved = errors.New("idempotency key reserved by a deleted note")

// ValidationError rejects malformed input before the pipeline runs.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func isValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SafetyError rejects note text that contains prescriptive or directive
// language. Reasons lists every matched rule in rule order.
type SafetyError struct {
	Reasons []string
}

func (e *SafetyError) Error() string {
	return "unsafe clinical language: " + strings.Join(e.Reasons, "; ")
}

// IsSafetyError extracts a SafetyError from an error chain.
func IsSafetyError(err error) (*SafetyError, bool) {
	var se *SafetyError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
