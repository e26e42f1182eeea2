/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All ledger error types in one place. The taxonomy mirrors the way the API
  boundary answers: validation (400), not-found (404), conflict (409),
  internal (500). Helpers at the bottom classify an error without the caller
  having to enumerate sentinels.

ERROR CATEGORIES:
  1. Validation  - malformed candidate, unknown type tag, bound violations.
                   Never retried automatically.
  2. Not-found   - no history at all, explicit block number absent, comment
                   target record absent.
  3. Conflict    - revert target is not the tail; conditional write lost a
                   race; a single record too large for an empty block.
  4. Internal    - unknown record type reaching revert dispatch, partial
                   failure during inverse application. Propagate unmodified.

USAGE:
  Domain packages wrap these with errors.Is/errors.As-compatible types:

    if errors.Is(err, ledger.ErrNotTail) { ... }

SEE ALSO:
  - writer.go, reader.go, annotate.go: producers of these errors
  - api/handlers.go: maps them to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all candidate-shape failures.
	ErrValidation = errors.New("invalid history record")

	// ErrNoHistory is returned when a character has no blocks at all. It is
	// deliberately distinct from ErrBlockNotFound: "never wrote history" and
	// "asked for a block number out of range" are different caller mistakes.
	ErrNoHistory = errors.New("character has no history")

	// ErrBlockNotFound is returned when an explicitly requested block number
	// does not exist for the character.
	ErrBlockNotFound = errors.New("history block not found")

	// ErrRecordNotFound is returned when a record id is absent from the
	// targeted block (comment annotation).
	ErrRecordNotFound = errors.New("history record not found")

	// ErrNotTail is returned when a revert targets any record other than the
	// most recently appended one. Usually stale client state or a lost race.
	ErrNotTail = errors.New("record is not the latest history entry")

	// ErrConflict is returned when a conditional store write detects that the
	// block changed between read and write.
	ErrConflict = errors.New("concurrent history modification detected")

	// ErrRecordTooLarge is returned when a single record exceeds the block
	// byte ceiling on its own, so even a fresh block cannot hold it.
	ErrRecordTooLarge = errors.New("record exceeds block size ceiling")

	// ErrUnknownRecordType is returned when revert dispatch meets a type tag
	// the Writer should never have admitted. Internal, not a caller error.
	ErrUnknownRecordType = errors.New("unknown record type")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which field of a candidate failed which check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid history record: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TailConflictError reports a revert that targeted a non-tail record, with
// enough context for the caller to decide between refresh and abort.
type TailConflictError struct {
	CharacterID string
	RequestedID string
	TailID      string
}

func (e *TailConflictError) Error() string {
	return fmt.Sprintf("record %s is not the latest history entry of character %s (latest: %s)",
		e.RequestedID, e.CharacterID, e.TailID)
}

func (e *TailConflictError) Unwrap() error { return ErrNotTail }

// BlockSizeError reports a record that cannot fit even in an empty block.
type BlockSizeError struct {
	CharacterID string
	RecordBytes int
	MaxBytes    int
}

func (e *BlockSizeError) Error() string {
	return fmt.Sprintf("record of %d bytes exceeds block ceiling of %d bytes for character %s",
		e.RecordBytes, e.MaxBytes, e.CharacterID)
}

func (e *BlockSizeError) Unwrap() error { return ErrRecordTooLarge }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether err is a caller-input failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err indicates a missing character history,
// block, or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoHistory) ||
		errors.Is(err, ErrBlockNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsConflict reports whether err indicates stale state or a lost race.
// These may succeed after the caller refreshes and retries.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNotTail) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrRecordTooLarge)
}
