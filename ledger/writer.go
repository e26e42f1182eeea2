/*
writer.go - Append path of the history ledger

PURPOSE:
  The Writer turns a caller-supplied Candidate into a stored Record. It owns
  the three decisions the append path has to make:

  1. DUPLICATE?  If the candidate is semantically identical to the current
     tail record, return that record unchanged and write nothing. This is the
     idempotency defense against at-least-once delivery from upstream.
  2. FITS?       If the latest block would exceed the byte ceiling with the
     record appended, open a new block chained to the old one.
  3. NUMBERING:  Assign the next global sequence number, a fresh id, and a
     UTC timestamp.

GUARANTEES:
  Exactly one of {no-op, append-to-existing, append-to-new-block} happens per
  call. Under sequential calls the Number sequence has no gaps or duplicates.

CONCURRENCY:
  The latest-block read and the conditional write are not wrapped in a
  transaction. Two concurrent appends for the same character race; the loser
  gets ErrConflict from the store and must retry. Callers are single-writer
  per character in practice (one player editing one sheet), and retried
  payloads are bit-identical, so the duplicate check absorbs the retry.

DUPLICATE WINDOW:
  Only the tail record is compared. Two identical mutations separated by an
  unrelated one are both recorded; that is intended behavior, not a missed
  dedup.

SEE ALSO:
  - types.go: Candidate.SameMutation, the duplicate predicate
  - size.go:  byte-ceiling accounting
  - store.go: conditional-write contract
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PayloadValidator checks Record.Data against the type-specific payload
// contract. Implemented by the domain codec (package character); the Writer
// itself only validates the envelope fields.
type PayloadValidator interface {
	ValidatePayload(t RecordType, data RecordData) error
}

// Writer appends records to a character's history.
type Writer struct {
	Store         BlockStore
	Validator     PayloadValidator
	MaxBlockBytes int

	// Now and NewID are swappable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// NewWriter creates a Writer with the default byte ceiling, wall-clock
// timestamps and UUID ids.
func NewWriter(store BlockStore, validator PayloadValidator) *Writer {
	return &Writer{
		Store:         store,
		Validator:     validator,
		MaxBlockBytes: DefaultMaxBlockBytes,
		Now:           time.Now,
		NewID:         uuid.NewString,
	}
}

// Append admits a candidate mutation into the character's history and
// returns the stored record. If the candidate duplicates the current tail,
// the tail is returned unchanged and no write occurs.
func (w *Writer) Append(ctx context.Context, characterID string, c Candidate) (*Record, error) {
	if characterID == "" {
		return nil, &ValidationError{Field: "characterId", Reason: "must not be empty"}
	}
	if err := w.validateEnvelope(c); err != nil {
		return nil, err
	}
	if err := w.Validator.ValidatePayload(c.Type, c.Data); err != nil {
		return nil, err
	}

	latest, err := w.Store.LatestBlock(ctx, characterID)
	if errors.Is(err, ErrNoHistory) {
		return w.appendToNewBlock(ctx, characterID, c, 1, 1, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read latest block: %w", err)
	}

	if tail := latest.Tail(); tail != nil && c.SameMutation(*tail) {
		dup := *tail
		return &dup, nil
	}

	number := 1
	if tail := latest.Tail(); tail != nil {
		number = tail.Number + 1
	}
	rec := w.seal(c, number)

	size, err := blockSizeWith(latest, rec)
	if err != nil {
		return nil, fmt.Errorf("estimate block size: %w", err)
	}
	if size > w.MaxBlockBytes {
		return w.appendToNewBlock(ctx, characterID, c, number, latest.BlockNumber+1, &latest.BlockID)
	}

	if err := w.Store.AppendRecord(ctx, characterID, latest.BlockNumber, len(latest.Changes), rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// appendToNewBlock opens block blockNumber (chained to previousBlockID) with
// the sealed record as its first entry. Fails with BlockSizeError if the
// record alone cannot fit under the ceiling - splitting cannot help then.
func (w *Writer) appendToNewBlock(ctx context.Context, characterID string, c Candidate, number, blockNumber int, previousBlockID *string) (*Record, error) {
	rec := w.seal(c, number)
	block := HistoryBlock{
		CharacterID:     characterID,
		BlockNumber:     blockNumber,
		BlockID:         w.NewID(),
		PreviousBlockID: previousBlockID,
		Changes:         []Record{rec},
	}

	size, err := BlockSize(&block)
	if err != nil {
		return nil, fmt.Errorf("estimate block size: %w", err)
	}
	if size > w.MaxBlockBytes {
		return nil, &BlockSizeError{CharacterID: characterID, RecordBytes: size, MaxBytes: w.MaxBlockBytes}
	}

	if err := w.Store.CreateBlock(ctx, block); err != nil {
		return nil, err
	}
	return &rec, nil
}

// seal assigns the Writer-owned fields.
func (w *Writer) seal(c Candidate, number int) Record {
	return Record{
		Type:              c.Type,
		Name:              c.Name,
		Number:            number,
		ID:                w.NewID(),
		Data:              c.Data,
		LearningMethod:    c.LearningMethod,
		CalculationPoints: c.CalculationPoints,
		Comment:           c.Comment,
		Timestamp:         w.Now().UTC(),
	}
}

// validateEnvelope checks the ledger-owned fields of a candidate. Payload
// shapes are the codec's business.
func (w *Writer) validateEnvelope(c Candidate) error {
	if !c.Type.Known() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown record type %q", c.Type)}
	}
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(c.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("exceeds %d characters", MaxNameLength)}
	}
	if c.Comment != nil && len(*c.Comment) > MaxCommentLength {
		return &ValidationError{Field: "comment", Reason: fmt.Sprintf("exceeds %d characters", MaxCommentLength)}
	}
	if c.LearningMethod != nil && !c.LearningMethod.Known() {
		return &ValidationError{Field: "learningMethod", Reason: fmt.Sprintf("unknown learning method %q", *c.LearningMethod)}
	}
	if len(c.Data.New) == 0 {
		return &ValidationError{Field: "data.new", Reason: "must be present"}
	}
	if c.Type == TypeCharacterCreated {
		if len(c.Data.Old) != 0 {
			return &ValidationError{Field: "data.old", Reason: "must be absent for character-created"}
		}
	} else if len(c.Data.Old) == 0 {
		return &ValidationError{Field: "data.old", Reason: "must be present"}
	}
	return nil
}
