package ledger_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questforge/chronicle/ledger"
	"github.com/questforge/chronicle/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// acceptAll stands in for the domain codec: the engine tests exercise the
// envelope and block mechanics, not payload shapes.
type acceptAll struct{}

func (acceptAll) ValidatePayload(ledger.RecordType, ledger.RecordData) error { return nil }

func newTestWriter(t *testing.T) (*ledger.Writer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	w := ledger.NewWriter(mem, acceptAll{})

	// Deterministic ids and timestamps.
	seq := 0
	w.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	w.Now = func() time.Time {
		return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Second)
	}
	return w, mem
}

func creationCandidate() ledger.Candidate {
	return ledger.Candidate{
		Type: ledger.TypeCharacterCreated,
		Name: "Alrik",
		Data: ledger.RecordData{New: json.RawMessage(`{"name":"Alrik"}`)},
	}
}

func attributeCandidate(name string, oldVal, newVal int) ledger.Candidate {
	return ledger.Candidate{
		Type: ledger.TypeAttributeChanged,
		Name: name,
		Data: ledger.RecordData{
			Old: json.RawMessage(fmt.Sprintf(`{"attribute":{"current":%d}}`, oldVal)),
			New: json.RawMessage(fmt.Sprintf(`{"attribute":{"current":%d}}`, newVal)),
		},
	}
}

// blobCandidate builds a record whose data is dominated by a padding string,
// for size-ceiling tests.
func blobCandidate(name string, blobLen int) ledger.Candidate {
	blob := strings.Repeat("x", blobLen)
	return ledger.Candidate{
		Type: ledger.TypeSpecialAbilitiesChanged,
		Name: name,
		Data: ledger.RecordData{
			Old: json.RawMessage(`{"values":[]}`),
			New: json.RawMessage(fmt.Sprintf(`{"values":["%s"]}`, blob)),
		},
	}
}

// =============================================================================
// FIRST APPEND
// =============================================================================

func TestWriter_FirstAppend_CreatesBlockOne(t *testing.T) {
	// GIVEN: a character with no history
	// WHEN: the first mutation is appended
	// THEN: block 1 is created with number=1 and no previous pointer

	w, mem := newTestWriter(t)
	ctx := context.Background()

	rec, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)

	assert.Equal(t, 1, rec.Number)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, time.UTC, rec.Timestamp.Location())

	block, err := mem.LatestBlock(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, block.BlockNumber)
	assert.Nil(t, block.PreviousBlockID)
	require.Len(t, block.Changes, 1)
	assert.Equal(t, rec.ID, block.Changes[0].ID)
}

// =============================================================================
// SEQUENCE INVARIANT
// =============================================================================

func TestWriter_SequentialAppends_ContiguousNumbers(t *testing.T) {
	// GIVEN: a sequence of distinct mutations
	// WHEN: they are appended one after another
	// THEN: the concatenated history carries numbers 1..N, no gaps, no repeats

	w, mem := newTestWriter(t)
	ctx := context.Background()

	_, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		_, err := w.Append(ctx, "c1", attributeCandidate("courage", 10+i, 11+i))
		require.NoError(t, err)
	}

	reader := ledger.NewReader(mem)
	records, err := reader.FullHistory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, records, 10)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Number, "record %d", i)
	}
}

// =============================================================================
// IDEMPOTENT APPEND
// =============================================================================

func TestWriter_DuplicateAppend_IsNoOp(t *testing.T) {
	// GIVEN: a stored tail record
	// WHEN: the identical mutation is appended again (at-least-once retry)
	// THEN: the stored record is returned unchanged and no write happens

	w, mem := newTestWriter(t)
	ctx := context.Background()

	first, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)
	writesAfterFirst := mem.Writes()

	second, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "no new id on retry")
	assert.Equal(t, first.Number, second.Number, "no new number on retry")
	assert.Equal(t, writesAfterFirst, mem.Writes(), "retry must not write")
}

func TestWriter_DuplicateAppend_WhitespaceInsensitive(t *testing.T) {
	// GIVEN: a stored tail record
	// WHEN: the same payload arrives with different JSON whitespace
	// THEN: it is still recognized as a duplicate

	w, _ := newTestWriter(t)
	ctx := context.Background()

	first, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)

	spaced := creationCandidate()
	spaced.Data.New = json.RawMessage("{ \"name\": \"Alrik\" }")
	second, err := w.Append(ctx, "c1", spaced)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestWriter_DuplicateWindow_IsTailOnly(t *testing.T) {
	// GIVEN: mutation A, then unrelated mutation B
	// WHEN: A is submitted again
	// THEN: it is recorded fresh - only the tail is compared

	w, _ := newTestWriter(t)
	ctx := context.Background()

	_, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)
	a, err := w.Append(ctx, "c1", attributeCandidate("courage", 10, 11))
	require.NoError(t, err)
	_, err = w.Append(ctx, "c1", attributeCandidate("strength", 12, 13))
	require.NoError(t, err)

	again, err := w.Append(ctx, "c1", attributeCandidate("courage", 10, 11))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, again.ID)
	assert.Equal(t, 4, again.Number)
}

// =============================================================================
// SIZE-BOUNDED BLOCKS
// =============================================================================

func TestWriter_BlockSplit_OnSizeCeiling(t *testing.T) {
	// GIVEN: a latest block close to the byte ceiling
	// WHEN: a record that would push it over is appended
	// THEN: a new block is chained instead, and no block exceeds the ceiling

	w, mem := newTestWriter(t)
	w.MaxBlockBytes = 1000
	ctx := context.Background()

	_, err := w.Append(ctx, "c1", blobCandidate("first", 400))
	require.NoError(t, err)
	first, err := mem.LatestBlock(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 1, first.BlockNumber)

	rec, err := w.Append(ctx, "c1", blobCandidate("second", 400))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Number, "sequence continues across blocks")

	second, err := mem.LatestBlock(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.BlockNumber)
	require.NotNil(t, second.PreviousBlockID)
	assert.Equal(t, first.BlockID, *second.PreviousBlockID, "chain invariant")
	require.Len(t, second.Changes, 1)

	for _, b := range []*ledger.HistoryBlock{first, second} {
		size, err := ledger.BlockSize(b)
		require.NoError(t, err)
		assert.LessOrEqual(t, size, w.MaxBlockBytes)
	}
}

func TestWriter_RecordTooLargeForEmptyBlock_Conflict(t *testing.T) {
	// GIVEN: a record bigger than the ceiling on its own
	// WHEN: it is appended
	// THEN: the append fails with a size conflict; splitting cannot help

	w, _ := newTestWriter(t)
	w.MaxBlockBytes = 1000
	ctx := context.Background()

	_, err := w.Append(ctx, "c1", blobCandidate("huge", 2000))
	require.Error(t, err)
	var sizeErr *ledger.BlockSizeError
	assert.ErrorAs(t, err, &sizeErr)
	assert.True(t, ledger.IsConflict(err))
}

// =============================================================================
// ENVELOPE VALIDATION
// =============================================================================

func TestWriter_EnvelopeValidation(t *testing.T) {
	w, _ := newTestWriter(t)
	ctx := context.Background()

	longName := strings.Repeat("n", ledger.MaxNameLength+1)
	longComment := strings.Repeat("c", ledger.MaxCommentLength+1)
	badMethod := ledger.LearningMethod("by-osmosis")

	cases := map[string]ledger.Candidate{
		"unknown type": {
			Type: "renamed", Name: "x",
			Data: ledger.RecordData{New: json.RawMessage(`{}`)},
		},
		"empty name": {
			Type: ledger.TypeCharacterCreated, Name: "",
			Data: ledger.RecordData{New: json.RawMessage(`{}`)},
		},
		"name over bound": {
			Type: ledger.TypeCharacterCreated, Name: longName,
			Data: ledger.RecordData{New: json.RawMessage(`{}`)},
		},
		"comment over bound": {
			Type: ledger.TypeCharacterCreated, Name: "x",
			Data:    ledger.RecordData{New: json.RawMessage(`{}`)},
			Comment: &longComment,
		},
		"unknown learning method": {
			Type: ledger.TypeSkillChanged, Name: "x",
			Data: ledger.RecordData{
				Old: json.RawMessage(`{}`), New: json.RawMessage(`{}`),
			},
			LearningMethod: &badMethod,
		},
		"missing new": {
			Type: ledger.TypeLevelChanged, Name: "level",
			Data: ledger.RecordData{Old: json.RawMessage(`{}`)},
		},
		"missing old on non-creation": {
			Type: ledger.TypeLevelChanged, Name: "level",
			Data: ledger.RecordData{New: json.RawMessage(`{}`)},
		},
		"old present on creation": {
			Type: ledger.TypeCharacterCreated, Name: "x",
			Data: ledger.RecordData{
				Old: json.RawMessage(`{}`), New: json.RawMessage(`{}`),
			},
		},
	}

	for name, candidate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := w.Append(ctx, "c1", candidate)
			require.Error(t, err)
			assert.True(t, ledger.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestWriter_EmptyCharacterID_Rejected(t *testing.T) {
	w, _ := newTestWriter(t)
	_, err := w.Append(context.Background(), "", creationCandidate())
	require.Error(t, err)
	assert.True(t, ledger.IsValidation(err))
}
