package ledger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questforge/chronicle/ledger"
)

func TestAnnotator_SetComment_LatestBlock(t *testing.T) {
	// GIVEN: a record in the latest block
	// WHEN: a comment is set without naming a block
	// THEN: the record in the latest block carries the comment

	w, mem := newTestWriter(t)
	ctx := context.Background()

	rec, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)

	annotator := ledger.NewAnnotator(mem)
	result, err := annotator.SetComment(ctx, "c1", rec.ID, "session one", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BlockNumber)
	assert.Equal(t, rec.ID, result.RecordID)
	assert.Equal(t, "session one", result.Comment)

	block, err := mem.LatestBlock(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, block.Changes[0].Comment)
	assert.Equal(t, "session one", *block.Changes[0].Comment)
}

func TestAnnotator_SetComment_ExplicitBlock(t *testing.T) {
	// GIVEN: a record that has been paged out of the latest block
	// WHEN: a comment is set with an explicit block number
	// THEN: the older record is annotated

	w, mem := newTestWriter(t)
	w.MaxBlockBytes = 1000
	ctx := context.Background()

	first, err := w.Append(ctx, "c1", blobCandidate("one", 400))
	require.NoError(t, err)
	_, err = w.Append(ctx, "c1", blobCandidate("two", 420))
	require.NoError(t, err)

	annotator := ledger.NewAnnotator(mem)
	one := 1
	result, err := annotator.SetComment(ctx, "c1", first.ID, "archived note", &one)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BlockNumber)

	block, err := mem.BlockByNumber(ctx, "c1", 1)
	require.NoError(t, err)
	require.NotNil(t, block.Changes[0].Comment)
	assert.Equal(t, "archived note", *block.Changes[0].Comment)
}

func TestAnnotator_SetComment_LastWriteWins(t *testing.T) {
	w, mem := newTestWriter(t)
	ctx := context.Background()

	rec, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)

	annotator := ledger.NewAnnotator(mem)
	_, err = annotator.SetComment(ctx, "c1", rec.ID, "first", nil)
	require.NoError(t, err)
	result, err := annotator.SetComment(ctx, "c1", rec.ID, "second", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", result.Comment)
}

func TestAnnotator_RecordMissingInTargetBlock(t *testing.T) {
	// GIVEN: a record id that lives in block 1
	// WHEN: the comment targets the latest block (block 2)
	// THEN: the annotation fails with record-not-found

	w, mem := newTestWriter(t)
	w.MaxBlockBytes = 1000
	ctx := context.Background()

	first, err := w.Append(ctx, "c1", blobCandidate("one", 400))
	require.NoError(t, err)
	_, err = w.Append(ctx, "c1", blobCandidate("two", 420))
	require.NoError(t, err)

	annotator := ledger.NewAnnotator(mem)
	_, err = annotator.SetComment(ctx, "c1", first.ID, "lost", nil)
	assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
}

func TestAnnotator_CommentOverBound_Rejected(t *testing.T) {
	w, mem := newTestWriter(t)
	ctx := context.Background()

	rec, err := w.Append(ctx, "c1", creationCandidate())
	require.NoError(t, err)

	annotator := ledger.NewAnnotator(mem)
	_, err = annotator.SetComment(ctx, "c1", rec.ID, strings.Repeat("c", ledger.MaxCommentLength+1), nil)
	require.Error(t, err)
	assert.True(t, ledger.IsValidation(err))
}
