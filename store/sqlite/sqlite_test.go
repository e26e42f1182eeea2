package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questforge/chronicle/character"
	"github.com/questforge/chronicle/ledger"
	"github.com/questforge/chronicle/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id string, number int) ledger.Record {
	return ledger.Record{
		Type:   ledger.TypeLevelChanged,
		Name:   "level",
		Number: number,
		ID:     id,
		Data: ledger.RecordData{
			Old: []byte(`{"level":1}`),
			New: []byte(`{"level":2}`),
		},
	}
}

func testBlock(characterID string, number int, records ...ledger.Record) ledger.HistoryBlock {
	return ledger.HistoryBlock{
		CharacterID: characterID,
		BlockNumber: number,
		BlockID:     characterID + "-b" + string(rune('0'+number)),
		Changes:     records,
	}
}

// =============================================================================
// BLOCK READS
// =============================================================================

func TestStore_LatestBlock_NoHistory(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LatestBlock(context.Background(), "ghost")
	assert.ErrorIs(t, err, ledger.ErrNoHistory)
}

func TestStore_LatestBlock_PicksHighestNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBlock(ctx, testBlock("c1", 1, testRecord("r1", 1))))
	prev := "c1-b1"
	require.NoError(t, s.CreateBlock(ctx, ledger.HistoryBlock{
		CharacterID:     "c1",
		BlockNumber:     2,
		BlockID:         "c1-b2",
		PreviousBlockID: &prev,
		Changes:         []ledger.Record{testRecord("r2", 2)},
	}))

	block, err := s.LatestBlock(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, block.BlockNumber)
	require.NotNil(t, block.PreviousBlockID)
	assert.Equal(t, "c1-b1", *block.PreviousBlockID)
	require.Len(t, block.Changes, 1)
	assert.Equal(t, "r2", block.Changes[0].ID)
}

func TestStore_BlockByNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBlock(ctx, testBlock("c1", 1, testRecord("r1", 1))))

	block, err := s.BlockByNumber(ctx, "c1", 1)
	require.NoError(t, err)
	assert.Equal(t, "c1-b1", block.BlockID)
	assert.Nil(t, block.PreviousBlockID)

	_, err = s.BlockByNumber(ctx, "c1", 2)
	assert.ErrorIs(t, err, ledger.ErrBlockNotFound)
}

func TestStore_CreateBlock_DuplicateNumber_Conflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBlock(ctx, testBlock("c1", 1, testRecord("r1", 1))))
	err := s.CreateBlock(ctx, testBlock("c1", 1, testRecord("r9", 1)))
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

// =============================================================================
// GUARDED WRITES
// =============================================================================

func TestStore_AppendRecord_Guard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBlock(ctx, testBlock("c1", 1, testRecord("r1", 1))))

	// Guard matches: the record lands at the tail.
	require.NoError(t, s.AppendRecord(ctx, "c1", 1, 1, testRecord("r2", 2)))
	block, err := s.BlockByNumber(ctx, "c1", 1)
	require.NoError(t, err)
	require.Len(t, block.Changes, 2)
	assert.Equal(t, "r2", block.Changes[1].ID)

	// Stale guard: someone else appended first.
	err = s.AppendRecord(ctx, "c1", 1, 1, testRecord("r3", 3))
	assert.ErrorIs(t, err, ledger.ErrConflict)

	// Missing block is a different failure than a lost race.
	err = s.AppendRecord(ctx, "c1", 7, 0, testRecord("r3", 3))
	assert.ErrorIs(t, err, ledger.ErrBlockNotFound)
}

func TestStore_RemoveTailRecord_Guard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBlock(ctx, testBlock("c1", 1, testRecord("r1", 1), testRecord("r2", 2))))

	assert.ErrorIs(t, s.RemoveTailRecord(ctx, "c1", 1, 1), ledger.ErrConflict, "stale length")
	assert.ErrorIs(t, s.RemoveTailRecord(ctx, "c1", 1, 0), ledger.ErrConflict, "nothing to remove")

	require.NoError(t, s.RemoveTailRecord(ctx, "c1", 1, 2))
	block, err := s.BlockByNumber(ctx, "c1", 1)
	require.NoError(t, err)
	require.Len(t, block.Changes, 1)
	assert.Equal(t, "r1", block.Changes[0].ID)
}

func TestStore_SetRecordComment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBlock(ctx, testBlock("c1", 1, testRecord("r1", 1), testRecord("r2", 2))))

	require.NoError(t, s.SetRecordComment(ctx, "c1", 1, 1, "r2", "spent points at the academy"))

	block, err := s.BlockByNumber(ctx, "c1", 1)
	require.NoError(t, err)
	assert.Nil(t, block.Changes[0].Comment)
	require.NotNil(t, block.Changes[1].Comment)
	assert.Equal(t, "spent points at the academy", *block.Changes[1].Comment)

	// The record id guards against the array shifting under the caller.
	err = s.SetRecordComment(ctx, "c1", 1, 0, "r9", "stale")
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestStore_DeleteBlock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBlock(ctx, testBlock("c1", 1, testRecord("r1", 1))))
	require.NoError(t, s.DeleteBlock(ctx, "c1", 1))

	_, err := s.LatestBlock(ctx, "c1")
	assert.ErrorIs(t, err, ledger.ErrNoHistory)

	assert.ErrorIs(t, s.DeleteBlock(ctx, "c1", 1), ledger.ErrBlockNotFound)
}

// =============================================================================
// CHARACTER SHEETS
// =============================================================================

func TestStore_Sheet_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sheet := character.NewSheet("Alrik")
	sheet.Level = 3
	sheet.Attributes["courage"] = character.AttributeState{Start: 11, Current: 12, TotalCost: 15}
	sheet.Skills["weapons/swords"] = character.SkillState{Activated: true, Current: 4}
	sheet.SpecialAbilities = []string{"ambidextrous"}
	require.NoError(t, s.CreateCharacter(ctx, "c1", sheet))

	got, err := s.Sheet(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Alrik", got.Name)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, sheet.Attributes["courage"], got.Attributes["courage"])
	assert.Equal(t, sheet.Skills["weapons/swords"], got.Skills["weapons/swords"])
	assert.Equal(t, []string{"ambidextrous"}, got.SpecialAbilities)

	_, err = s.Sheet(ctx, "ghost")
	assert.ErrorIs(t, err, character.ErrCharacterNotFound)
}

func TestStore_Mutator_PathWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCharacter(ctx, "c1", character.NewSheet("Alrik")))

	require.NoError(t, s.SetLevel(ctx, "c1", 5))
	require.NoError(t, s.SetAttribute(ctx, "c1", "courage", character.AttributeState{Start: 11, Current: 13}))
	require.NoError(t, s.SetBaseValue(ctx, "c1", "vitality", character.BaseValueState{ByFormula: 32, Current: 33}))
	require.NoError(t, s.SetSkill(ctx, "c1",
		character.SkillRef{Category: "weapons", Name: "swords"},
		character.SkillState{Activated: true, Current: 6}))
	require.NoError(t, s.SetCombatStats(ctx, "c1", "swords", character.CombatStatsState{AttackValue: 10}))
	require.NoError(t, s.SetSpecialAbilities(ctx, "c1", []string{"iron will"}))
	require.NoError(t, s.SetCalculationPoints(ctx, "c1", character.CalculationPointsState{
		AdventurePoints: &ledger.PoolState{Available: 80, Total: 120},
	}))

	got, err := s.Sheet(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Level)
	assert.Equal(t, character.AttributeState{Start: 11, Current: 13}, got.Attributes["courage"])
	assert.Equal(t, character.BaseValueState{ByFormula: 32, Current: 33}, got.BaseValues["vitality"])
	assert.Equal(t, character.SkillState{Activated: true, Current: 6}, got.Skills["weapons/swords"])
	assert.Equal(t, character.CombatStatsState{AttackValue: 10}, got.CombatStats["swords"])
	assert.Equal(t, []string{"iron will"}, got.SpecialAbilities)
	require.NotNil(t, got.CalculationPoints.AdventurePoints)
	assert.Equal(t, ledger.PoolState{Available: 80, Total: 120}, *got.CalculationPoints.AdventurePoints)

	assert.ErrorIs(t, s.SetLevel(ctx, "ghost", 2), character.ErrCharacterNotFound)
}

func TestStore_DeleteCharacter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCharacter(ctx, "c1", character.NewSheet("Alrik")))
	require.NoError(t, s.DeleteCharacter(ctx, "c1"))

	_, err := s.Sheet(ctx, "c1")
	assert.ErrorIs(t, err, character.ErrCharacterNotFound)
}

// =============================================================================
// END TO END - writer and reverter on the same database
// =============================================================================

func TestStore_WriterAndReverter_EndToEnd(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	writer := ledger.NewWriter(s, character.NewCodec())
	reverter := character.NewReverter(s, s)

	require.NoError(t, s.CreateCharacter(ctx, "c1", character.NewSheet("Alrik")))

	created, err := writer.Append(ctx, "c1", ledger.Candidate{
		Type: ledger.TypeCharacterCreated,
		Name: "Alrik",
		Data: ledger.RecordData{New: []byte(`{
			"name": "Alrik", "level": 1,
			"attributes": {}, "baseValues": {}, "specialAbilities": [],
			"calculationPoints": {"adventurePoints": {"available": 100, "total": 100}}
		}`)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, created.Number)

	level, err := writer.Append(ctx, "c1", ledger.Candidate{
		Type: ledger.TypeLevelChanged,
		Name: "level",
		Data: ledger.RecordData{
			Old: []byte(`{"level":1}`),
			New: []byte(`{"level":2}`),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, level.Number)

	// A second identical append is a no-op returning the stored tail.
	again, err := writer.Append(ctx, "c1", ledger.Candidate{
		Type: ledger.TypeLevelChanged,
		Name: "level",
		Data: ledger.RecordData{
			Old: []byte(`{"level":1}`),
			New: []byte(`{"level":2}`),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, level.ID, again.ID)

	removed, err := reverter.Revert(ctx, "c1", level.ID)
	require.NoError(t, err)
	assert.Equal(t, level.ID, removed.ID)

	sheet, err := s.Sheet(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, sheet.Level, "level restored from the old snapshot")

	block, err := s.LatestBlock(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, block.Changes, 1)
	assert.Equal(t, created.ID, block.Changes[0].ID)
}
