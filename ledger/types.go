/*
Package ledger provides the append-only character history ledger.

PURPOSE:
  This package contains the storage-agnostic core of the history subsystem:
  the Record and HistoryBlock types, the BlockStore persistence contract, and
  the four operations built on top of it (Writer, Reader, RevertEngine hooks,
  Annotator).

KEY CONCEPTS IN THIS FILE (types.go):
  - Record:       One immutable mutation event on a character.
  - HistoryBlock: A size-bounded, chained storage unit holding Records.
  - RecordType:   Tagged enum selecting the payload contract for Record.Data.

CRITICAL INVARIANTS:
  1. SEQUENCE: Record.Number is contiguous and strictly increasing across the
     concatenation of all blocks of a character (oldest block first).
  2. CHAIN: block N's PreviousBlockID equals block N-1's BlockID; block 1 has
     none. The chain is for backward pagination, not tamper-evidence.
  3. SIZE: a block's serialized size never exceeds the byte ceiling. The
     ceiling is on bytes, not record count - a few huge records fill a block.
  4. TAIL-ONLY MUTATION: blocks are appended to at the tail, shrunk at the
     tail (revert), and deleted only when the last record is reverted away.

OPAQUE PAYLOADS:
  Record.Data carries old/new snapshots as raw JSON. The ledger never
  interprets them; the domain codec (package character) validates them
  against the per-type contract before a record is admitted.

SEE ALSO:
  - store.go:  BlockStore persistence contract
  - writer.go: append path (idempotency, numbering, block splitting)
  - errors.go: error taxonomy
*/
package ledger

import (
	"bytes"
	"encoding/json"
	"time"
)

// =============================================================================
// RECORD TYPE - Tagged enum over the eight mutation kinds
// =============================================================================

type RecordType string

const (
	TypeCharacterCreated         RecordType = "character-created"
	TypeLevelChanged             RecordType = "level-changed"
	TypeCalculationPointsChanged RecordType = "calculation-points-changed"
	TypeBaseValueChanged         RecordType = "base-value-changed"
	TypeSpecialAbilitiesChanged  RecordType = "special-abilities-changed"
	TypeAttributeChanged         RecordType = "attribute-changed"
	TypeSkillChanged             RecordType = "skill-changed"
	TypeCombatStatsChanged       RecordType = "combat-stats-changed"
)

// RecordTypes lists every known type, in a stable order.
// Used by validation and by exhaustiveness tests.
var RecordTypes = []RecordType{
	TypeCharacterCreated,
	TypeLevelChanged,
	TypeCalculationPointsChanged,
	TypeBaseValueChanged,
	TypeSpecialAbilitiesChanged,
	TypeAttributeChanged,
	TypeSkillChanged,
	TypeCombatStatsChanged,
}

// Known reports whether t is one of the eight record types.
func (t RecordType) Known() bool {
	for _, known := range RecordTypes {
		if t == known {
			return true
		}
	}
	return false
}

// =============================================================================
// LEARNING METHOD - Cost-adjustment tag for point-spend mutations
// =============================================================================

type LearningMethod string

const (
	LearnFree     LearningMethod = "free"
	LearnLowPrice LearningMethod = "low-priced"
	LearnNormal   LearningMethod = "normal"
	LearnExpensive LearningMethod = "expensive"
)

func (m LearningMethod) Known() bool {
	switch m {
	case LearnFree, LearnLowPrice, LearnNormal, LearnExpensive:
		return true
	}
	return false
}

// =============================================================================
// CALCULATION POINTS - Before/after snapshots of the two point pools
// =============================================================================

// PoolState is a point pool snapshot. The ledger records these values; it
// never computes them.
type PoolState struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

// PoolChange pairs the pool state before and after a mutation.
type PoolChange struct {
	Old PoolState `json:"old"`
	New PoolState `json:"new"`
}

// CalculationPoints snapshots whichever of the two pools a mutation touched.
// A nil pool means the mutation did not touch it.
type CalculationPoints struct {
	AdventurePoints *PoolChange `json:"adventurePoints"`
	AttributePoints *PoolChange `json:"attributePoints"`
}

// =============================================================================
// RECORD - One mutation event
// =============================================================================

// Field bounds. Oversized values are rejected at append time, never truncated.
const (
	MaxNameLength    = 100
	MaxCommentLength = 500
)

// RecordData carries the before/after snapshots of the mutated sub-resource.
// Old is absent only for character-created records.
type RecordData struct {
	Old json.RawMessage `json:"old,omitempty"`
	New json.RawMessage `json:"new"`
}

// Record is one immutable mutation event. Number, ID and Timestamp are
// assigned by the Writer at append time; Comment is the only field that may
// change afterwards (see Annotator).
type Record struct {
	Type              RecordType        `json:"type"`
	Name              string            `json:"name"`
	Number            int               `json:"number"`
	ID                string            `json:"id"`
	Data              RecordData        `json:"data"`
	LearningMethod    *LearningMethod   `json:"learningMethod"`
	CalculationPoints CalculationPoints `json:"calculationPoints"`
	Comment           *string           `json:"comment"`
	Timestamp         time.Time         `json:"timestamp"`
}

// Candidate is a Record before the Writer has admitted it: everything the
// caller supplies, minus the Writer-assigned Number, ID and Timestamp.
type Candidate struct {
	Type              RecordType
	Name              string
	Data              RecordData
	LearningMethod    *LearningMethod
	CalculationPoints CalculationPoints
	Comment           *string
}

// SameMutation reports whether the candidate is semantically identical to an
// already stored record: same type, name, learning method, and byte-identical
// canonical serialization of data and calculation points. This is the
// duplicate-suppression check for at-least-once delivery; it deliberately
// compares exact payload bytes, so retries must resubmit identical payloads.
func (c Candidate) SameMutation(r Record) bool {
	if c.Type != r.Type || c.Name != r.Name {
		return false
	}
	if (c.LearningMethod == nil) != (r.LearningMethod == nil) {
		return false
	}
	if c.LearningMethod != nil && *c.LearningMethod != *r.LearningMethod {
		return false
	}
	if !equalJSON(c.Data.Old, r.Data.Old) || !equalJSON(c.Data.New, r.Data.New) {
		return false
	}
	cp1, err1 := json.Marshal(c.CalculationPoints)
	cp2, err2 := json.Marshal(r.CalculationPoints)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(cp1, cp2)
}

// equalJSON compares two JSON documents after compaction, so that whitespace
// differences between a stored record and a resubmitted one do not defeat
// duplicate suppression.
func equalJSON(a, b json.RawMessage) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return false
	}
	if err := json.Compact(&cb, b); err != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// =============================================================================
// HISTORY BLOCK - Size-bounded, chained storage unit
// =============================================================================

// HistoryBlock is one storage item: a bounded, ordered run of Records owned
// by a single character. Append order equals chronological order.
type HistoryBlock struct {
	CharacterID     string   `json:"characterId"`
	BlockNumber     int      `json:"blockNumber"`
	BlockID         string   `json:"blockId"`
	PreviousBlockID *string  `json:"previousBlockId"`
	Changes         []Record `json:"changes"`
}

// Tail returns the last record of the block, or nil if the block is empty.
// An empty block never persists (it is deleted on revert), so nil only shows
// up on hand-built values in tests.
func (b *HistoryBlock) Tail() *Record {
	if len(b.Changes) == 0 {
		return nil
	}
	return &b.Changes[len(b.Changes)-1]
}
