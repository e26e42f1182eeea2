/*
revert.go - Type-directed reversal of the latest history entry

PURPOSE:
  Reverting means: take the tail record of a character's history, write its
  old snapshots back onto the affected sub-resources, then remove the record
  from its block (or delete the block if it held nothing else).

LIFO DISCIPLINE:
  Only the globally latest record may be reverted. Anything else fails with
  a tail-conflict error; allowing mid-history reversal would desynchronize
  point balances from the remaining records.

INVERSE APPLICATION:
  Dispatch is an exhaustive switch over the record type enum, one inverse
  routine per type. A routine may touch several disjoint sub-resources
  (attribute-changed also restores dependent base values); those writes run
  concurrently and are jointly awaited. On any failure the block truncation
  is NOT attempted: the ledger record stays, already-applied sub-resource
  writes are not rolled back, and retrying the same revert re-applies the
  remaining snapshots idempotently. This is a deliberate at-least-once
  guarantee, not exactly-once.

LIFECYCLE:
  appended -> (optionally annotated) -> reverted-and-removed. Reversal is
  terminal; re-applying requires a fresh mutation through the Writer.

SEE ALSO:
  - codec.go:   payload revalidation before dispatch
  - mutator.go: where restored snapshots go
*/
package character

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/questforge/chronicle/ledger"
)

// Reverter removes the latest history entry of a character after restoring
// the state it had overwritten.
type Reverter struct {
	Store   ledger.BlockStore
	Reader  *ledger.Reader
	Codec   *Codec
	Mutator Mutator
	Log     zerolog.Logger
}

func NewReverter(store ledger.BlockStore, mutator Mutator) *Reverter {
	return &Reverter{
		Store:   store,
		Reader:  ledger.NewReader(store),
		Codec:   NewCodec(),
		Mutator: mutator,
		Log:     zerolog.Nop(),
	}
}

// Revert undoes the record with recordID, which must be the tail of the
// character's history. Returns the removed record as it was stored.
func (rv *Reverter) Revert(ctx context.Context, characterID, recordID string) (*ledger.Record, error) {
	page, err := rv.Reader.Page(ctx, characterID, nil)
	if err != nil {
		return nil, err
	}
	block := page.Items[0]
	tail := block.Tail()
	if tail == nil {
		return nil, ledger.ErrRecordNotFound
	}
	if tail.ID != recordID {
		return nil, &ledger.TailConflictError{
			CharacterID: characterID,
			RequestedID: recordID,
			TailID:      tail.ID,
		}
	}
	if !tail.Type.Known() {
		// Unreachable for records the Writer admitted; internal, not a
		// caller error.
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownRecordType, tail.Type)
	}

	// Stored records passed validation at append time; revalidate anyway so
	// shape drift fails loudly here instead of half-applied below.
	if err := rv.Codec.ValidatePayload(tail.Type, tail.Data); err != nil {
		return nil, err
	}

	ops, err := rv.inverseOps(characterID, *tail)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, op := range ops {
		op := op
		g.Go(func() error { return op(gctx) })
	}
	if err := g.Wait(); err != nil {
		// Leave the record in place: a retry of the same revert call will
		// re-attempt every snapshot, and re-applying an already restored one
		// is harmless.
		rv.Log.Error().Err(err).
			Str("characterId", characterID).
			Str("recordId", recordID).
			Str("recordType", string(tail.Type)).
			Msg("inverse application failed; history entry kept")
		return nil, fmt.Errorf("inverse application of %s: %w", tail.Type, err)
	}

	if len(block.Changes) == 1 {
		err = rv.Store.DeleteBlock(ctx, characterID, block.BlockNumber)
	} else {
		err = rv.Store.RemoveTailRecord(ctx, characterID, block.BlockNumber, len(block.Changes))
	}
	if err != nil {
		return nil, err
	}

	removed := *tail
	return &removed, nil
}

type inverseOp func(context.Context) error

// inverseOps builds the sub-resource writes that undo rec. The switch is
// exhaustive over the record type enum; the default arm is unreachable for
// records the Writer admitted.
func (rv *Reverter) inverseOps(characterID string, rec ledger.Record) ([]inverseOp, error) {
	var ops []inverseOp

	switch rec.Type {
	case ledger.TypeCharacterCreated:
		// Undoing creation removes the sheet; there is no old snapshot and
		// no pool left to restore.
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.DeleteCharacter(ctx, characterID)
		})
		return ops, nil

	case ledger.TypeLevelChanged:
		var p LevelPayload
		if err := decodeStrict(rec.Data.Old, &p); err != nil {
			return nil, err
		}
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.SetLevel(ctx, characterID, p.Level)
		})

	case ledger.TypeCalculationPointsChanged:
		// The payload itself is the pool snapshot; the generic pool restore
		// below would duplicate it, so this type handles its own.
		var p CalculationPointsPayload
		if err := decodeStrict(rec.Data.Old, &p); err != nil {
			return nil, err
		}
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.SetCalculationPoints(ctx, characterID, p)
		})
		return ops, nil

	case ledger.TypeBaseValueChanged:
		var p BaseValuePayload
		if err := decodeStrict(rec.Data.Old, &p); err != nil {
			return nil, err
		}
		name := rec.Name
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.SetBaseValue(ctx, characterID, name, p)
		})

	case ledger.TypeSpecialAbilitiesChanged:
		var p SpecialAbilitiesPayload
		if err := decodeStrict(rec.Data.Old, &p); err != nil {
			return nil, err
		}
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.SetSpecialAbilities(ctx, characterID, p.Values)
		})

	case ledger.TypeAttributeChanged:
		var p AttributePayload
		if err := decodeStrict(rec.Data.Old, &p); err != nil {
			return nil, err
		}
		name := rec.Name
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.SetAttribute(ctx, characterID, name, p.Attribute)
		})
		for bvName, bv := range p.BaseValues {
			bvName, bv := bvName, bv
			ops = append(ops, func(ctx context.Context) error {
				return rv.Mutator.SetBaseValue(ctx, characterID, bvName, bv)
			})
		}

	case ledger.TypeSkillChanged:
		var p SkillPayload
		if err := decodeStrict(rec.Data.Old, &p); err != nil {
			return nil, err
		}
		ref, err := ParseSkillRef(rec.Name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.SetSkill(ctx, characterID, ref, p.Skill)
		})
		for csName, cs := range p.CombatStats {
			csName, cs := csName, cs
			ops = append(ops, func(ctx context.Context) error {
				return rv.Mutator.SetCombatStats(ctx, characterID, csName, cs)
			})
		}

	case ledger.TypeCombatStatsChanged:
		var p CombatStatsPayload
		if err := decodeStrict(rec.Data.Old, &p); err != nil {
			return nil, err
		}
		name := rec.Name
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.SetCombatStats(ctx, characterID, name, p)
		})

	default:
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownRecordType, rec.Type)
	}

	// Restore whichever point pools the mutation touched, per the envelope
	// snapshots.
	if cp := rec.CalculationPoints; cp.AdventurePoints != nil || cp.AttributePoints != nil {
		state := CalculationPointsState{}
		if cp.AdventurePoints != nil {
			old := cp.AdventurePoints.Old
			state.AdventurePoints = &old
		}
		if cp.AttributePoints != nil {
			old := cp.AttributePoints.Old
			state.AttributePoints = &old
		}
		ops = append(ops, func(ctx context.Context) error {
			return rv.Mutator.SetCalculationPoints(ctx, characterID, state)
		})
	}
	return ops, nil
}
