/*
mutator.go - Collaborator interface for writing snapshots back

PURPOSE:
  The revert engine reconstructs pre-mutation state but never touches the
  character sheet store itself; it hands restored snapshots to a Mutator.
  The character-mutation subsystem supplies the production implementation;
  this repo ships an in-memory one (memory.go) and a sqlite one
  (store/sqlite) so the revert path runs end to end.

GRANULARITY:
  One method per sub-resource. Methods touch disjoint state, so the revert
  engine may call several of them concurrently for a single revert.
*/
package character

import (
	"context"
	"errors"
)

// ErrCharacterNotFound is returned by Mutator implementations when the
// character sheet does not exist.
var ErrCharacterNotFound = errors.New("character not found")

// Mutator writes restored snapshots onto character sub-resources. Every
// method replaces the targeted sub-resource wholesale with the given
// snapshot; no arithmetic happens here.
type Mutator interface {
	// DeleteCharacter removes the character sheet entirely. Used when a
	// character-created record is reverted.
	DeleteCharacter(ctx context.Context, characterID string) error

	SetLevel(ctx context.Context, characterID string, level int) error

	// SetCalculationPoints restores whichever pools are non-nil in points;
	// nil pools are left untouched.
	SetCalculationPoints(ctx context.Context, characterID string, points CalculationPointsState) error

	SetBaseValue(ctx context.Context, characterID, name string, value BaseValueState) error

	SetSpecialAbilities(ctx context.Context, characterID string, values []string) error

	SetAttribute(ctx context.Context, characterID, name string, attr AttributeState) error

	SetSkill(ctx context.Context, characterID string, skill SkillRef, state SkillState) error

	SetCombatStats(ctx context.Context, characterID, name string, stats CombatStatsState) error
}
