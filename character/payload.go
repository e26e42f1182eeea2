/*
Package character owns the domain side of the history ledger: the per-type
payload contracts for record data, the codec that validates them, and the
revert engine that applies them in reverse.

PURPOSE:
  The ledger treats record data as opaque JSON. This package gives each of
  the eight record types a concrete payload shape, so that:
  - the Writer can reject malformed snapshots before they enter the ledger,
  - the revert engine can decode old snapshots and write them back through
    the Mutator collaborator with real types, not maps.

KEY CONCEPTS IN THIS FILE (payload.go):
  - The *State types: snapshots of one character sub-resource each.
  - The *Payload types: what data.old / data.new must look like per record
    type. One payload type per record type, closed shape (unknown fields are
    rejected by the codec).

SEE ALSO:
  - codec.go:  closed-shape validation
  - revert.go: type-directed inverse application
  - mutator.go: the collaborator that receives restored snapshots
*/
package character

import (
	"fmt"
	"strings"

	"github.com/questforge/chronicle/ledger"
)

// =============================================================================
// SUB-RESOURCE SNAPSHOTS
// =============================================================================

// AttributeState snapshots one attribute (e.g. courage, strength).
type AttributeState struct {
	Start     int `json:"start"`
	Current   int `json:"current"`
	Mod       int `json:"mod"`
	TotalCost int `json:"totalCost"`
}

// BaseValueState snapshots one derived base value (e.g. vitality). ByLvlUp
// is nil for base values that cannot be raised by level-up points.
type BaseValueState struct {
	ByFormula int  `json:"byFormula"`
	ByLvlUp   *int `json:"byLvlUp,omitempty"`
	Increased int  `json:"increased"`
	Mod       int  `json:"mod"`
	Current   int  `json:"current"`
}

// SkillState snapshots one skill.
type SkillState struct {
	Activated bool `json:"activated"`
	Start     int  `json:"start"`
	Current   int  `json:"current"`
	Mod       int  `json:"mod"`
	TotalCost int  `json:"totalCost"`
}

// CombatStatsState snapshots one combat category.
type CombatStatsState struct {
	AvailablePoints int `json:"availablePoints"`
	AttackValue     int `json:"attackValue"`
	ParadeValue     int `json:"paradeValue"`
}

// CalculationPointsState snapshots the point pools. A nil pool was not part
// of the mutation.
type CalculationPointsState struct {
	AdventurePoints *ledger.PoolState `json:"adventurePoints,omitempty"`
	AttributePoints *ledger.PoolState `json:"attributePoints,omitempty"`
}

// =============================================================================
// PER-TYPE PAYLOAD CONTRACTS
// =============================================================================

// CreationPayload is data.new of a character-created record: the full sheet
// as it came into existence. character-created has no data.old.
type CreationPayload struct {
	Name              string                    `json:"name"`
	Level             int                       `json:"level"`
	Attributes        map[string]AttributeState `json:"attributes"`
	BaseValues        map[string]BaseValueState `json:"baseValues"`
	SpecialAbilities  []string                  `json:"specialAbilities"`
	CalculationPoints CalculationPointsState    `json:"calculationPoints"`
}

// LevelPayload is data.old/new of a level-changed record.
type LevelPayload struct {
	Level int `json:"level"`
}

// CalculationPointsPayload is data.old/new of a calculation-points-changed
// record. At least one pool must be present.
type CalculationPointsPayload = CalculationPointsState

// BaseValuePayload is data.old/new of a base-value-changed record; the
// record name carries the base value key.
type BaseValuePayload = BaseValueState

// SpecialAbilitiesPayload is data.old/new of a special-abilities-changed
// record: the complete ability set before/after.
type SpecialAbilitiesPayload struct {
	Values []string `json:"values"`
}

// AttributePayload is data.old/new of an attribute-changed record. The
// optional BaseValues map carries dependent base values whose byFormula
// component shifted with the attribute.
type AttributePayload struct {
	Attribute  AttributeState            `json:"attribute"`
	BaseValues map[string]BaseValueState `json:"baseValues,omitempty"`
}

// SkillPayload is data.old/new of a skill-changed record. The optional
// CombatStats map carries combat categories affected by a combat-relevant
// skill.
type SkillPayload struct {
	Skill       SkillState                  `json:"skill"`
	CombatStats map[string]CombatStatsState `json:"combatStats,omitempty"`
}

// CombatStatsPayload is data.old/new of a combat-stats-changed record; the
// record name carries the combat category.
type CombatStatsPayload = CombatStatsState

// =============================================================================
// SKILL NAMES
// =============================================================================

// SkillRef identifies a skill, optionally with the combat category it feeds.
type SkillRef struct {
	Category       string
	Name           string
	CombatCategory string
}

// String renders the ref in record-name form:
// "skillCategory/skillName (combatCategory)", the combat suffix only when
// present.
func (s SkillRef) String() string {
	out := s.Name
	if s.Category != "" {
		out = s.Category + "/" + s.Name
	}
	if s.CombatCategory != "" {
		out += " (" + s.CombatCategory + ")"
	}
	return out
}

// ParseSkillRef parses a record name of a skill-changed record back into its
// parts.
func ParseSkillRef(name string) (SkillRef, error) {
	ref := SkillRef{}
	rest := name

	if strings.HasSuffix(rest, ")") {
		open := strings.LastIndex(rest, " (")
		if open < 0 {
			return SkillRef{}, fmt.Errorf("malformed skill name %q", name)
		}
		ref.CombatCategory = rest[open+2 : len(rest)-1]
		rest = rest[:open]
	}

	if slash := strings.Index(rest, "/"); slash >= 0 {
		ref.Category = rest[:slash]
		rest = rest[slash+1:]
	}
	if rest == "" {
		return SkillRef{}, fmt.Errorf("malformed skill name %q", name)
	}
	ref.Name = rest
	return ref, nil
}
