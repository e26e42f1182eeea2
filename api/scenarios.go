/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Seeds a character sheet plus a believable progression history so the API
  can be exercised without the real character-mutation subsystem in front of
  it. Each load creates a fresh character id, so scenarios never need a
  database reset.

AVAILABLE SCENARIOS:
  young-hero:  creation plus a first attribute raise and a skill activation
  veteran:     creation plus a level-up session touching every record type

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "veteran"}

NOTE:
  Development/demo environments only. The append endpoint itself stays the
  one true write path - scenarios go through the Writer like everyone else.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/questforge/chronicle/character"
	"github.com/questforge/chronicle/ledger"
)

// CharacterSeeder creates character sheets for scenario seeding. Both the
// in-memory mutator and the sqlite store implement it.
type CharacterSeeder interface {
	CreateCharacter(ctx context.Context, characterID string, sheet *character.Sheet) error
}

// =============================================================================
// SCENARIO CATALOG
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "young-hero",
		Name:        "Young Hero",
		Description: "Fresh character with a first attribute raise and a skill activation",
	},
	{
		ID:          "veteran",
		Name:        "Veteran",
		Description: "Level-up session touching every history record type",
	},
}

// ListScenarios returns the scenario catalog.
func (h *Handler) ListScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the selected scenario under a fresh character id.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	characterID := uuid.NewString()
	var (
		records int
		err     error
	)
	switch req.ScenarioID {
	case "young-hero":
		records, err = h.loadYoungHero(r.Context(), characterID)
	case "veteran":
		records, err = h.loadVeteran(r.Context(), characterID)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		h.writeDomainError(w, r, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		ScenarioID:  req.ScenarioID,
		CharacterID: characterID,
		Records:     records,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadYoungHero(ctx context.Context, characterID string) (int, error) {
	sheet := character.NewSheet("Alrik of Gareth")
	sheet.Level = 1
	sheet.Attributes["courage"] = character.AttributeState{Start: 11, Current: 12, Mod: 0, TotalCost: 15}
	sheet.Skills["body/sneak"] = character.SkillState{Activated: true, Start: 0, Current: 1, TotalCost: 5}
	sheet.CalculationPoints = character.CalculationPointsState{
		AdventurePoints: &ledger.PoolState{Available: 80, Total: 100},
	}
	if err := h.Seeder.CreateCharacter(ctx, characterID, sheet); err != nil {
		return 0, err
	}

	candidates := []ledger.Candidate{
		creationCandidate(sheet.Name),
		attributeCandidate("courage",
			character.AttributeState{Start: 11, Current: 11, TotalCost: 0},
			character.AttributeState{Start: 11, Current: 12, TotalCost: 15},
			pools(100, 100, 85, 100)),
		skillCandidate("body/sneak",
			character.SkillState{},
			character.SkillState{Activated: true, Current: 1, TotalCost: 5},
			pools(85, 100, 80, 100)),
	}
	return h.seed(ctx, characterID, candidates)
}

func (h *Handler) loadVeteran(ctx context.Context, characterID string) (int, error) {
	sheet := character.NewSheet("Thorn Eisinger")
	sheet.Level = 2
	sheet.Attributes["strength"] = character.AttributeState{Start: 13, Current: 14, TotalCost: 20}
	sheet.BaseValues["vitality"] = character.BaseValueState{ByFormula: 32, Increased: 1, Current: 33}
	sheet.Skills["weapons/swords"] = character.SkillState{Activated: true, Start: 2, Current: 4, TotalCost: 40}
	sheet.CombatStats["swords"] = character.CombatStatsState{AvailablePoints: 2, AttackValue: 9, ParadeValue: 8}
	sheet.SpecialAbilities = []string{"ambidextrous", "shield fighter"}
	sheet.CalculationPoints = character.CalculationPointsState{
		AdventurePoints: &ledger.PoolState{Available: 20, Total: 250},
		AttributePoints: &ledger.PoolState{Available: 0, Total: 2},
	}
	if err := h.Seeder.CreateCharacter(ctx, characterID, sheet); err != nil {
		return 0, err
	}

	candidates := []ledger.Candidate{
		creationCandidate(sheet.Name),
		levelCandidate(1, 2),
		calculationPointsCandidate(pools(150, 150, 250, 250)),
		attributeCandidate("strength",
			character.AttributeState{Start: 13, Current: 13},
			character.AttributeState{Start: 13, Current: 14, TotalCost: 20},
			calcPoints(&ledger.PoolChange{Old: ledger.PoolState{Available: 2, Total: 2}, New: ledger.PoolState{Available: 0, Total: 2}}, nil)),
		baseValueCandidate("vitality",
			character.BaseValueState{ByFormula: 32, Current: 32},
			character.BaseValueState{ByFormula: 32, Increased: 1, Current: 33},
			pools(250, 250, 200, 250)),
		specialAbilitiesCandidate(
			[]string{"ambidextrous"},
			[]string{"ambidextrous", "shield fighter"},
			pools(200, 250, 120, 250)),
		skillCandidate("weapons/swords (swords)",
			character.SkillState{Activated: true, Start: 2, Current: 3, TotalCost: 25},
			character.SkillState{Activated: true, Start: 2, Current: 4, TotalCost: 40},
			pools(120, 250, 20, 250)),
		combatStatsCandidate("swords",
			character.CombatStatsState{AvailablePoints: 3, AttackValue: 8, ParadeValue: 8},
			character.CombatStatsState{AvailablePoints: 2, AttackValue: 9, ParadeValue: 8},
			ledger.CalculationPoints{}),
	}
	return h.seed(ctx, characterID, candidates)
}

func (h *Handler) seed(ctx context.Context, characterID string, candidates []ledger.Candidate) (int, error) {
	for i, c := range candidates {
		if _, err := h.Writer.Append(ctx, characterID, c); err != nil {
			return i, fmt.Errorf("seed record %d: %w", i+1, err)
		}
	}
	return len(candidates), nil
}

// =============================================================================
// CANDIDATE BUILDERS
// =============================================================================

func mustPayload(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err) // static seed data, cannot fail
	}
	return raw
}

func pools(oldAvail, oldTotal, newAvail, newTotal int) ledger.CalculationPoints {
	return calcPoints(nil, &ledger.PoolChange{
		Old: ledger.PoolState{Available: oldAvail, Total: oldTotal},
		New: ledger.PoolState{Available: newAvail, Total: newTotal},
	})
}

func calcPoints(attribute, adventure *ledger.PoolChange) ledger.CalculationPoints {
	return ledger.CalculationPoints{AdventurePoints: adventure, AttributePoints: attribute}
}

func creationCandidate(name string) ledger.Candidate {
	return ledger.Candidate{
		Type: ledger.TypeCharacterCreated,
		Name: name,
		Data: ledger.RecordData{New: mustPayload(character.CreationPayload{
			Name:             name,
			Level:            1,
			Attributes:       map[string]character.AttributeState{},
			BaseValues:       map[string]character.BaseValueState{},
			SpecialAbilities: []string{},
			CalculationPoints: character.CalculationPointsState{
				AdventurePoints: &ledger.PoolState{Available: 100, Total: 100},
			},
		})},
	}
}

func levelCandidate(oldLevel, newLevel int) ledger.Candidate {
	return ledger.Candidate{
		Type: ledger.TypeLevelChanged,
		Name: "level",
		Data: ledger.RecordData{
			Old: mustPayload(character.LevelPayload{Level: oldLevel}),
			New: mustPayload(character.LevelPayload{Level: newLevel}),
		},
	}
}

func calculationPointsCandidate(points ledger.CalculationPoints) ledger.Candidate {
	old := character.CalculationPointsState{}
	new_ := character.CalculationPointsState{}
	if points.AdventurePoints != nil {
		o, n := points.AdventurePoints.Old, points.AdventurePoints.New
		old.AdventurePoints, new_.AdventurePoints = &o, &n
	}
	if points.AttributePoints != nil {
		o, n := points.AttributePoints.Old, points.AttributePoints.New
		old.AttributePoints, new_.AttributePoints = &o, &n
	}
	return ledger.Candidate{
		Type:              ledger.TypeCalculationPointsChanged,
		Name:              "calculationPoints",
		Data:              ledger.RecordData{Old: mustPayload(old), New: mustPayload(new_)},
		CalculationPoints: points,
	}
}

func attributeCandidate(name string, old, new_ character.AttributeState, points ledger.CalculationPoints) ledger.Candidate {
	method := ledger.LearnNormal
	return ledger.Candidate{
		Type: ledger.TypeAttributeChanged,
		Name: name,
		Data: ledger.RecordData{
			Old: mustPayload(character.AttributePayload{Attribute: old}),
			New: mustPayload(character.AttributePayload{Attribute: new_}),
		},
		LearningMethod:    &method,
		CalculationPoints: points,
	}
}

func baseValueCandidate(name string, old, new_ character.BaseValueState, points ledger.CalculationPoints) ledger.Candidate {
	return ledger.Candidate{
		Type: ledger.TypeBaseValueChanged,
		Name: name,
		Data: ledger.RecordData{
			Old: mustPayload(old),
			New: mustPayload(new_),
		},
		CalculationPoints: points,
	}
}

func specialAbilitiesCandidate(old, new_ []string, points ledger.CalculationPoints) ledger.Candidate {
	return ledger.Candidate{
		Type: ledger.TypeSpecialAbilitiesChanged,
		Name: "specialAbilities",
		Data: ledger.RecordData{
			Old: mustPayload(character.SpecialAbilitiesPayload{Values: old}),
			New: mustPayload(character.SpecialAbilitiesPayload{Values: new_}),
		},
		CalculationPoints: points,
	}
}

func skillCandidate(name string, old, new_ character.SkillState, points ledger.CalculationPoints) ledger.Candidate {
	method := ledger.LearnNormal
	return ledger.Candidate{
		Type: ledger.TypeSkillChanged,
		Name: name,
		Data: ledger.RecordData{
			Old: mustPayload(character.SkillPayload{Skill: old}),
			New: mustPayload(character.SkillPayload{Skill: new_}),
		},
		LearningMethod:    &method,
		CalculationPoints: points,
	}
}

func combatStatsCandidate(name string, old, new_ character.CombatStatsState, points ledger.CalculationPoints) ledger.Candidate {
	return ledger.Candidate{
		Type: ledger.TypeCombatStatsChanged,
		Name: name,
		Data: ledger.RecordData{
			Old: mustPayload(old),
			New: mustPayload(new_),
		},
		CalculationPoints: points,
	}
}
