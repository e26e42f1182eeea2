/*
mutator.go - SQLite-backed character.Mutator

PURPOSE:
  Reference implementation of the character-mutation collaborator, so the
  revert endpoint works end to end against the same database that holds the
  history blocks. The real character subsystem owns cost tables and
  formulas; this one only stores and overwrites snapshots.

LAYOUT:
  One row per character, the whole sheet as a JSON document. Sub-resource
  writes are json_set calls on a path into that document, which keeps each
  Mutator method a single atomic statement - the revert engine issues them
  concurrently.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/questforge/chronicle/character"
)

// sheetDoc is the JSON layout of the characters.sheet column.
type sheetDoc struct {
	Name              string                               `json:"name"`
	Level             int                                  `json:"level"`
	Attributes        map[string]character.AttributeState  `json:"attributes"`
	BaseValues        map[string]character.BaseValueState  `json:"baseValues"`
	Skills            map[string]character.SkillState      `json:"skills"`
	CombatStats       map[string]character.CombatStatsState `json:"combatStats"`
	SpecialAbilities  []string                             `json:"specialAbilities"`
	CalculationPoints character.CalculationPointsState     `json:"calculationPoints"`
}

// CreateCharacter stores a fresh sheet. Used by scenario seeding and tests;
// the production character subsystem has its own creation path.
func (s *Store) CreateCharacter(ctx context.Context, characterID string, sheet *character.Sheet) error {
	doc := sheetDoc{
		Name:              sheet.Name,
		Level:             sheet.Level,
		Attributes:        sheet.Attributes,
		BaseValues:        sheet.BaseValues,
		Skills:            sheet.Skills,
		CombatStats:       sheet.CombatStats,
		SpecialAbilities:  sheet.SpecialAbilities,
		CalculationPoints: sheet.CalculationPoints,
	}
	if doc.Attributes == nil {
		doc.Attributes = map[string]character.AttributeState{}
	}
	if doc.BaseValues == nil {
		doc.BaseValues = map[string]character.BaseValueState{}
	}
	if doc.Skills == nil {
		doc.Skills = map[string]character.SkillState{}
	}
	if doc.CombatStats == nil {
		doc.CombatStats = map[string]character.CombatStatsState{}
	}
	if doc.SpecialAbilities == nil {
		doc.SpecialAbilities = []string{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal sheet: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO characters (id, sheet, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET sheet = excluded.sheet, updated_at = excluded.updated_at`,
		characterID, string(raw), now, now)
	return err
}

// Sheet loads the stored sheet, or character.ErrCharacterNotFound.
func (s *Store) Sheet(ctx context.Context, characterID string) (*character.Sheet, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT sheet FROM characters WHERE id = ?`, characterID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, character.ErrCharacterNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc sheetDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal sheet: %w", err)
	}
	return &character.Sheet{
		Name:              doc.Name,
		Level:             doc.Level,
		Attributes:        doc.Attributes,
		BaseValues:        doc.BaseValues,
		Skills:            doc.Skills,
		CombatStats:       doc.CombatStats,
		SpecialAbilities:  doc.SpecialAbilities,
		CalculationPoints: doc.CalculationPoints,
	}, nil
}

// =============================================================================
// MUTATOR - character.Mutator implementation
// =============================================================================

func (s *Store) DeleteCharacter(ctx context.Context, characterID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, characterID)
	if err != nil {
		return err
	}
	return s.requireCharacterHit(res)
}

func (s *Store) SetLevel(ctx context.Context, characterID string, level int) error {
	return s.setSheetPath(ctx, characterID, "$.level", level)
}

func (s *Store) SetCalculationPoints(ctx context.Context, characterID string, points character.CalculationPointsState) error {
	if points.AdventurePoints != nil {
		if err := s.setSheetJSON(ctx, characterID, "$.calculationPoints.adventurePoints", points.AdventurePoints); err != nil {
			return err
		}
	}
	if points.AttributePoints != nil {
		if err := s.setSheetJSON(ctx, characterID, "$.calculationPoints.attributePoints", points.AttributePoints); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SetBaseValue(ctx context.Context, characterID, name string, value character.BaseValueState) error {
	return s.setSheetJSON(ctx, characterID, fmt.Sprintf(`$.baseValues.%q`, name), value)
}

func (s *Store) SetSpecialAbilities(ctx context.Context, characterID string, values []string) error {
	if values == nil {
		values = []string{}
	}
	return s.setSheetJSON(ctx, characterID, "$.specialAbilities", values)
}

func (s *Store) SetAttribute(ctx context.Context, characterID, name string, attr character.AttributeState) error {
	return s.setSheetJSON(ctx, characterID, fmt.Sprintf(`$.attributes.%q`, name), attr)
}

func (s *Store) SetSkill(ctx context.Context, characterID string, skill character.SkillRef, state character.SkillState) error {
	key := skill.Category + "/" + skill.Name
	return s.setSheetJSON(ctx, characterID, fmt.Sprintf(`$.skills.%q`, key), state)
}

func (s *Store) SetCombatStats(ctx context.Context, characterID, name string, stats character.CombatStatsState) error {
	return s.setSheetJSON(ctx, characterID, fmt.Sprintf(`$.combatStats.%q`, name), stats)
}

// setSheetJSON overwrites one JSON path of the sheet with a marshaled value.
func (s *Store) setSheetJSON(ctx context.Context, characterID, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE characters SET sheet = json_set(sheet, ?, json(?)), updated_at = ? WHERE id = ?`,
		path, string(raw), time.Now().UTC().Format(time.RFC3339), characterID)
	if err != nil {
		return err
	}
	return s.requireCharacterHit(res)
}

// setSheetPath overwrites one scalar path of the sheet.
func (s *Store) setSheetPath(ctx context.Context, characterID, path string, value any) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE characters SET sheet = json_set(sheet, ?, ?), updated_at = ? WHERE id = ?`,
		path, value, time.Now().UTC().Format(time.RFC3339), characterID)
	if err != nil {
		return err
	}
	return s.requireCharacterHit(res)
}

func (s *Store) requireCharacterHit(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return character.ErrCharacterNotFound
	}
	return nil
}
