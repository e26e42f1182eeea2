/*
memory.go - In-memory character sheets and Mutator (for testing/dev)

PURPOSE:
  A reference Mutator so the revert path can be exercised without the real
  character-mutation subsystem. Also backs the demo scenarios.
*/
package character

import (
	"context"
	"sync"
)

// Sheet is the in-memory character sheet. Only the sub-resources the ledger
// snapshots are modeled; cost arithmetic lives elsewhere.
type Sheet struct {
	Name              string
	Level             int
	Attributes        map[string]AttributeState
	BaseValues        map[string]BaseValueState
	Skills            map[string]SkillState // keyed by "category/name"
	CombatStats       map[string]CombatStatsState
	SpecialAbilities  []string
	CalculationPoints CalculationPointsState
}

// NewSheet returns an empty sheet with all maps initialized.
func NewSheet(name string) *Sheet {
	return &Sheet{
		Name:        name,
		Attributes:  make(map[string]AttributeState),
		BaseValues:  make(map[string]BaseValueState),
		Skills:      make(map[string]SkillState),
		CombatStats: make(map[string]CombatStatsState),
	}
}

// MemoryMutator keeps sheets in a map, guarded by a mutex so the revert
// engine's concurrent sub-resource writes are safe against each other.
type MemoryMutator struct {
	mu     sync.Mutex
	sheets map[string]*Sheet
}

func NewMemoryMutator() *MemoryMutator {
	return &MemoryMutator{sheets: make(map[string]*Sheet)}
}

// CreateCharacter registers a sheet. Not part of the Mutator interface;
// tests and scenario seeding use it.
func (m *MemoryMutator) CreateCharacter(_ context.Context, characterID string, sheet *Sheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[characterID] = sheet
	return nil
}

// Sheet returns the stored sheet, or nil when absent.
func (m *MemoryMutator) Sheet(characterID string) *Sheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sheets[characterID]
}

func (m *MemoryMutator) DeleteCharacter(_ context.Context, characterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[characterID]; !ok {
		return ErrCharacterNotFound
	}
	delete(m.sheets, characterID)
	return nil
}

func (m *MemoryMutator) SetLevel(_ context.Context, characterID string, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sheet, ok := m.sheets[characterID]
	if !ok {
		return ErrCharacterNotFound
	}
	sheet.Level = level
	return nil
}

func (m *MemoryMutator) SetCalculationPoints(_ context.Context, characterID string, points CalculationPointsState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sheet, ok := m.sheets[characterID]
	if !ok {
		return ErrCharacterNotFound
	}
	if points.AdventurePoints != nil {
		p := *points.AdventurePoints
		sheet.CalculationPoints.AdventurePoints = &p
	}
	if points.AttributePoints != nil {
		p := *points.AttributePoints
		sheet.CalculationPoints.AttributePoints = &p
	}
	return nil
}

func (m *MemoryMutator) SetBaseValue(_ context.Context, characterID, name string, value BaseValueState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sheet, ok := m.sheets[characterID]
	if !ok {
		return ErrCharacterNotFound
	}
	sheet.BaseValues[name] = value
	return nil
}

func (m *MemoryMutator) SetSpecialAbilities(_ context.Context, characterID string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sheet, ok := m.sheets[characterID]
	if !ok {
		return ErrCharacterNotFound
	}
	sheet.SpecialAbilities = append([]string{}, values...)
	return nil
}

func (m *MemoryMutator) SetAttribute(_ context.Context, characterID, name string, attr AttributeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sheet, ok := m.sheets[characterID]
	if !ok {
		return ErrCharacterNotFound
	}
	sheet.Attributes[name] = attr
	return nil
}

func (m *MemoryMutator) SetSkill(_ context.Context, characterID string, skill SkillRef, state SkillState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sheet, ok := m.sheets[characterID]
	if !ok {
		return ErrCharacterNotFound
	}
	sheet.Skills[skill.Category+"/"+skill.Name] = state
	return nil
}

func (m *MemoryMutator) SetCombatStats(_ context.Context, characterID, name string, stats CombatStatsState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sheet, ok := m.sheets[characterID]
	if !ok {
		return ErrCharacterNotFound
	}
	sheet.CombatStats[name] = stats
	return nil
}
