// Package store provides BlockStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/questforge/chronicle/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps blocks per character, ordered by block number. It honors the
// same conditional-write contract as the production adapter, so tests catch
// condition mistakes without a database.
type Memory struct {
	mu     sync.RWMutex
	blocks map[string][]ledger.HistoryBlock
	writes int
}

func NewMemory() *Memory {
	return &Memory{blocks: make(map[string][]ledger.HistoryBlock)}
}

// Writes returns the number of mutating store calls that succeeded. Used by
// idempotency tests to prove that a duplicate append wrote nothing.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *Memory) LatestBlock(_ context.Context, characterID string) (*ledger.HistoryBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := m.blocks[characterID]
	if len(blocks) == 0 {
		return nil, ledger.ErrNoHistory
	}
	return copyBlock(blocks[len(blocks)-1]), nil
}

func (m *Memory) BlockByNumber(_ context.Context, characterID string, blockNumber int) (*ledger.HistoryBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.blocks[characterID] {
		if b.BlockNumber == blockNumber {
			return copyBlock(b), nil
		}
	}
	return nil, ledger.ErrBlockNotFound
}

func (m *Memory) CreateBlock(_ context.Context, block ledger.HistoryBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.blocks[block.CharacterID] {
		if b.BlockNumber == block.BlockNumber {
			return ledger.ErrConflict
		}
	}
	m.blocks[block.CharacterID] = append(m.blocks[block.CharacterID], *copyBlock(block))
	m.writes++
	return nil
}

func (m *Memory) AppendRecord(_ context.Context, characterID string, blockNumber, expectedLen int, rec ledger.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.findLocked(characterID, blockNumber)
	if b == nil {
		return ledger.ErrBlockNotFound
	}
	if len(b.Changes) != expectedLen {
		return ledger.ErrConflict
	}
	b.Changes = append(b.Changes, rec)
	m.writes++
	return nil
}

func (m *Memory) RemoveTailRecord(_ context.Context, characterID string, blockNumber, expectedLen int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.findLocked(characterID, blockNumber)
	if b == nil {
		return ledger.ErrBlockNotFound
	}
	if expectedLen < 1 || len(b.Changes) != expectedLen {
		return ledger.ErrConflict
	}
	b.Changes = b.Changes[:len(b.Changes)-1]
	m.writes++
	return nil
}

func (m *Memory) SetRecordComment(_ context.Context, characterID string, blockNumber, index int, recordID, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.findLocked(characterID, blockNumber)
	if b == nil {
		return ledger.ErrBlockNotFound
	}
	if index < 0 || index >= len(b.Changes) || b.Changes[index].ID != recordID {
		return ledger.ErrConflict
	}
	c := comment
	b.Changes[index].Comment = &c
	m.writes++
	return nil
}

func (m *Memory) DeleteBlock(_ context.Context, characterID string, blockNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blocks := m.blocks[characterID]
	for i, b := range blocks {
		if b.BlockNumber == blockNumber {
			m.blocks[characterID] = append(blocks[:i], blocks[i+1:]...)
			m.writes++
			return nil
		}
	}
	return ledger.ErrBlockNotFound
}

func (m *Memory) findLocked(characterID string, blockNumber int) *ledger.HistoryBlock {
	blocks := m.blocks[characterID]
	for i := range blocks {
		if blocks[i].BlockNumber == blockNumber {
			return &blocks[i]
		}
	}
	return nil
}

// copyBlock returns a deep-enough copy so callers cannot mutate stored state
// behind the store's back.
func copyBlock(b ledger.HistoryBlock) *ledger.HistoryBlock {
	out := b
	out.Changes = append([]ledger.Record{}, b.Changes...)
	return &out
}
