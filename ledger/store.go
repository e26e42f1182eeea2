/*
store.go - Persistence contract for history blocks

PURPOSE:
  BlockStore is the only seam between the ledger and the underlying document
  store. Every method is a single atomic operation against one block item;
  the ledger composes them but never holds a lock across them.

CONDITIONAL-WRITE CONTRACT:
  The read-then-write paths (append, tail removal, comment set) pass the
  state they observed - the expected record count, or the expected record id
  at an index - and the store must make the write conditional on it. A failed
  condition is reported as ledger.ErrConflict, never applied partially.

  This is the ledger's *only* concurrency control. There is no transaction
  spanning the latest-block read and the subsequent write; two concurrent
  writers for the same character race, and the loser's conditional write
  fails. See writer.go for why that trade-off is acceptable.

TAIL-ONLY MUTATION:
  There is no method to rewrite a record, reorder changes, or remove anything
  but the tail. SetRecordComment is the single sanctioned in-place field
  update, because comments are explicitly mutable.

IMPLEMENTATIONS:
  - store/sqlite:   production adapter, one row per block, changes as a JSON
                    array column, guards expressed in SQL.
  - ledger/store:   in-memory adapter for tests and dev.

SEE ALSO:
  - writer.go, reader.go, annotate.go: callers
  - store/sqlite/sqlite.go, ledger/store/memory.go: implementations
*/
package ledger

import "context"

// BlockStore persists history blocks. One block = one store item, keyed by
// (characterID, blockNumber).
type BlockStore interface {
	// LatestBlock returns the block with the highest block number for the
	// character, using a consistent read. Returns ErrNoHistory if the
	// character has no blocks.
	LatestBlock(ctx context.Context, characterID string) (*HistoryBlock, error)

	// BlockByNumber returns exactly the requested block. Returns
	// ErrBlockNotFound if it does not exist.
	BlockByNumber(ctx context.Context, characterID string, blockNumber int) (*HistoryBlock, error)

	// CreateBlock stores a new block, put-if-absent on its key. Returns
	// ErrConflict if a block with the same key already exists.
	CreateBlock(ctx context.Context, block HistoryBlock) error

	// AppendRecord appends rec to the block's changes, conditional on the
	// block currently holding exactly expectedLen records. Returns
	// ErrConflict when the condition fails, ErrBlockNotFound when the block
	// is gone.
	AppendRecord(ctx context.Context, characterID string, blockNumber, expectedLen int, rec Record) error

	// RemoveTailRecord removes the last record of the block, conditional on
	// the block currently holding exactly expectedLen records (expectedLen
	// must be >= 1). Returns ErrConflict when the condition fails.
	RemoveTailRecord(ctx context.Context, characterID string, blockNumber, expectedLen int) error

	// SetRecordComment overwrites the comment of the record at index within
	// the block's changes, conditional on that record still carrying
	// recordID. Returns ErrConflict when the condition fails.
	SetRecordComment(ctx context.Context, characterID string, blockNumber, index int, recordID, comment string) error

	// DeleteBlock removes the block entirely, delete-if-exists. Returns
	// ErrBlockNotFound if it was already gone.
	DeleteBlock(ctx context.Context, characterID string, blockNumber int) error
}
