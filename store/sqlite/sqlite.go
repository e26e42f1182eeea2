/*
Package sqlite provides the SQLite-backed BlockStore adapter.

PURPOSE:
  One row per history block, keyed by (character_id, block_number), with the
  ordered record array stored as a JSON column. Every BlockStore method is a
  single SQL statement whose WHERE clause carries the caller's condition, so
  atomicity comes from the database, not from locks held in Go.

CONDITIONAL WRITES:
  - CreateBlock:      INSERT; the primary key makes it put-if-absent.
  - AppendRecord:     UPDATE ... json_insert ... WHERE json_array_length = ?
  - RemoveTailRecord: UPDATE ... json_remove ... WHERE json_array_length = ?
  - SetRecordComment: UPDATE ... json_set ... WHERE json_extract(id) = ?
  A zero-row update means the guard failed: either the block is gone
  (ledger.ErrBlockNotFound) or its record count changed under the caller
  (ledger.ErrConflict). The two are told apart with a follow-up point read.

WAL MODE:
  Opened with WAL so readers do not block the single writer, matching the
  request/response access pattern.

USAGE:
  store, err := sqlite.New("./data/chronicle.db")
  writer := ledger.NewWriter(store, character.NewCodec())

SEE ALSO:
  - ledger/store.go: the contract this file implements
  - mutator.go: sqlite-backed character.Mutator in the same database
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/questforge/chronicle/ledger"
)

// Store implements ledger.BlockStore and character.Mutator on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection to :memory: is a separate database; pin
		// the pool to one so the migrated schema is the one queried.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- History blocks: one row per block, records as a JSON array
	CREATE TABLE IF NOT EXISTS history_blocks (
		character_id      TEXT NOT NULL,
		block_number      INTEGER NOT NULL,
		block_id          TEXT NOT NULL UNIQUE,
		previous_block_id TEXT,
		changes           TEXT NOT NULL,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		PRIMARY KEY (character_id, block_number)
	);

	-- Latest-block reads walk this index backwards (hot path)
	CREATE INDEX IF NOT EXISTS idx_history_blocks_character
		ON history_blocks(character_id, block_number DESC);

	-- Character sheets for the reference Mutator
	CREATE TABLE IF NOT EXISTS characters (
		id         TEXT PRIMARY KEY,
		sheet      TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BLOCK STORE - ledger.BlockStore implementation
// =============================================================================

const blockColumns = "character_id, block_number, block_id, previous_block_id, changes"

func (s *Store) LatestBlock(ctx context.Context, characterID string) (*ledger.HistoryBlock, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+blockColumns+` FROM history_blocks
		WHERE character_id = ?
		ORDER BY block_number DESC LIMIT 1`, characterID)
	block, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNoHistory
	}
	return block, err
}

func (s *Store) BlockByNumber(ctx context.Context, characterID string, blockNumber int) (*ledger.HistoryBlock, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+blockColumns+` FROM history_blocks
		WHERE character_id = ? AND block_number = ?`, characterID, blockNumber)
	block, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrBlockNotFound
	}
	return block, err
}

func (s *Store) CreateBlock(ctx context.Context, block ledger.HistoryBlock) error {
	changes, err := json.Marshal(block.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	var prev any
	if block.PreviousBlockID != nil {
		prev = *block.PreviousBlockID
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history_blocks (character_id, block_number, block_id, previous_block_id, changes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		block.CharacterID, block.BlockNumber, block.BlockID, prev, string(changes), now, now)
	if isConstraintErr(err) {
		return ledger.ErrConflict
	}
	return err
}

func (s *Store) AppendRecord(ctx context.Context, characterID string, blockNumber, expectedLen int, rec ledger.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE history_blocks
		SET changes = json_insert(changes, '$[#]', json(?)), updated_at = ?
		WHERE character_id = ? AND block_number = ? AND json_array_length(changes) = ?`,
		string(raw), time.Now().UTC().Format(time.RFC3339), characterID, blockNumber, expectedLen)
	if err != nil {
		return err
	}
	return s.checkGuarded(ctx, res, characterID, blockNumber)
}

func (s *Store) RemoveTailRecord(ctx context.Context, characterID string, blockNumber, expectedLen int) error {
	if expectedLen < 1 {
		return ledger.ErrConflict
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE history_blocks
		SET changes = json_remove(changes, '$[' || ? || ']'), updated_at = ?
		WHERE character_id = ? AND block_number = ? AND json_array_length(changes) = ?`,
		expectedLen-1, time.Now().UTC().Format(time.RFC3339), characterID, blockNumber, expectedLen)
	if err != nil {
		return err
	}
	return s.checkGuarded(ctx, res, characterID, blockNumber)
}

func (s *Store) SetRecordComment(ctx context.Context, characterID string, blockNumber, index int, recordID, comment string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE history_blocks
		SET changes = json_set(changes, '$[' || ? || '].comment', ?), updated_at = ?
		WHERE character_id = ? AND block_number = ?
		  AND json_extract(changes, '$[' || ? || '].id') = ?`,
		index, comment, time.Now().UTC().Format(time.RFC3339), characterID, blockNumber, index, recordID)
	if err != nil {
		return err
	}
	return s.checkGuarded(ctx, res, characterID, blockNumber)
}

func (s *Store) DeleteBlock(ctx context.Context, characterID string, blockNumber int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM history_blocks WHERE character_id = ? AND block_number = ?`,
		characterID, blockNumber)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrBlockNotFound
	}
	return nil
}

// checkGuarded turns a zero-row guarded update into the right error: the
// block vanished, or the guard lost a race.
func (s *Store) checkGuarded(ctx context.Context, res sql.Result, characterID string, blockNumber int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, `
		SELECT 1 FROM history_blocks WHERE character_id = ? AND block_number = ?`,
		characterID, blockNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrBlockNotFound
	}
	if err != nil {
		return err
	}
	return ledger.ErrConflict
}

// =============================================================================
// SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (*ledger.HistoryBlock, error) {
	var (
		block   ledger.HistoryBlock
		prev    sql.NullString
		changes string
	)
	if err := row.Scan(&block.CharacterID, &block.BlockNumber, &block.BlockID, &prev, &changes); err != nil {
		return nil, err
	}
	if prev.Valid {
		block.PreviousBlockID = &prev.String
	}
	if err := json.Unmarshal([]byte(changes), &block.Changes); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	return &block, nil
}

func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
