/*
reader.go - Newest-first block pagination

PURPOSE:
  The Reader serves history one block at a time, newest first. A page is
  always at most one block; callers walk backward along the chain via the
  previous-pointer fields until they hit block 1.

NOT-FOUND SEMANTICS:
  "Character has no history at all" (ErrNoHistory) and "character has
  history, but not that block number" (ErrBlockNotFound) are distinct
  errors on purpose - the first usually means a bad character id, the
  second a stale pagination cursor.
*/
package ledger

import "context"

// Page is one pagination step: a single block plus the pointers needed to
// fetch the next-older one. Both pointers are nil on block 1.
type Page struct {
	Items               []HistoryBlock
	PreviousBlockNumber *int
	PreviousBlockID     *string
}

// Reader paginates a character's history blocks.
type Reader struct {
	Store BlockStore
}

func NewReader(store BlockStore) *Reader {
	return &Reader{Store: store}
}

// Page returns the requested block, or the latest one when blockNumber is
// nil, along with previous-block pointers for backward pagination.
func (r *Reader) Page(ctx context.Context, characterID string, blockNumber *int) (*Page, error) {
	var (
		block *HistoryBlock
		err   error
	)
	if blockNumber == nil {
		block, err = r.Store.LatestBlock(ctx, characterID)
	} else {
		block, err = r.Store.BlockByNumber(ctx, characterID, *blockNumber)
	}
	if err != nil {
		return nil, err
	}

	page := &Page{Items: []HistoryBlock{*block}}
	if block.BlockNumber > 1 {
		prev := block.BlockNumber - 1
		page.PreviousBlockNumber = &prev
		page.PreviousBlockID = block.PreviousBlockID
	}
	return page, nil
}

// FullHistory walks the chain back to block 1 and returns every record
// oldest-first. Intended for tests and tooling, not for the request path -
// it reads every block of the character.
func (r *Reader) FullHistory(ctx context.Context, characterID string) ([]Record, error) {
	latest, err := r.Store.LatestBlock(ctx, characterID)
	if err != nil {
		return nil, err
	}

	blocks := []HistoryBlock{*latest}
	for n := latest.BlockNumber - 1; n >= 1; n-- {
		block, err := r.Store.BlockByNumber(ctx, characterID, n)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *block)
	}

	var records []Record
	for i := len(blocks) - 1; i >= 0; i-- {
		records = append(records, blocks[i].Changes...)
	}
	return records, nil
}
