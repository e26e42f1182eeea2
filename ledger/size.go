/*
size.go - Serialized-size accounting for history blocks

PURPOSE:
  Blocks are bounded in bytes, not in record count: the underlying document
  store has a per-item ceiling, and a handful of huge snapshot records can
  fill a block that would otherwise hold hundreds of small ones. The Writer
  asks this file one question: would the latest block still fit under the
  ceiling with this record appended?

ACCURACY OVER SPEED:
  Sizes are measured by actually serializing the block, not by summing field
  estimates. Append is store-I/O bound anyway; an exact local marshal is
  cheap compared to a block that silently outgrows the store's item limit.

DEFAULT CEILING:
  350 KiB - the typical 400 KiB document-store item limit minus headroom for
  key attributes and store-side encoding overhead.
*/
package ledger

import "encoding/json"

// DefaultMaxBlockBytes is the serialized byte ceiling for one block.
const DefaultMaxBlockBytes = 350 * 1024

// blockSizeWith returns the serialized size of the block as it would be
// stored with rec appended.
func blockSizeWith(b *HistoryBlock, rec Record) (int, error) {
	grown := HistoryBlock{
		CharacterID:     b.CharacterID,
		BlockNumber:     b.BlockNumber,
		BlockID:         b.BlockID,
		PreviousBlockID: b.PreviousBlockID,
		Changes:         append(append([]Record{}, b.Changes...), rec),
	}
	raw, err := json.Marshal(grown)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

// BlockSize returns the serialized size of the block as stored.
func BlockSize(b *HistoryBlock) (int, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}
