/*
annotate.go - After-the-fact comment annotation

PURPOSE:
  Comments are the one mutable field of a stored record. The Annotator
  locates a record - in the latest block by default, or in an explicitly
  named block - and overwrites its comment.

SEMANTICS:
  Deliberately NOT idempotency-guarded: repeated calls with different text
  produce different results. The operation is last-write-wins, which is what
  a free-text note wants. Everything else about the record stays immutable.
*/
package ledger

import "context"

// Annotation is the result of a comment update.
type Annotation struct {
	BlockNumber int    `json:"blockNumber"`
	RecordID    string `json:"recordId"`
	Comment     string `json:"comment"`
}

// Annotator sets comments on existing history records.
type Annotator struct {
	Store  BlockStore
	Reader *Reader
}

func NewAnnotator(store BlockStore) *Annotator {
	return &Annotator{Store: store, Reader: NewReader(store)}
}

// SetComment overwrites the comment of the record with recordID. With a nil
// blockNumber the latest block is searched; otherwise exactly that block.
// The record must exist in the targeted block.
func (a *Annotator) SetComment(ctx context.Context, characterID, recordID, comment string, blockNumber *int) (*Annotation, error) {
	if len(comment) > MaxCommentLength {
		return nil, &ValidationError{Field: "comment", Reason: "exceeds maximum length"}
	}

	page, err := a.Reader.Page(ctx, characterID, blockNumber)
	if err != nil {
		return nil, err
	}
	block := page.Items[0]

	index := -1
	for i := range block.Changes {
		if block.Changes[i].ID == recordID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrRecordNotFound
	}

	if err := a.Store.SetRecordComment(ctx, characterID, block.BlockNumber, index, recordID, comment); err != nil {
		return nil, err
	}
	return &Annotation{BlockNumber: block.BlockNumber, RecordID: recordID, Comment: comment}, nil
}
