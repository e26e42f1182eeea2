/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the history API, decoupled from the internal types.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  DTOs are pure data carriers; validation happens in the ledger (envelope)
  and the codec (payloads), not here.
*/
package api

import (
	"time"

	"github.com/questforge/chronicle/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AppendRecordRequest is a candidate record: everything the Writer does not
// assign itself.
type AppendRecordRequest struct {
	Type              string                   `json:"type"`
	Name              string                   `json:"name"`
	Data              ledger.RecordData        `json:"data"`
	LearningMethod    *string                  `json:"learningMethod"`
	CalculationPoints ledger.CalculationPoints `json:"calculationPoints"`
	Comment           *string                  `json:"comment"`
}

// RecordDTO is a stored record in API responses.
type RecordDTO struct {
	Type              string                   `json:"type"`
	Name              string                   `json:"name"`
	Number            int                      `json:"number"`
	ID                string                   `json:"id"`
	Data              ledger.RecordData        `json:"data"`
	LearningMethod    *string                  `json:"learningMethod"`
	CalculationPoints ledger.CalculationPoints `json:"calculationPoints"`
	Comment           *string                  `json:"comment"`
	Timestamp         string                   `json:"timestamp"`
}

// BlockDTO is one history block in API responses.
type BlockDTO struct {
	CharacterID     string      `json:"characterId"`
	BlockNumber     int         `json:"blockNumber"`
	BlockID         string      `json:"blockId"`
	PreviousBlockID *string     `json:"previousBlockId"`
	Changes         []RecordDTO `json:"changes"`
}

// PageDTO is one pagination step: at most one block plus pointers to the
// next-older one.
type PageDTO struct {
	Items               []BlockDTO `json:"items"`
	PreviousBlockNumber *int       `json:"previousBlockNumber"`
	PreviousBlockID     *string    `json:"previousBlockId"`
}

// SetCommentRequest carries the replacement comment.
type SetCommentRequest struct {
	Comment string `json:"comment"`
}

// CommentDTO echoes a comment update.
type CommentDTO struct {
	BlockNumber int    `json:"blockNumber"`
	RecordID    string `json:"recordId"`
	Comment     string `json:"comment"`
}

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to seed.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse reports what the scenario created.
type LoadScenarioResponse struct {
	ScenarioID  string `json:"scenario_id"`
	CharacterID string `json:"character_id"`
	Records     int    `json:"records"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPING
// =============================================================================

func toRecordDTO(r ledger.Record) RecordDTO {
	var method *string
	if r.LearningMethod != nil {
		m := string(*r.LearningMethod)
		method = &m
	}
	return RecordDTO{
		Type:              string(r.Type),
		Name:              r.Name,
		Number:            r.Number,
		ID:                r.ID,
		Data:              r.Data,
		LearningMethod:    method,
		CalculationPoints: r.CalculationPoints,
		Comment:           r.Comment,
		Timestamp:         r.Timestamp.UTC().Format(time.RFC3339),
	}
}

func toBlockDTO(b ledger.HistoryBlock) BlockDTO {
	changes := make([]RecordDTO, len(b.Changes))
	for i, rec := range b.Changes {
		changes[i] = toRecordDTO(rec)
	}
	return BlockDTO{
		CharacterID:     b.CharacterID,
		BlockNumber:     b.BlockNumber,
		BlockID:         b.BlockID,
		PreviousBlockID: b.PreviousBlockID,
		Changes:         changes,
	}
}

func toPageDTO(p ledger.Page) PageDTO {
	items := make([]BlockDTO, len(p.Items))
	for i, b := range p.Items {
		items[i] = toBlockDTO(b)
	}
	return PageDTO{
		Items:               items,
		PreviousBlockNumber: p.PreviousBlockNumber,
		PreviousBlockID:     p.PreviousBlockID,
	}
}

func toCandidate(req AppendRecordRequest) ledger.Candidate {
	var method *ledger.LearningMethod
	if req.LearningMethod != nil {
		m := ledger.LearningMethod(*req.LearningMethod)
		method = &m
	}
	return ledger.Candidate{
		Type:              ledger.RecordType(req.Type),
		Name:              req.Name,
		Data:              req.Data,
		LearningMethod:    method,
		CalculationPoints: req.CalculationPoints,
		Comment:           req.Comment,
	}
}
