/*
handlers.go - HTTP handlers for the character history ledger

PURPOSE:
  Exposes the ledger via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the Writer, Reader, Reverter and
  Annotator.

ENDPOINTS:
  POST   /api/characters/{id}/history                 Append a mutation record
  GET    /api/characters/{id}/history?block-number=N  One block + prev pointer
  DELETE /api/characters/{id}/history/{recordId}      Revert the tail record
  PATCH  /api/characters/{id}/history/{recordId}      Set a record comment
  GET    /api/health                                  Liveness
  GET    /api/scenarios, POST /api/scenarios/load     Demo seeding

ERROR HANDLING:
  Errors map to JSON bodies with these statuses:
  - 400: validation (bad envelope, bad payload shape, bad query params)
  - 404: no history / unknown block / unknown record; also a revert whose
         target is not the current tail, per the transport contract
  - 409: lost conditional writes, oversized records
  - 500: everything else

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/questforge/chronicle/character"
	"github.com/questforge/chronicle/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Writer    *ledger.Writer
	Reader    *ledger.Reader
	Reverter  *character.Reverter
	Annotator *ledger.Annotator
	Seeder    CharacterSeeder
	Log       zerolog.Logger
}

// NewHandler wires the four ledger operations plus the scenario seeder.
func NewHandler(writer *ledger.Writer, reverter *character.Reverter, seeder CharacterSeeder, log zerolog.Logger) *Handler {
	return &Handler{
		Writer:    writer,
		Reader:    ledger.NewReader(writer.Store),
		Reverter:  reverter,
		Annotator: ledger.NewAnnotator(writer.Store),
		Seeder:    seeder,
		Log:       log,
	}
}

// =============================================================================
// HISTORY HANDLERS
// =============================================================================

// AppendRecord admits a candidate record into a character's history.
// Internal-only in production deployments: the mutation handlers call it,
// not end users.
func (h *Handler) AppendRecord(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "id")

	var req AppendRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Writer.Append(r.Context(), characterID, toCandidate(req))
	if err != nil {
		h.writeDomainError(w, r, "Failed to append history record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*rec))
}

// GetHistory returns one block of history, newest first by default.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "id")

	var blockNumber *int
	if raw := r.URL.Query().Get("block-number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid block-number", err)
			return
		}
		blockNumber = &n
	}

	page, err := h.Reader.Page(r.Context(), characterID, blockNumber)
	if err != nil {
		h.writeDomainError(w, r, "Failed to read history", err)
		return
	}
	writeJSON(w, http.StatusOK, toPageDTO(*page))
}

// RevertRecord undoes the latest history entry and removes it.
func (h *Handler) RevertRecord(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "id")
	recordID := chi.URLParam(r, "recordId")

	rec, err := h.Reverter.Revert(r.Context(), characterID, recordID)
	if errors.Is(err, ledger.ErrNotTail) {
		// The transport contract reports a non-tail target as absent, not as
		// a conflict: from the client's view there is nothing revertible at
		// that id.
		writeError(w, http.StatusNotFound, "Record is not the latest history entry", err)
		return
	}
	if err != nil {
		h.writeDomainError(w, r, "Failed to revert history record", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*rec))
}

// SetComment attaches or replaces the free-text comment of a record.
func (h *Handler) SetComment(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "id")
	recordID := chi.URLParam(r, "recordId")

	var req SetCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var blockNumber *int
	if raw := r.URL.Query().Get("block-number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid block-number", err)
			return
		}
		blockNumber = &n
	}

	annotation, err := h.Annotator.SetComment(r.Context(), characterID, recordID, req.Comment, blockNumber)
	if err != nil {
		h.writeDomainError(w, r, "Failed to set comment", err)
		return
	}
	writeJSON(w, http.StatusOK, CommentDTO{
		BlockNumber: annotation.BlockNumber,
		RecordID:    annotation.RecordID,
		Comment:     annotation.Comment,
	})
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err) || errors.Is(err, character.ErrCharacterNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
