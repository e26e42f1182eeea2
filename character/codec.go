/*
codec.go - Closed-shape validation of record payloads

PURPOSE:
  Validates data.old/data.new against the payload contract selected by the
  record type. Consulted twice per record lifetime: by the Writer before a
  record is admitted, and by the revert engine before dispatch (defense
  against shape drift in already-stored records).

CLOSED SHAPES:
  Decoding uses DisallowUnknownFields, so a payload with extraneous fields is
  rejected rather than silently accepted. A snapshot that smuggles fields the
  contract does not name would not survive a revert round-trip.

STATELESS:
  The codec holds no state and is safe for concurrent use.
*/
package character

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/questforge/chronicle/ledger"
)

// Codec validates and decodes record payloads. The zero value is ready to
// use.
type Codec struct{}

func NewCodec() *Codec { return &Codec{} }

// ValidatePayload checks data.old and data.new against the contract for t.
// Presence rules (old absent only for character-created) are the Writer's
// envelope check; here a present part must parse strictly.
func (c *Codec) ValidatePayload(t ledger.RecordType, data ledger.RecordData) error {
	check := func(field string, raw json.RawMessage) error {
		if len(raw) == 0 {
			return nil
		}
		if err := c.validatePart(t, raw); err != nil {
			return &ledger.ValidationError{Field: field, Reason: err.Error()}
		}
		return nil
	}
	if err := check("data.old", data.Old); err != nil {
		return err
	}
	return check("data.new", data.New)
}

func (c *Codec) validatePart(t ledger.RecordType, raw json.RawMessage) error {
	switch t {
	case ledger.TypeCharacterCreated:
		var p CreationPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.Name == "" {
			return fmt.Errorf("creation snapshot is missing the character name")
		}
		return nil
	case ledger.TypeLevelChanged:
		var p LevelPayload
		return decodeStrict(raw, &p)
	case ledger.TypeCalculationPointsChanged:
		var p CalculationPointsPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.AdventurePoints == nil && p.AttributePoints == nil {
			return fmt.Errorf("at least one point pool must be present")
		}
		return nil
	case ledger.TypeBaseValueChanged:
		var p BaseValuePayload
		return decodeStrict(raw, &p)
	case ledger.TypeSpecialAbilitiesChanged:
		var p SpecialAbilitiesPayload
		if err := decodeStrict(raw, &p); err != nil {
			return err
		}
		if p.Values == nil {
			return fmt.Errorf("values must be present")
		}
		return nil
	case ledger.TypeAttributeChanged:
		var p AttributePayload
		return decodeStrict(raw, &p)
	case ledger.TypeSkillChanged:
		var p SkillPayload
		return decodeStrict(raw, &p)
	case ledger.TypeCombatStatsChanged:
		var p CombatStatsPayload
		return decodeStrict(raw, &p)
	default:
		return fmt.Errorf("%w: %q", ledger.ErrUnknownRecordType, t)
	}
}

// decodeStrict unmarshals raw into v, rejecting unknown fields and trailing
// garbage.
func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected trailing data")
	}
	// Catch trailing non-JSON bytes that More() does not flag.
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}
