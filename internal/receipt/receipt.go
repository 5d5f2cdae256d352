package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
)

// payerIdentityRow is the detail row holding the account username on
// Cash App receipts.
const payerIdentityRow = 3

type (
	// Receipt is the provider's JSON receipt. Only the fields used for
	// matching are decoded; the full payload is kept and re-emitted
	// unchanged when the receipt is marshalled.
	Receipt struct {
		Notes      string      `json:"notes"`
		DetailRows []DetailRow `json:"detail_rows"`

		raw json.RawMessage
	}

	// DetailRow is one labelled attribute on the receipt. Label and Value
	// are kept as decoded; rows other than the payer row are never
	// interpreted, so their shape is not enforced.
	DetailRow struct {
		Label any `json:"label,omitempty"`
		Value any `json:"value,omitempty"`
	}
)

type detailRowFields DetailRow

// UnmarshalJSON leaves the row empty when it is not a JSON object.
func (d *DetailRow) UnmarshalJSON(b []byte) error {
	var f detailRowFields
	if err := json.Unmarshal(b, &f); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			*d = DetailRow{}
			return nil
		}
		return err
	}
	*d = DetailRow(f)
	return nil
}

type receiptFields struct {
	Notes      string      `json:"notes"`
	DetailRows []DetailRow `json:"detail_rows"`
}

func (r *Receipt) UnmarshalJSON(b []byte) error {
	var f receiptFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}

	r.Notes = f.Notes
	r.DetailRows = f.DetailRows
	r.raw = append(json.RawMessage(nil), bytes.TrimSpace(b)...)
	return nil
}

func (r Receipt) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(receiptFields{Notes: r.Notes, DetailRows: r.DetailRows})
}

// payerIdentityValue returns the payer username recorded on the receipt,
// or "" when the row is missing or its value is not a string.
func payerIdentityValue(r *Receipt) string {
	if r == nil || len(r.DetailRows) <= payerIdentityRow {
		return ""
	}
	v, _ := r.DetailRows[payerIdentityRow].Value.(string)
	return v
}
