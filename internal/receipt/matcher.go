package receipt

import (
	"strings"

	"receipt-verifier/internal/status"
)

// Match checks the provider receipt against the claim. Notes compare
// case-insensitively; the payer username must match exactly.
func Match(r *Receipt, username, reference string) error {
	if r == nil {
		return status.ErrUnmatchedReceipt
	}

	notes := strings.ToLower(r.Notes)
	payer := payerIdentityValue(r)

	if notes == "" || notes != strings.ToLower(reference) || payer == "" || payer != username {
		return status.ErrUnmatchedReceipt
	}

	return nil
}
