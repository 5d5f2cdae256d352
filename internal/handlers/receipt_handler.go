package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"receipt-verifier/internal/receipt"
	"receipt-verifier/internal/services"
)

// VerificationIDHeader carries the id used in logs for a verification.
const VerificationIDHeader = "X-Verification-Id"

type ReceiptHandler struct {
	receiptService *services.ReceiptService
}

func NewReceiptHandler(receiptService *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
	}
}

// VerifyReceipt - Verify a payment claim against its web receipt.
// Both verified and rejected claims answer 200; the body's "type" tells
// them apart.
func (h *ReceiptHandler) VerifyReceipt(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req receipt.Request
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	v, err := h.receiptService.Verify(e.Request.Context(), services.VerifyParams{
		UserID:  e.Auth.Id,
		Request: req,
	})
	if err != nil {
		slog.Error("h.receiptService.Verify()", "user_id", e.Auth.Id, "error", err)
		return apis.NewInternalServerError("internal error", nil)
	}

	e.Response.Header().Set(VerificationIDHeader, v.ID)
	return e.JSON(http.StatusOK, v.Result)
}
