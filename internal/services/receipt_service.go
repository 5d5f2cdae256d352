package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"receipt-verifier/internal/receipt"
	"receipt-verifier/internal/status"
	"receipt-verifier/monitoring"
)

// Verifier runs a single receipt verification.
type Verifier interface {
	Verify(ctx context.Context, req receipt.Request) receipt.Result
}

// ProfileFinder resolves the username an integrator receives payments on.
type ProfileFinder interface {
	FindUsername(ownerID string) (string, error)
}

type ReceiptService struct {
	verifier Verifier
	profiles ProfileFinder
	notifier Notifier
	monitor  *monitoring.Monitor
	logger   *slog.Logger
}

// NewReceiptService wires a verifier with its collaborators. profiles and
// notifier may be nil.
func NewReceiptService(verifier Verifier, profiles ProfileFinder, notifier Notifier, monitor *monitoring.Monitor, logger *slog.Logger) *ReceiptService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptService{
		verifier: verifier,
		profiles: profiles,
		notifier: notifier,
		monitor:  monitor,
		logger:   logger,
	}
}

type VerifyParams struct {
	// UserID is the authenticated integrator, empty for anonymous callers.
	UserID  string
	Request receipt.Request
}

type Verification struct {
	ID     string
	Result receipt.Result
}

// Verify checks a payment claim. The returned error is only set when the
// claim could not be evaluated at all; a rejected claim is an error Result.
func (s *ReceiptService) Verify(ctx context.Context, p VerifyParams) (Verification, error) {
	v := Verification{ID: uuid.NewString()}
	req := p.Request

	if strings.TrimSpace(req.Username) == "" && p.UserID != "" && s.profiles != nil {
		username, err := s.profiles.FindUsername(p.UserID)
		if err != nil {
			return v, fmt.Errorf("Verify: profiles.FindUsername: %w", err)
		}
		req.Username = username
	}

	start := time.Now()
	v.Result = s.verifier.Verify(ctx, req)
	elapsed := time.Since(start)

	kind := string(status.KindOf(v.Result.Err()))
	if s.monitor != nil {
		s.monitor.TrackVerification(string(v.Result.Type), kind, elapsed)
	}

	if !v.Result.OK() {
		s.logger.Info("receipt verification rejected",
			"verification_id", v.ID,
			"user_id", p.UserID,
			"kind", kind,
			"message", v.Result.Message,
		)
		return v, nil
	}

	s.logger.Info("receipt verification succeeded",
		"verification_id", v.ID,
		"user_id", p.UserID,
		"username", req.Username,
		"duration", elapsed,
	)

	if p.UserID != "" {
		s.notify(ctx, p.UserID, VerifiedNotification{
			Type:           "receipt_verified",
			VerificationID: v.ID,
			Username:       req.Username,
			Reference:      req.Reference,
			ReceiptURL:     req.ReceiptURL,
		})
	}

	return v, nil
}

// notify is best effort; a failed publish never changes the result.
func (s *ReceiptService) notify(ctx context.Context, userID string, n VerifiedNotification) {
	if s.notifier == nil {
		return
	}

	statusLabel := "published"
	if err := s.notifier.NotifyVerified(ctx, userID, n); err != nil {
		statusLabel = "failed"
		s.logger.Error("s.notifier.NotifyVerified()",
			"verification_id", n.VerificationID,
			"user_id", userID,
			"error", err,
		)
	}

	if s.monitor != nil {
		s.monitor.TrackNotification(statusLabel)
	}
}
