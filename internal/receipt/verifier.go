// Package receipt verifies Cash App web receipts against a payment claim.
//
// A verification runs four stages in order and stops at the first failure:
// the claim must carry a username and reference, the receipt link must be a
// well-formed provider link with a plausible transaction token, the
// provider must return the receipt, and the receipt's note and payer must
// match the claim.
package receipt

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/blake2b"

	"receipt-verifier/internal/status"
)

// ResultType is the outcome reported to the caller.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultError   ResultType = "error"
)

const msgVerified = "Web Receipt Verified Successfully."

type (
	// Request is a payment claim to verify.
	Request struct {
		Username   string `json:"username"`
		Reference  string `json:"reference"`
		ReceiptURL string `json:"receipt_url"`
	}

	// Result is the single value a verification produces.
	Result struct {
		Type    ResultType `json:"type"`
		Message string     `json:"message"`
		Data    *Receipt   `json:"data,omitempty"`

		err error
	}

	// Config configures a Verifier. Zero values fall back to the Cash App
	// endpoints and http.DefaultClient.
	Config struct {
		ReceiptBaseURL     string
		ReceiptJSONBaseURL string
		HTTPClient         Doer
		Breaker            Breaker
		Logger             *slog.Logger
	}
)

// OK reports whether the claim was verified.
func (r Result) OK() bool {
	return r.Type == ResultSuccess
}

// Err returns the failure behind an error result, nil on success.
func (r Result) Err() error {
	return r.err
}

// Verifier checks payment claims against the provider's receipts. It holds
// no per-call state and is safe for concurrent use.
type Verifier struct {
	receiptBaseURL string
	fetcher        *Fetcher
	logger         *slog.Logger
}

// New returns a Verifier for cfg.
func New(cfg Config) *Verifier {
	if cfg.ReceiptBaseURL == "" {
		cfg.ReceiptBaseURL = DefaultReceiptBaseURL
	}
	if cfg.ReceiptJSONBaseURL == "" {
		cfg.ReceiptJSONBaseURL = DefaultReceiptJSONBaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fetcher := NewFetcher(cfg.ReceiptJSONBaseURL, cfg.HTTPClient)
	fetcher.breaker = cfg.Breaker

	return &Verifier{
		receiptBaseURL: cfg.ReceiptBaseURL,
		fetcher:        fetcher,
		logger:         cfg.Logger,
	}
}

// Verify runs the claim through every stage and never returns a raw error:
// failures are reported as an error Result.
func (v *Verifier) Verify(ctx context.Context, req Request) Result {
	r, err := v.verify(ctx, req)
	if err != nil {
		return failed(err)
	}

	return Result{Type: ResultSuccess, Message: msgVerified, Data: r}
}

func (v *Verifier) verify(ctx context.Context, req Request) (*Receipt, error) {
	if err := checkClaim(req); err != nil {
		return nil, err
	}

	loc, err := ParseLocator(req.ReceiptURL, v.receiptBaseURL)
	if err != nil {
		v.logger.Debug("receipt url rejected", "receipt_url", req.ReceiptURL)
		return nil, err
	}

	r, err := v.fetcher.Fetch(ctx, loc)
	if err != nil {
		v.logger.Warn("receipt fetch failed",
			"token", Fingerprint(loc.Token),
			"error", err,
		)
		return nil, err
	}

	if err := Match(r, req.Username, req.Reference); err != nil {
		v.logger.Info("receipt did not match claim",
			"token", Fingerprint(loc.Token),
			"username", req.Username,
		)
		return nil, err
	}

	v.logger.Info("receipt verified", "token", Fingerprint(loc.Token), "username", req.Username)
	return r, nil
}

// checkClaim gates the pipeline on the two identity fields.
func checkClaim(req Request) error {
	if strings.TrimSpace(req.Username) == "" {
		return status.ErrUsernameRequired
	}
	if strings.TrimSpace(req.Reference) == "" {
		return status.ErrReferenceRequired
	}
	return nil
}

func failed(err error) Result {
	var se *status.Error
	if !errors.As(err, &se) {
		se = status.Transport(err)
	}
	return Result{Type: ResultError, Message: se.Message, err: se}
}

// Fingerprint identifies a transaction token in logs and metrics without
// exposing it.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
