package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"receipt-verifier/internal/status"
)

const (
	// DefaultReceiptJSONBaseURL serves the machine readable receipt for a token.
	DefaultReceiptJSONBaseURL = "https://cash.app/receipt-json/f/"

	// maxReceiptBytes bounds how much of the provider response is read.
	maxReceiptBytes = 1 << 20
)

var errTrailingData = errors.New("unexpected data after receipt")

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves receipts from the provider JSON endpoint.
type Fetcher struct {
	// baseURL is concatenated with the transaction token.
	baseURL string

	// hc is the http client.
	hc Doer

	// breaker guards provider calls when set.
	breaker Breaker
}

// Breaker runs fn unless the provider has been failing too often.
type Breaker interface {
	Execute(ctx context.Context, fn func() (any, error)) (any, error)
}

// NewFetcher creates a fetcher for the given JSON endpoint.
func NewFetcher(baseURL string, hc Doer) *Fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Fetcher{baseURL: baseURL, hc: hc}
}

// Fetch issues exactly one GET for the locator's receipt. A non-200 reply
// is ErrReceiptUnavailable; transport and decode failures keep their
// underlying message.
func (f *Fetcher) Fetch(ctx context.Context, loc Locator) (*Receipt, error) {
	if f.breaker == nil {
		return f.fetch(ctx, loc)
	}

	// A provider that answers, even with a 404, is healthy; only transport
	// failures count against the breaker.
	var rejected error
	v, err := f.breaker.Execute(ctx, func() (any, error) {
		r, err := f.fetch(ctx, loc)
		if errors.Is(err, status.ErrReceiptUnavailable) {
			rejected = err
			return nil, nil
		}
		return r, err
	})
	if rejected != nil {
		return nil, rejected
	}
	if err != nil {
		var se *status.Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, status.Transport(err)
	}
	return v.(*Receipt), nil
}

func (f *Fetcher) fetch(ctx context.Context, loc Locator) (*Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+loc.Token, nil)
	if err != nil {
		return nil, status.Transport(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, status.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxReceiptBytes))
		return nil, status.ErrReceiptUnavailable
	}

	var r Receipt
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxReceiptBytes))
	if err := dec.Decode(&r); err != nil {
		return nil, status.Transport(err)
	}

	// the body must hold exactly one JSON value
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return nil, status.Transport(err)
	}

	return &r, nil
}
