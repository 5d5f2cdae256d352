package receipt

import (
	"net/url"
	"strings"

	"github.com/asaskevich/govalidator"

	"receipt-verifier/internal/status"
)

const (
	// DefaultReceiptBaseURL prefixes every genuine web receipt link.
	DefaultReceiptBaseURL = "https://cash.app/payments/"

	// minTokenLength is the shortest transaction token the provider issues.
	minTokenLength = 15

	// repeatedPrefixLength is how many leading token bytes may not all be equal.
	repeatedPrefixLength = 5
)

// Locator addresses a receipt on the provider's JSON endpoint.
type Locator struct {
	Token string
}

// ParseLocator validates a web receipt link and extracts its transaction
// token. baseURL is the provider receipt prefix the link must start with.
//
// The checks are structural only. The provider's own record, fetched
// later, is what decides whether the payment happened.
func ParseLocator(receiptURL, baseURL string) (Locator, error) {
	if receiptURL == "" {
		return Locator{}, status.ErrInvalidReceiptURL
	}

	if !govalidator.IsURL(receiptURL) || !govalidator.IsRequestURL(receiptURL) {
		return Locator{}, status.ErrInvalidReceiptURL
	}

	if !strings.HasPrefix(receiptURL, baseURL) {
		return Locator{}, status.ErrInvalidReceiptURL
	}

	u, err := url.Parse(receiptURL)
	if err != nil || u.Host == "" {
		return Locator{}, status.ErrInvalidReceiptURL
	}

	path := u.EscapedPath()
	if path == "" {
		return Locator{}, status.ErrInvalidReceiptURL
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || len(segments[1]) < minTokenLength {
		return Locator{}, status.ErrInvalidReceiptURL
	}

	token := segments[1]
	if hasRepeatedPrefix(token) {
		return Locator{}, status.ErrInvalidReceiptURL
	}

	return Locator{Token: token}, nil
}

// hasRepeatedPrefix reports whether the leading bytes of token are a single
// repeated character, e.g. "aaaaa...". Genuine tokens are high entropy, so
// this filters out hand-made links. It is a heuristic, not a guarantee.
func hasRepeatedPrefix(token string) bool {
	if len(token) < repeatedPrefixLength {
		return false
	}
	for i := 1; i < repeatedPrefixLength; i++ {
		if token[i] != token[0] {
			return false
		}
	}
	return true
}
