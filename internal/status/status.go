package status

import "errors"

// Kind classifies why a verification failed.
type Kind string

const (
	KindMissingInput Kind = "missing_input"
	KindMalformedURL Kind = "malformed_url"
	KindTransport    Kind = "transport"
	KindMismatch     Kind = "mismatch"
)

// Error is a terminal verification failure. Message is returned to the
// caller as-is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrUsernameRequired   = &Error{Kind: KindMissingInput, Message: "username is required"}
	ErrReferenceRequired  = &Error{Kind: KindMissingInput, Message: "payment reference is required"}
	ErrInvalidReceiptURL  = &Error{Kind: KindMalformedURL, Message: "Invalid web receipt URL"}
	ErrReceiptUnavailable = &Error{Kind: KindTransport, Message: "Failed to verify web receipt, please provide a valid receipt"}
	ErrUnmatchedReceipt   = &Error{Kind: KindMismatch, Message: "Failed to verify web receipt, Unmatched notes or host."}
)

// Transport wraps a lower level failure, keeping its message verbatim.
func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
}

// KindOf reports the Kind of err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
