package stripegw

import (
	"errors"
	"fmt"
	"net/http"

	stripe "github.com/stripe/stripe-go/v72"
)

// Kind classifies a gateway failure. Callers branch on the kind, never on
// error message text.
type Kind int

const (
	// KindTransient covers network errors, rate limits and Stripe-side
	// failures that may succeed on retry.
	KindTransient Kind = iota
	// KindAuthentication means Stripe rejected the credential itself.
	KindAuthentication
	// KindDeclined means the card was declined or otherwise unchargeable.
	KindDeclined
	// KindInvalidRequest covers everything Stripe rejects as malformed.
	KindInvalidRequest
)

// Error wraps a Stripe failure with its classification.
type Error struct {
	Kind  Kind
	Op    string
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stripegw: %s: %v", e.Op, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsAuthentication reports whether err is a credential rejection.
func IsAuthentication(err error) bool {
	return kindOf(err) == KindAuthentication
}

// IsDeclined reports whether err is a card decline.
func IsDeclined(err error) bool {
	return kindOf(err) == KindDeclined
}

func kindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindTransient
}

// wrapErr classifies a raw Stripe SDK error into a typed gateway error.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := KindTransient
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusUnauthorized,
			stripeErr.HTTPStatusCode == http.StatusForbidden:
			kind = KindAuthentication
		case stripeErr.Type == stripe.ErrorTypeCard:
			kind = KindDeclined
		case stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
			stripeErr.Type == stripe.ErrorTypeAPI:
			kind = KindTransient
		default:
			kind = KindInvalidRequest
		}
	}

	return &Error{Kind: kind, Op: op, cause: err}
}
