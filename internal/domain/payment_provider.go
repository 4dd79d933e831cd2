package domain

import "context"

// CheckoutSession is the provider-side handle for a payment attempt. The
// engine hands out the redirect URL and otherwise never talks to the
// provider again; the provider later calls back with the reference and an
// outcome.
type CheckoutSession struct {
	Reference   string
	RedirectURL string
}

// PaymentProvider creates a hosted checkout for a pending intent. The
// intent's reference must round-trip through the provider unchanged.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, intent PaymentIntent, show Showtime, seats []SeatID) (*CheckoutSession, error)
}
