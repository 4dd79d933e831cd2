package payment

import (
	"context"
	"fmt"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// StripePaymentProvider creates hosted checkout sessions for pending
// intents. The intent's reference travels in ClientReferenceID and in the
// session metadata, and comes back with every webhook event; it is the
// only correlation key the engine trusts.
type StripePaymentProvider struct {
	failureUrl string
	successUrl string
}

func NewStripePaymentProvider(failureUrl, successUrl string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl: failureUrl,
		successUrl: successUrl,
	}
}

func (s *StripePaymentProvider) CreateCheckoutSession(
	ctx context.Context,
	intent domain.PaymentIntent,
	show domain.Showtime,
	seats []domain.SeatID) (*domain.CheckoutSession, error) {

	seatPrice := show.SeatPrice
	priceCents := seatPrice.Mul(decimal.NewFromInt(100)).IntPart()

	var lineItems []*stripe.CheckoutSessionLineItemParams

	for _, seat := range seats {
		lineItem := &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(priceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("🎬 %s - Seat %s", show.MovieTitle, seat)),
					Description: stripe.String(fmt.Sprintf(
						"Hall: %s • Format: %s • Showtime: %s",
						show.HallName,
						show.Format,
						show.StartsAt.Format("Jan 2, 2006 15:04"),
					)),
				},
			},
			Quantity: stripe.Int64(1),
		}

		lineItems = append(lineItems, lineItem)
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		Metadata: map[string]string{
			"reference":   intent.Reference,
			"showtime_id": fmt.Sprintf("%d", show.ID),
		},
		CustomerEmail:     stripe.String(intent.PayerEmail),
		ClientReferenceID: stripe.String(intent.Reference),
	}
	params.Context = ctx

	checkoutSession, err := session.New(params)
	if err != nil {
		return nil, err
	}

	return &domain.CheckoutSession{
		Reference:   intent.Reference,
		RedirectURL: checkoutSession.URL,
	}, nil
}
