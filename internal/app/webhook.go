package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookMaxBodyBytes = int64(65536)

// ProviderWebhookHandler consumes the provider's asynchronous payment
// outcomes. Outcomes that require manual reconciliation are acknowledged
// with 200 after logging: the provider retrying the delivery cannot fix a
// late approval or a conflict, an operator has to.
func (app *Application) ProviderWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, webhookMaxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("failed to read webhook payload"))
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), app.config.stripe.webhookSecret)
	if err != nil {
		logger.Warn("webhook signature verification failed", "error", err)
		app.badRequestResponse(w, r, errors.New("invalid webhook signature"))
		return
	}

	outcome, ok := outcomeForEvent(event)
	if !ok {
		// Event types we don't act on are acknowledged so the provider
		// stops redelivering them.
		w.WriteHeader(http.StatusOK)
		return
	}

	var checkoutSession stripe.CheckoutSession
	err = json.Unmarshal(event.Data.Raw, &checkoutSession)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("malformed webhook event payload"))
		return
	}

	// A completed session that is still unpaid settles through the async
	// payment events later; nothing to resolve yet.
	if event.Type == stripe.EventTypeCheckoutSessionCompleted &&
		checkoutSession.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		w.WriteHeader(http.StatusOK)
		return
	}

	reference := checkoutSession.ClientReferenceID
	if reference == "" {
		app.badRequestResponse(w, r, errors.New("webhook event carries no reference"))
		return
	}

	err = app.engine.Resolve(r.Context(), reference, outcome)
	if err != nil {
		var conflict *domain.ReconciliationConflictError
		var late *domain.LateApprovalError

		switch {
		case errors.Is(err, domain.ErrUnknownReference),
			errors.As(err, &conflict),
			errors.As(err, &late):
			// Already logged by the engine for the operator channel.
			w.WriteHeader(http.StatusOK)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	w.WriteHeader(http.StatusOK)
}

func outcomeForEvent(event stripe.Event) (domain.Outcome, bool) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return domain.OutcomeApproved, true
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		return domain.OutcomeRejected, true
	default:
		return "", false
	}
}
