package mocks

import (
	"context"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentProvider struct {
	mock.Mock
	domain.PaymentProvider
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	ctx context.Context,
	intent domain.PaymentIntent,
	show domain.Showtime,
	seats []domain.SeatID) (*domain.CheckoutSession, error) {

	args := m.Called(ctx, intent, show, seats)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}
