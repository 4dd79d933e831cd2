package mocks

import (
	"context"
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockSalesLedger struct {
	mock.Mock
	domain.SalesLedger
}

func (m *MockSalesLedger) Append(ctx context.Context, record domain.SalesRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSalesLedger) Query(ctx context.Context, from, to time.Time) ([]domain.SalesRecord, error) {
	args := m.Called(ctx, from, to)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.SalesRecord), args.Error(1)
}

func (m *MockSalesLedger) ReservedSeats(ctx context.Context, showtimeID int64) ([]domain.SeatID, error) {
	args := m.Called(ctx, showtimeID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.SeatID), args.Error(1)
}
