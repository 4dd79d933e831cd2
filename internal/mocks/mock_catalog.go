package mocks

import (
	"context"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCatalog struct {
	mock.Mock
	domain.Catalog
}

func (m *MockCatalog) GetShowtime(ctx context.Context, showtimeID int64) (*domain.Showtime, error) {
	args := m.Called(ctx, showtimeID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Showtime), args.Error(1)
}

func (m *MockCatalog) SeatLayout(ctx context.Context, showtimeID int64) ([]domain.SeatID, error) {
	args := m.Called(ctx, showtimeID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.SeatID), args.Error(1)
}
