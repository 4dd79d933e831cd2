package mocks

import (
	"context"
	"sync"

	"github.com/cinearenas/booking-engine/internal/domain"
)

// MockNotifier records confirmations instead of sending them.
type MockNotifier struct {
	mu            sync.Mutex
	confirmations []domain.ReservationConfirmation
	err           error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *MockNotifier) ReservationConfirmed(ctx context.Context, confirmation domain.ReservationConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.confirmations = append(m.confirmations, confirmation)

	return nil
}

func (m *MockNotifier) Confirmations() []domain.ReservationConfirmation {
	m.mu.Lock()
	defer m.mu.Unlock()

	confirmations := make([]domain.ReservationConfirmation, len(m.confirmations))
	copy(confirmations, m.confirmations)

	return confirmations
}
