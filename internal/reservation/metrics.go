package reservation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// engineMetrics counts the engine's state transitions. When no meter
// provider is configured the global provider is a no-op, so the counters
// cost nothing in tests.
type engineMetrics struct {
	holdsCreated   metric.Int64Counter
	seatConflicts  metric.Int64Counter
	holdsExpired   metric.Int64Counter
	commits        metric.Int64Counter
	rejections     metric.Int64Counter
	conflicts      metric.Int64Counter
	lateApprovals  metric.Int64Counter
	ledgerFailures metric.Int64Counter
}

func newEngineMetrics() *engineMetrics {
	meter := otel.Meter("booking-engine")

	m := &engineMetrics{}
	m.holdsCreated, _ = meter.Int64Counter("reservation.holds.created")
	m.seatConflicts, _ = meter.Int64Counter("reservation.holds.seat_conflicts")
	m.holdsExpired, _ = meter.Int64Counter("reservation.holds.expired")
	m.commits, _ = meter.Int64Counter("reservation.intents.committed")
	m.rejections, _ = meter.Int64Counter("reservation.intents.rejected")
	m.conflicts, _ = meter.Int64Counter("reservation.reconciliation.conflicts")
	m.lateApprovals, _ = meter.Int64Counter("reservation.reconciliation.late_approvals")
	m.ledgerFailures, _ = meter.Int64Counter("reservation.ledger.append_failures")

	return m
}

func (m *engineMetrics) add(ctx context.Context, counter metric.Int64Counter, n int64) {
	if counter != nil {
		counter.Add(ctx, n)
	}
}
