package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	broadcastsSent atomic.Uint64
	publishSkips   atomic.Uint64
	fetchErrors    atomic.Uint64
	ordersAccepted atomic.Uint64
	ordersRejected atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
	uniqueClients     atomic.Int32
}

// NewMetrics creates an empty metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordBroadcast records a completed snapshot broadcast.
func (m *Metrics) RecordBroadcast() {
	m.broadcastsSent.Add(1)
}

// RecordPublishSkip records a publish cycle skipped for lack of listeners.
func (m *Metrics) RecordPublishSkip() {
	m.publishSkips.Add(1)
}

// RecordFetchError records a failed external price fetch.
func (m *Metrics) RecordFetchError() {
	m.fetchErrors.Add(1)
}

// RecordOrderAccepted records an accepted order.
func (m *Metrics) RecordOrderAccepted() {
	m.ordersAccepted.Add(1)
}

// RecordOrderRejected records a rejected order.
func (m *Metrics) RecordOrderRejected() {
	m.ordersRejected.Add(1)
}

// SetConnections sets the active and unique connection gauges.
func (m *Metrics) SetConnections(active, unique int32) {
	m.activeConnections.Store(active)
	m.uniqueClients.Store(unique)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	BroadcastsSent    uint64
	PublishSkips      uint64
	FetchErrors       uint64
	OrdersAccepted    uint64
	OrdersRejected    uint64
	ActiveConnections int32
	UniqueClients     int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		BroadcastsSent:    m.broadcastsSent.Load(),
		PublishSkips:      m.publishSkips.Load(),
		FetchErrors:       m.fetchErrors.Load(),
		OrdersAccepted:    m.ordersAccepted.Load(),
		OrdersRejected:    m.ordersRejected.Load(),
		ActiveConnections: m.activeConnections.Load(),
		UniqueClients:     m.uniqueClients.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.broadcastsSent.Store(0)
	m.publishSkips.Store(0)
	m.fetchErrors.Store(0)
	m.ordersAccepted.Store(0)
	m.ordersRejected.Store(0)
	m.activeConnections.Store(0)
	m.uniqueClients.Store(0)
}
