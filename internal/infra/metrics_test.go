package infra

import (
	"sync"
	"testing"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordBroadcast()
	m.RecordBroadcast()
	m.RecordPublishSkip()
	m.RecordFetchError()
	m.RecordOrderAccepted()
	m.RecordOrderRejected()
	m.RecordOrderRejected()

	snap := m.Snapshot()
	if snap.BroadcastsSent != 2 {
		t.Errorf("expected 2 broadcasts, got %d", snap.BroadcastsSent)
	}
	if snap.PublishSkips != 1 {
		t.Errorf("expected 1 skip, got %d", snap.PublishSkips)
	}
	if snap.FetchErrors != 1 {
		t.Errorf("expected 1 fetch error, got %d", snap.FetchErrors)
	}
	if snap.OrdersAccepted != 1 || snap.OrdersRejected != 2 {
		t.Errorf("expected 1 accepted / 2 rejected, got %d / %d", snap.OrdersAccepted, snap.OrdersRejected)
	}
}

func TestMetrics_ConnectionGauges(t *testing.T) {
	m := NewMetrics()

	m.SetConnections(3, 2)
	snap := m.Snapshot()
	if snap.ActiveConnections != 3 || snap.UniqueClients != 2 {
		t.Errorf("expected 3/2, got %d/%d", snap.ActiveConnections, snap.UniqueClients)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordBroadcast()
	m.SetConnections(5, 5)

	m.Reset()
	snap := m.Snapshot()
	if snap.BroadcastsSent != 0 || snap.ActiveConnections != 0 {
		t.Error("expected all metrics cleared after reset")
	}
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordBroadcast()
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().BroadcastsSent; got != 1000 {
		t.Errorf("expected 1000 broadcasts, got %d", got)
	}
}
