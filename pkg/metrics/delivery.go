package metrics

import (
	"sync"
	"time"
)

// DeliveryMetrics tracks webhook notification delivery outcomes. All methods
// are safe for concurrent use.
type DeliveryMetrics struct {
	mu sync.RWMutex

	delivered map[string]int64
	failed    int64
	skipped   int64
	last      time.Time
}

// NewDeliveryMetrics creates an empty DeliveryMetrics instance.
func NewDeliveryMetrics() *DeliveryMetrics {
	return &DeliveryMetrics{
		delivered: make(map[string]int64),
	}
}

// RecordDelivery records a successful delivery of the given notification type.
func (m *DeliveryMetrics) RecordDelivery(notificationType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.delivered[notificationType]++
	m.last = time.Now()
}

// RecordFailure records a delivery that was attempted but not acknowledged.
func (m *DeliveryMetrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

// RecordSkip records an emission dropped because no subscriber was registered.
func (m *DeliveryMetrics) RecordSkip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped++
}

// Snapshot returns the current counters in a serializable form.
func (m *DeliveryMetrics) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[string]int64, len(m.delivered))
	var total int64

	for notificationType, count := range m.delivered {
		byType[notificationType] = count
		total += count
	}

	snapshot := map[string]any{
		"delivered":         total,
		"delivered_by_type": byType,
		"failed":            m.failed,
		"skipped":           m.skipped,
	}

	if !m.last.IsZero() {
		snapshot["last_delivery"] = m.last.UTC().Format(time.RFC3339)
	}

	return snapshot
}
