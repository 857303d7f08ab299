package engine

import (
	"sync"
)

// MetricsCollector collects counters for memory store operations.
type MetricsCollector struct {
	mu sync.RWMutex

	cacheHits   int64
	cacheMisses int64
	loads       int64
	storeErrors int64
}

// MetricsSnapshot is a point-in-time copy of the collected counters.
type MetricsSnapshot struct {
	CacheHits   int64
	CacheMisses int64
	Loads       int64
	StoreErrors int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (m *MetricsCollector) recordHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

func (m *MetricsCollector) recordMiss() {
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()
}

func (m *MetricsCollector) recordLoad() {
	m.mu.Lock()
	m.loads++
	m.mu.Unlock()
}

func (m *MetricsCollector) recordStoreError() {
	m.mu.Lock()
	m.storeErrors++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		CacheHits:   m.cacheHits,
		CacheMisses: m.cacheMisses,
		Loads:       m.loads,
		StoreErrors: m.storeErrors,
	}
}
