// Package engine orchestrates the chat memory store: it decides cache-hit
// vs cache-miss per operation, keeps the partition cache consistent with the
// durable store, and enforces the per-key capacity limit. The store is the
// source of truth; the cache is an optimization and fails toward a miss.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/chat-memstore/chatmem/cache"
	"github.com/ZanzyTHEbar/chat-memstore/chatmem/config"
	"github.com/ZanzyTHEbar/chat-memstore/chatmem/message"
	"github.com/ZanzyTHEbar/chat-memstore/chatmem/store"

	"github.com/rs/zerolog"
)

// MemoryStore is the per-key short-term memory store engine.
type MemoryStore struct {
	store       store.Store
	cache       cache.KeyCache
	maxMessages int
	logger      zerolog.Logger
	metrics     *MetricsCollector
}

// New wires a MemoryStore from configuration: libsql store adapter, table
// bootstrap, and the partition cache (disabled when configured off).
func New(cfg *config.MemoryConfig, conn *sql.DB, logger zerolog.Logger) (*MemoryStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.NewLibSQLStore(conn, cfg.TableName, logger)
	if err != nil {
		return nil, err
	}
	if err := st.CreateTable(context.Background()); err != nil {
		return nil, err
	}

	var kc cache.KeyCache = cache.NewDisabled()
	if cfg.CacheEnabled {
		kc = cache.NewPartitionCache(cfg.CacheCapacity)
	}

	return newMemoryStore(st, kc, cfg.MaxMessagesPerKey, logger), nil
}

func newMemoryStore(st store.Store, kc cache.KeyCache, maxMessages int, logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		store:       st,
		cache:       kc,
		maxMessages: maxMessages,
		logger:      logger.With().Str("component", "memory_store").Logger(),
		metrics:     NewMetricsCollector(),
	}
}

// Metrics returns a snapshot of the engine's operation counters.
func (m *MemoryStore) Metrics() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// SystemMessage returns the system message for key, or nil when none is
// set. A warm cache entry is authoritative; the cold path queries only the
// system row and deliberately does not seed the cache, so a later
// interactive read still performs a full load instead of finding a
// half-populated partition.
func (m *MemoryStore) SystemMessage(ctx context.Context, key string) (*message.Message, error) {
	if p, ok := m.cache.Get(key); ok {
		m.metrics.recordHit()
		return p.System, nil
	}
	m.metrics.recordMiss()

	row, err := m.store.QuerySystem(ctx, key)
	if err != nil {
		m.metrics.recordStoreError()
		return nil, &StoreError{Op: "get system message", Key: key, Cause: err}
	}
	if row == nil {
		return nil, nil
	}

	msg, err := message.Decode(row.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode system message for key %q: %w", key, err)
	}
	return &msg, nil
}

// InteractiveMessages returns the ordered interactive log for key. A cold
// key triggers a full partition load which seeds the cache.
func (m *MemoryStore) InteractiveMessages(ctx context.Context, key string) ([]message.Message, error) {
	if p, ok := m.cache.Get(key); ok {
		m.metrics.recordHit()
		return p.Messages, nil
	}
	m.metrics.recordMiss()

	p, err := m.loadPartition(ctx, key)
	if err != nil {
		return nil, err
	}
	return p.Messages, nil
}

// All returns the system message (when present) followed by the interactive
// log in canonical order.
func (m *MemoryStore) All(ctx context.Context, key string) ([]message.Message, error) {
	p, ok := m.cache.Get(key)
	if ok {
		m.metrics.recordHit()
	} else {
		m.metrics.recordMiss()
		var err error
		p, err = m.loadPartition(ctx, key)
		if err != nil {
			return nil, err
		}
	}

	if p.System == nil {
		return p.Messages, nil
	}
	out := make([]message.Message, 0, len(p.Messages)+1)
	out = append(out, *p.System)
	return append(out, p.Messages...), nil
}

// loadPartition performs the full-partition load shared by the interactive
// read paths: query in canonical order, decode every row, enforce the
// capacity invariant, then seed the cache. A losing seed race keeps the
// incumbent entry and is not an error; the freshly loaded values are
// returned either way. Decode failures abort the whole load with an
// aggregated error, never a partial partition.
func (m *MemoryStore) loadPartition(ctx context.Context, key string) (cache.Partition, error) {
	rows, err := m.store.QueryPartition(ctx, key)
	if err != nil {
		m.metrics.recordStoreError()
		return cache.Partition{}, &StoreError{Op: "load partition", Key: key, Cause: err}
	}

	var p cache.Partition
	var decodeErrs []error
	for _, row := range rows {
		msg, err := message.Decode(row.Payload)
		if err != nil {
			decodeErrs = append(decodeErrs, err)
			continue
		}
		if msg.Role == message.RoleSystem {
			// Single slot; ascending order makes this last-write-wins should
			// the store ever hold more than one system row.
			p.System = &msg
		} else {
			p.Messages = append(p.Messages, msg)
		}
	}
	if len(decodeErrs) > 0 {
		return cache.Partition{}, fmt.Errorf("failed to load partition for key %q: %w", key, errors.Join(decodeErrs...))
	}

	if len(p.Messages) > m.maxMessages {
		return cache.Partition{}, &CapacityError{Key: key, Limit: m.maxMessages, Count: len(p.Messages), Overflow: true}
	}

	m.metrics.recordLoad()
	if !m.cache.PutIfAbsent(key, p.Clone()) {
		m.logger.Debug().Str("key", key).Msg("concurrent loader seeded the cache first")
	}
	return p, nil
}

// Put persists one message for key. System messages replace the single
// system slot through the store's conditional upsert; interactive messages
// append after a capacity re-check against the store. The cache is only
// mirrored when the key is already warm; a raw write never warms a cold
// key.
func (m *MemoryStore) Put(ctx context.Context, key string, msg message.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("unknown message role %q", msg.Role)
	}

	payload, err := message.Encode(msg)
	if err != nil {
		return err
	}

	if msg.Role == message.RoleSystem {
		if err := m.store.UpsertSystem(ctx, key, payload); err != nil {
			return m.failWrite(key, "store system message", err)
		}
		m.cache.Update(key, func(p *cache.Partition) {
			s := msg.Clone()
			p.System = &s
		})
		return nil
	}

	if err := m.checkCapacity(ctx, key, 1); err != nil {
		return m.failWriteOnStoreError(key, err)
	}
	if err := m.store.InsertInteractive(ctx, key, msg.Role, payload); err != nil {
		return m.failWrite(key, "store interactive message", err)
	}
	m.cache.Update(key, func(p *cache.Partition) {
		p.Messages = append(p.Messages, msg.Clone())
	})
	return nil
}

// PutAll persists a batch of messages for key. Within the batch only the
// last system message is kept; interactive messages land all-or-nothing,
// and the whole batch is rejected when it would overflow the capacity
// limit.
func (m *MemoryStore) PutAll(ctx context.Context, key string, msgs []message.Message) error {
	var sys *message.Message
	var interactive []message.Message
	for i := range msgs {
		if !msgs[i].Role.Valid() {
			return fmt.Errorf("unknown message role %q", msgs[i].Role)
		}
		if msgs[i].Role == message.RoleSystem {
			sys = &msgs[i]
		} else {
			interactive = append(interactive, msgs[i])
		}
	}

	// Encode everything before the first store mutation: an encode failure
	// mid-batch must leave both store and cache untouched.
	var sysPayload []byte
	if sys != nil {
		var err error
		sysPayload, err = message.Encode(*sys)
		if err != nil {
			return err
		}
	}
	rows := make([]store.Row, 0, len(interactive))
	for _, msg := range interactive {
		payload, err := message.Encode(msg)
		if err != nil {
			return err
		}
		rows = append(rows, store.Row{Role: msg.Role, Payload: payload})
	}

	if len(interactive) > 0 {
		if err := m.checkCapacity(ctx, key, len(interactive)); err != nil {
			return m.failWriteOnStoreError(key, err)
		}
	}

	if sys != nil {
		if err := m.store.UpsertSystem(ctx, key, sysPayload); err != nil {
			return m.failWrite(key, "store system message", err)
		}
	}

	if len(rows) > 0 {
		if err := m.store.BatchInsertInteractive(ctx, key, rows); err != nil {
			return m.failWrite(key, "store interactive messages", err)
		}
	}

	m.cache.Update(key, func(p *cache.Partition) {
		if sys != nil {
			s := sys.Clone()
			p.System = &s
		}
		for _, msg := range interactive {
			p.Messages = append(p.Messages, msg.Clone())
		}
	})
	return nil
}

// RemoveSystemMessage deletes the system message for key; an absent row is
// not an error. A warm entry keeps its interactive log and reads the slot
// as "none" afterwards without another load.
func (m *MemoryStore) RemoveSystemMessage(ctx context.Context, key string) error {
	if err := m.store.DeleteSystem(ctx, key); err != nil {
		return m.failWrite(key, "remove system message", err)
	}
	m.cache.Update(key, func(p *cache.Partition) {
		p.System = nil
	})
	return nil
}

// RemoveInteractiveMessages deletes interactive messages for key. count is
// an optional single value: omitted, every interactive row goes; given, the
// n oldest rows by the canonical order go, clamped to what exists. Values
// beyond the first are ignored.
func (m *MemoryStore) RemoveInteractiveMessages(ctx context.Context, key string, count ...int) error {
	if len(count) == 0 {
		if err := m.store.DeleteAllInteractive(ctx, key); err != nil {
			return m.failWrite(key, "remove interactive messages", err)
		}
		m.cache.Update(key, func(p *cache.Partition) {
			p.Messages = nil
		})
		return nil
	}

	n := count[0]
	if n <= 0 {
		return nil
	}
	if err := m.store.DeleteOldestInteractive(ctx, key, n); err != nil {
		return m.failWrite(key, "remove oldest interactive messages", err)
	}
	m.cache.Update(key, func(p *cache.Partition) {
		if n >= len(p.Messages) {
			p.Messages = nil
			return
		}
		p.Messages = append([]message.Message(nil), p.Messages[n:]...)
	})
	return nil
}

// RemoveAll deletes every row for key and unconditionally drops the cache
// entry: after this call the key has no partition state at all. Calling it
// again on an already-empty key succeeds.
func (m *MemoryStore) RemoveAll(ctx context.Context, key string) error {
	if err := m.store.DeleteAll(ctx, key); err != nil {
		return m.failWrite(key, "remove all messages", err)
	}
	m.cache.Invalidate(key)
	return nil
}

// IsFull reports whether the interactive log for key is at or over the
// configured maximum. It shares the counting path with the write-side
// capacity check so "full" and "exceeds maximum" are detected identically.
func (m *MemoryStore) IsFull(ctx context.Context, key string) (bool, error) {
	err := m.checkCapacity(ctx, key, 1)
	var capErr *CapacityError
	if errors.As(err, &capErr) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// checkCapacity re-checks the authoritative interactive count immediately
// before an insert of `incoming` messages. The store count is used rather
// than the cache: only the store is consistent across processes.
func (m *MemoryStore) checkCapacity(ctx context.Context, key string, incoming int) error {
	count, err := m.store.CountInteractive(ctx, key)
	if err != nil {
		return &StoreError{Op: "count interactive messages", Key: key, Cause: err}
	}
	if count > m.maxMessages {
		return &CapacityError{Key: key, Limit: m.maxMessages, Count: count, Overflow: true}
	}
	if count+incoming > m.maxMessages {
		return &CapacityError{Key: key, Limit: m.maxMessages, Count: count}
	}
	return nil
}

// failWrite invalidates the cache entry for key before surfacing a store
// failure: a future miss is always safer than a stale hit.
func (m *MemoryStore) failWrite(key, op string, err error) error {
	m.metrics.recordStoreError()
	m.cache.Invalidate(key)
	m.logger.Error().Err(err).Str("key", key).Str("op", op).Msg("store mutation failed, cache entry invalidated")
	return &StoreError{Op: op, Key: key, Cause: err}
}

// failWriteOnStoreError applies write-path failure semantics to an error
// from a helper: store failures invalidate the cache entry, capacity
// violations pass through untouched.
func (m *MemoryStore) failWriteOnStoreError(key string, err error) error {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		m.metrics.recordStoreError()
		m.cache.Invalidate(key)
		m.logger.Error().Err(err).Str("key", key).Msg("store check failed, cache entry invalidated")
	}
	return err
}
