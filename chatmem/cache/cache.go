// Package cache provides the process-local key → partition cache for the
// memory store engine.
package cache

import (
	"github.com/ZanzyTHEbar/chat-memstore/chatmem/message"
)

// Partition is the cached state for one key: the optional system slot plus
// the ordered interactive log. A warm entry with a nil System reads as
// "no system message" without touching the store; absence of the entry
// itself is what signals a cold key.
type Partition struct {
	System   *message.Message
	Messages []message.Message
}

// Clone deep-copies the partition.
func (p Partition) Clone() Partition {
	out := Partition{Messages: message.CloneAll(p.Messages)}
	if p.System != nil {
		s := p.System.Clone()
		out.System = &s
	}
	return out
}

// KeyCache is the partition cache consumed by the engine. Every method is a
// single critical section on the cache instance: concurrent callers observe
// all operations for a key in one global order.
type KeyCache interface {
	// Has reports whether key is warm without touching recency.
	Has(key string) bool
	// Get returns a deep copy of the cached partition and bumps recency.
	Get(key string) (Partition, bool)
	// PutIfAbsent seeds a partition for a cold key. A losing race keeps the
	// incumbent entry; the return value reports whether this call stored.
	PutIfAbsent(key string, p Partition) bool
	// Update applies fn to the live entry under the cache lock iff the key
	// is warm; a cold key is left cold.
	Update(key string, fn func(*Partition)) bool
	// Invalidate drops the entry; absent key is a no-op.
	Invalidate(key string)
	// Len reports the number of warm keys.
	Len() int
}
