package cache

import (
	"sync"
)

// PartitionCache implements KeyCache as an LRU over a map plus an intrusive
// doubly linked list. A single mutex covers every operation: Get bumps
// recency, so even reads mutate list order.
type PartitionCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*cacheItem
	head     *cacheItem
	tail     *cacheItem
}

type cacheItem struct {
	key       string
	partition Partition
	prev      *cacheItem
	next      *cacheItem
}

// NewPartitionCache creates an LRU partition cache with the specified
// capacity.
func NewPartitionCache(capacity int) *PartitionCache {
	return &PartitionCache{
		capacity: capacity,
		items:    make(map[string]*cacheItem),
	}
}

// Has reports whether key is warm. Presence checks do not bump recency.
func (c *PartitionCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.items[key]
	return exists
}

// Get retrieves a deep copy of the partition for key.
func (c *PartitionCache) Get(key string) (Partition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return Partition{}, false
	}

	// Move to front (most recently used)
	c.moveToFront(item)

	return item.partition.Clone(), true
}

// PutIfAbsent stores a partition for a cold key. The incumbent entry wins a
// seeding race; concurrent loaders treat losing as success.
func (c *PartitionCache) PutIfAbsent(key string, p Partition) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		c.moveToFront(item)
		return false
	}

	item := &cacheItem{key: key, partition: p}

	// Add to front
	c.addToFront(item)
	c.items[key] = item

	// Evict if over capacity
	if len(c.items) > c.capacity {
		c.evictLRU()
	}

	return true
}

// Update applies fn to the live partition under the cache lock. Returns
// false, leaving the key cold, when no entry exists.
func (c *PartitionCache) Update(key string, fn func(*Partition)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return false
	}

	fn(&item.partition)
	c.moveToFront(item)
	return true
}

// Invalidate removes a key from the cache.
func (c *PartitionCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return
	}

	c.removeItem(item)
	delete(c.items, key)
}

// Len reports the number of warm keys.
func (c *PartitionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// moveToFront moves an item to the front of the LRU list.
func (c *PartitionCache) moveToFront(item *cacheItem) {
	if item == c.head {
		return
	}

	c.removeItem(item)
	c.addToFront(item)
}

// addToFront adds an item to the front of the LRU list.
func (c *PartitionCache) addToFront(item *cacheItem) {
	item.next = c.head
	item.prev = nil

	if c.head != nil {
		c.head.prev = item
	}
	c.head = item

	if c.tail == nil {
		c.tail = item
	}
}

// removeItem removes an item from the LRU list.
func (c *PartitionCache) removeItem(item *cacheItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		c.head = item.next
	}

	if item.next != nil {
		item.next.prev = item.prev
	} else {
		c.tail = item.prev
	}

	item.prev = nil
	item.next = nil
}

// evictLRU removes the least recently used item.
func (c *PartitionCache) evictLRU() {
	if c.tail == nil {
		return
	}

	item := c.tail
	c.removeItem(item)
	delete(c.items, item.key)
}

// Ensure PartitionCache implements the KeyCache interface.
var _ KeyCache = (*PartitionCache)(nil)
