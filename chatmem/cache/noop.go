package cache

// noOpCache is used when caching is disabled: every key reads as cold.
type noOpCache struct{}

// NewDisabled returns a KeyCache that caches nothing.
func NewDisabled() KeyCache {
	return noOpCache{}
}

func (noOpCache) Has(string) bool { return false }

func (noOpCache) Get(string) (Partition, bool) { return Partition{}, false }

func (noOpCache) PutIfAbsent(string, Partition) bool { return false }

func (noOpCache) Update(string, func(*Partition)) bool { return false }

func (noOpCache) Invalidate(string) {}

func (noOpCache) Len() int { return 0 }
