package semantic

import "sync"

/*
Cache holds computed embeddings keyed by thought id. Reads are idempotent and
safe under concurrency; two callers racing on a miss may both compute, but
the embedding for a given id is deterministic so last-write-wins is harmless.
Eviction is oldest-first once the capacity target is exceeded.
*/
type Cache struct {
	mu       sync.RWMutex
	entries  map[string][]float32
	order    []string
	capacity int
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		entries:  make(map[string][]float32),
		capacity: capacity,
	}
}

func (c *Cache) Get(id string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[id]
	return vec, ok
}

func (c *Cache) Put(id string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
	}
	c.entries[id] = vec

	for len(c.entries) > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
