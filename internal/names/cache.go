package names

import "sync"

// Cache memoizes Normalize and Parse results. Ingestion revisits the same
// raw spellings thousands of times per batch.
type Cache struct {
	mu     sync.RWMutex
	norms  map[string]string
	parsed map[string]Parsed
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		norms:  make(map[string]string),
		parsed: make(map[string]Parsed),
	}
}

// Normalize returns the cached normalized form of raw.
func (c *Cache) Normalize(raw string) string {
	c.mu.RLock()
	if v, ok := c.norms[raw]; ok {
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	v := Normalize(raw)
	c.mu.Lock()
	c.norms[raw] = v
	c.mu.Unlock()
	return v
}

// Parse returns the cached parse of raw.
func (c *Cache) Parse(raw string) Parsed {
	return c.parseNormalized(c.Normalize(raw))
}

func (c *Cache) parseNormalized(normalized string) Parsed {
	c.mu.RLock()
	if p, ok := c.parsed[normalized]; ok {
		c.mu.RUnlock()
		return p
	}
	c.mu.RUnlock()

	p := Parse(normalized)
	c.mu.Lock()
	c.parsed[normalized] = p
	c.mu.Unlock()
	return p
}

// Similarity scores two raw names through the cache.
func (c *Cache) Similarity(a, b string) float64 {
	na := c.Normalize(a)
	nb := c.Normalize(b)
	if na != "" && na == nb {
		return 1.0
	}
	return similarityParsed(c.parseNormalized(na), c.parseNormalized(nb))
}

// Reset discards all cached entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.norms = make(map[string]string)
	c.parsed = make(map[string]Parsed)
	c.mu.Unlock()
}

// Len reports how many normalized forms are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.norms)
}
