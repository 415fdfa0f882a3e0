package pipeline

// Cache shares render pipelines between draws and frames by Key.
// A Cache is owned by a single goroutine, like the device it holds objects for.
type Cache struct {
	pipelines map[Key]Pipeline
}

// NewCache returns an empty pipeline cache.
func NewCache() *Cache {
	return &Cache{pipelines: make(map[Key]Pipeline)}
}

// Get returns the cached pipeline for a key.
func (c *Cache) Get(key Key) (Pipeline, bool) {
	p, ok := c.pipelines[key]
	return p, ok
}

// Put stores a pipeline under its own key, replacing and releasing any previous entry.
func (c *Cache) Put(p Pipeline) {
	if old, ok := c.pipelines[p.Key()]; ok && old != p {
		old.Release()
	}
	c.pipelines[p.Key()] = p
}

// Len returns the number of cached pipelines.
func (c *Cache) Len() int {
	return len(c.pipelines)
}

// Release frees every cached pipeline and empties the cache.
func (c *Cache) Release() {
	for k, p := range c.pipelines {
		p.Release()
		delete(c.pipelines, k)
	}
}
