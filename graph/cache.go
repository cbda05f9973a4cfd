package graph

import (
	"container/list"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

type pathKey struct {
	from      string
	to        string
	edgeTypes string
	direction Direction
	maxDepth  int
}

func newPathKey(from, to string, types []EdgeType, dir Direction, depth int) pathKey {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	slices.Sort(names)
	names = slices.Compact(names)
	return pathKey{
		from:      from,
		to:        to,
		edgeTypes: strings.Join(names, ","),
		direction: dir,
		maxDepth:  depth,
	}
}

type pathEntry struct {
	key     pathKey
	version uint64
	// nil - путь не найден
	path *Path
}

// pathCache - LRU кэш результатов FindPath.
// Запись, вычисленная при другой версии топологии, считается промахом и удаляется.
type pathCache struct {
	mu      sync.Mutex
	enabled bool
	maxSize int

	lru   *list.List
	items map[pathKey]*list.Element

	hits   uint64
	misses uint64
}

func newPathCache(maxSize int, enabled bool) *pathCache {
	return &pathCache{
		enabled: enabled,
		maxSize: maxSize,
		lru:     list.New(),
		items:   make(map[pathKey]*list.Element),
	}
}

func (c *pathCache) get(key pathKey, version uint64) (*Path, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.misses++
		return nil, false
	}
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := elem.Value.(*pathEntry)
	if entry.version != version {
		c.lru.Remove(elem)
		delete(c.items, key)
		c.misses++
		return nil, false
	}
	c.lru.MoveToFront(elem)
	c.hits++
	return entry.path, true
}

func (c *pathCache) put(key pathKey, version uint64, path *Path) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*pathEntry)
		entry.version = version
		entry.path = path
		c.lru.MoveToFront(elem)
		return
	}
	c.items[key] = c.lru.PushFront(&pathEntry{key: key, version: version, path: path})
	for c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*pathEntry).key)
	}
}

type CacheStats struct {
	Enabled bool   `json:"enabled"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Size    int    `json:"size"`
}

func (c *pathCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Enabled: c.enabled,
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    c.lru.Len(),
	}
}
