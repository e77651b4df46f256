package decoder

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
)

// DefaultCacheSize bounds the number of decoded tables kept in memory.
const DefaultCacheSize = 16

// CacheStats is a snapshot of cache effectiveness counters.
type CacheStats struct {
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

type cacheEntry struct {
	key   string
	table *analysis.Table
}

// TableCache keeps decoded tables keyed by content hash so repeated requests
// over the same upload skip the workbook parse. Entries are evicted least
// recently used. Lookups always return deep copies: callers may mutate what
// they get without poisoning the cache.
type TableCache struct {
	decoder *Decoder
	logger  *slog.Logger

	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	hits      int64
	misses    int64
	evictions int64

	group singleflight.Group
}

// NewTableCache creates a cache over the given decoder.
func NewTableCache(decoder *Decoder, capacity int, logger *slog.Logger) *TableCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TableCache{
		decoder:  decoder,
		logger:   logger.With(slog.String("component", "table_cache")),
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Key returns the content hash used to cache the given upload.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetOrDecode returns the decoded table for the upload, decoding at most once
// per content hash even under concurrent requests.
func (c *TableCache) GetOrDecode(data []byte, filename string) (*analysis.Table, error) {
	key := Key(data)

	if table, ok := c.lookup(key); ok {
		return table, nil
	}

	// Concurrent requests for the same content share one decode. The flight
	// result is shared by every waiter, so the per-caller clone happens
	// after Do returns, never inside the closure.
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if table, ok := c.peek(key); ok {
			return table, nil
		}
		table, err := c.decoder.Decode(data, filename)
		if err != nil {
			return nil, err
		}
		c.store(key, table)
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*analysis.Table).Clone(), nil
}

func (c *TableCache) lookup(key string) (*analysis.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).table.Clone(), true
}

// peek is the double-check inside a flight: no counters, no LRU touch, and
// no clone since the caller clones after Do returns.
func (c *TableCache) peek(key string) (*analysis.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*cacheEntry).table, true
}

func (c *TableCache) store(key string, table *analysis.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).table = table.Clone()
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, table: table.Clone()})
	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*cacheEntry)
		c.order.Remove(oldest)
		delete(c.entries, entry.key)
		c.evictions++
		c.logger.Debug("table evicted", slog.String("key", entry.key[:12]))
	}
}

// Stats returns a consistent snapshot of the counters.
func (c *TableCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Size:      len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Clear drops every cached table, keeping the counters.
func (c *TableCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
