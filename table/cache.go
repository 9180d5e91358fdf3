package table

import (
	"encoding/binary"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/brunobiangulo/gostrata/block"
)

const defaultCacheSize = 256

// Cache memoizes secondary-extraction results across documents. Keys are
// content-addressed over the input matrix and the attempt parameters, so
// identical regions processed by concurrent workers reuse one extraction.
// Entries are cloned on both store and load; a cached table is never
// shared mutable state.
type Cache struct {
	mu      sync.RWMutex
	max     int
	entries map[uint64]*block.Table

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache bounded to max entries; max <= 0 selects the
// default bound.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = defaultCacheSize
	}
	return &Cache{max: max, entries: make(map[uint64]*block.Table, max)}
}

// Key hashes the extraction input: cell texts and boxes in matrix order,
// header markings and the attempt parameters. Two regions with identical
// content collide on purpose.
func Key(t *block.Table, p Params) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		d.Write(buf[:])
	}

	for _, row := range t.Rows {
		for _, c := range row {
			d.WriteString(c.Text)
			d.Write([]byte{0x1f})
			writeFloat(c.Rect.X0)
			writeFloat(c.Rect.Y0)
			writeFloat(c.Rect.X1)
			writeFloat(c.Rect.Y1)
		}
		d.Write([]byte{0x1e})
	}

	headers := make([]int, 0, len(t.HeaderRows))
	for idx, isHeader := range t.HeaderRows {
		if isHeader {
			headers = append(headers, idx)
		}
	}
	sort.Ints(headers)
	for _, idx := range headers {
		binary.LittleEndian.PutUint64(buf[:], uint64(idx))
		d.Write(buf[:])
	}

	writeFloat(p.LineSensitivity)
	writeFloat(p.CellMergeDistance)
	return d.Sum64()
}

// Get returns a clone of the cached table for key, if present.
func (c *Cache) Get(key uint64) (*block.Table, bool) {
	c.mu.RLock()
	t, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return t.Clone(), true
}

// Put stores a clone of t under key, evicting an arbitrary entry when the
// bound is reached.
func (c *Cache) Put(key uint64, t *block.Table) {
	if t == nil {
		return
	}
	clone := t.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = clone
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
