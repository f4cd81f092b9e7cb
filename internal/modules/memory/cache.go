// Package memory implements the classical side of the hybrid simulator: a
// key/value backing store fronted by a three-level LRU cache hierarchy.
package memory

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/qhybrid/internal/domain"
)

// Tier identifies where a read was served from.
type Tier int

const (
	TierMiss    Tier = 0
	TierL1      Tier = 1
	TierL2      Tier = 2
	TierL3      Tier = 3
	TierBacking Tier = 4
)

// String returns the tier label used in logs and API responses.
func (t Tier) String() string {
	switch t {
	case TierL1:
		return "L1"
	case TierL2:
		return "L2"
	case TierL3:
		return "L3"
	case TierBacking:
		return "backing"
	default:
		return "miss"
	}
}

// MarshalText renders the tier label in JSON.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

const numTiers = 3

// Config holds tier capacities (entry counts, fastest first) and the logical
// memory allocation reported by Stats.
type Config struct {
	Tier1Capacity int
	Tier2Capacity int
	Tier3Capacity int
	MemorySize    int
}

// Entry is one cached value. Each tier map and the backing store own their
// own Entry; promotion copies.
type Entry struct {
	Address      string
	data         []byte
	WrittenAt    time.Time
	AccessCount  int64
	LastAccessed time.Time
}

// ReadResult is returned by Read. Hit is false when the address is absent
// from every tier and the backing store.
type ReadResult struct {
	Address      string      `json:"address"`
	Payload      interface{} `json:"payload,omitempty"`
	Hit          bool        `json:"hit"`
	Tier         Tier        `json:"tier"`
	WrittenAt    time.Time   `json:"written_at,omitempty"`
	AccessCount  int64       `json:"access_count"`
	LastAccessed time.Time   `json:"last_accessed,omitempty"`
}

// WriteResult is returned by Write.
type WriteResult struct {
	Address   string    `json:"address"`
	Bytes     int       `json:"bytes"`
	WrittenAt time.Time `json:"written_at"`
	Evicted   int       `json:"evicted"`
}

type tier struct {
	level     Tier
	capacity  int
	lru       *simplelru.LRU[string, *Entry]
	hits      int64
	evictions int64
}

// Cache is a backing store plus three capacity-bounded LRU tiers. An entry
// evicted from tier k is demoted into tier k+1; tier 3 victims survive only in
// the backing store.
//
// Cache is not safe for concurrent use. The simulation core serializes access.
type Cache struct {
	cfg         Config
	tiers       [numTiers]*tier
	backing     map[string]*Entry
	backingHits int64
	misses      int64
	reads       int64
	writes      int64
	log         *accessLog
	now         func() time.Time
	logger      zerolog.Logger
}

// New creates a cache with the given tier capacities.
func New(cfg Config, log zerolog.Logger) (*Cache, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Cache{
		cfg:    cfg,
		now:    time.Now,
		logger: log.With().Str("component", "tiered_cache").Logger(),
	}
	if err := c.Reset(cfg.MemorySize); err != nil {
		return nil, err
	}
	return c, nil
}

func (cfg Config) validate() error {
	var errs domain.ValidationErrors
	for i, capacity := range []int{cfg.Tier1Capacity, cfg.Tier2Capacity, cfg.Tier3Capacity} {
		if capacity <= 0 {
			errs = append(errs, domain.ValidationError{
				Field:   fmt.Sprintf("tier%d_capacity", i+1),
				Message: "must be greater than 0",
			})
		}
	}
	if cfg.MemorySize < 0 {
		errs = append(errs, domain.ValidationError{Field: "memory_size", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetClock replaces the time source (tests).
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Reset drops every entry and counter and records a new logical memory size.
func (c *Cache) Reset(memorySize int) error {
	if memorySize < 0 {
		return domain.Invalid("memory_size", "must not be negative")
	}
	capacities := [numTiers]int{c.cfg.Tier1Capacity, c.cfg.Tier2Capacity, c.cfg.Tier3Capacity}
	for i := range c.tiers {
		lru, err := simplelru.NewLRU[string, *Entry](capacities[i], nil)
		if err != nil {
			return fmt.Errorf("failed to create tier %d: %w", i+1, err)
		}
		c.tiers[i] = &tier{level: Tier(i + 1), capacity: capacities[i], lru: lru}
	}
	c.cfg.MemorySize = memorySize
	c.backing = make(map[string]*Entry)
	c.backingHits, c.misses, c.reads, c.writes = 0, 0, 0, 0
	c.log = newAccessLog(accessLogSize)
	return nil
}

// Write stores payload at address in the backing store and promotes it into
// tier 1, evicting tier 1's least recently used entry if it is full. Copies
// already held by lower tiers are refreshed in place.
func (c *Cache) Write(address string, payload interface{}) (WriteResult, error) {
	if address == "" {
		return WriteResult{}, domain.Invalid("address", "required")
	}
	start := c.now()
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return WriteResult{}, domain.Invalid("payload", "cannot be encoded: %v", err)
	}

	e, ok := c.backing[address]
	if !ok {
		e = &Entry{Address: address}
		c.backing[address] = e
	}
	e.data = data
	e.WrittenAt = start
	e.AccessCount++
	e.LastAccessed = start

	for _, t := range c.tiers[1:] {
		if stale, ok := t.lru.Peek(address); ok {
			stale.data = data
			stale.WrittenAt = start
		}
	}

	evicted := c.insert(0, e.copy())
	c.writes++
	c.log.append(AccessLogEntry{
		Op:      OpWrite,
		Address: address,
		At:      start,
		Hit:     true,
		Tier:    TierL1,
		Latency: c.now().Sub(start),
	})

	return WriteResult{Address: address, Bytes: len(data), WrittenAt: start, Evicted: evicted}, nil
}

// Read looks the address up in tier 1, 2, 3 and finally the backing store.
// A hit in tier k>1 is promoted into every tier above k; a backing-store hit
// is promoted into tier 1 only.
func (c *Cache) Read(address string) (ReadResult, error) {
	if address == "" {
		return ReadResult{}, domain.Invalid("address", "required")
	}
	start := c.now()
	c.reads++

	served := TierMiss
	var hit *Entry
	for i, t := range c.tiers {
		if e, ok := t.lru.Get(address); ok {
			t.hits++
			served = t.level
			hit = e
			hit.AccessCount++
			hit.LastAccessed = start
			for above := i - 1; above >= 0; above-- {
				c.insert(above, hit.copy())
			}
			break
		}
	}

	if hit == nil {
		if e, ok := c.backing[address]; ok {
			c.backingHits++
			served = TierBacking
			hit = e
			hit.AccessCount++
			hit.LastAccessed = start
			c.insert(0, hit.copy())
		}
	} else if e, ok := c.backing[address]; ok {
		e.AccessCount++
		e.LastAccessed = start
	}

	result := ReadResult{Address: address, Tier: served}
	if hit == nil {
		c.misses++
	} else {
		var payload interface{}
		if err := msgpack.Unmarshal(hit.data, &payload); err != nil {
			return ReadResult{}, fmt.Errorf("failed to decode payload at %q: %w", address, err)
		}
		result.Hit = true
		result.Payload = payload
		result.WrittenAt = hit.WrittenAt
		result.AccessCount = hit.AccessCount
		result.LastAccessed = hit.LastAccessed
	}

	c.log.append(AccessLogEntry{
		Op:      OpRead,
		Address: address,
		At:      start,
		Hit:     result.Hit,
		Tier:    served,
		Latency: c.now().Sub(start),
	})

	return result, nil
}

// TierKeys returns the addresses held by tier level (1-3), least recently
// used first.
func (c *Cache) TierKeys(level Tier) []string {
	if level < TierL1 || level > TierL3 {
		return nil
	}
	return c.tiers[level-1].lru.Keys()
}

// insert places e in tier index i, demoting that tier's LRU victim into the
// next tier when full. It returns the number of evictions it caused.
func (c *Cache) insert(i int, e *Entry) int {
	t := c.tiers[i]
	if t.lru.Contains(e.Address) {
		t.lru.Add(e.Address, e)
		return 0
	}

	evicted := 0
	if t.lru.Len() >= t.capacity {
		if _, victim, ok := t.lru.RemoveOldest(); ok {
			t.evictions++
			evicted++
			c.logger.Debug().
				Str("address", victim.Address).
				Str("tier", t.level.String()).
				Msg("Evicted least recently used entry")
			if i+1 < numTiers {
				evicted += c.insert(i+1, victim)
			}
		}
	}
	t.lru.Add(e.Address, e)
	return evicted
}

func (e *Entry) copy() *Entry {
	c := *e
	return &c
}
