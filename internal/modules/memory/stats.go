package memory

import (
	"time"
)

const (
	accessLogSize = 1000

	// statsWindow is how many recent access-log entries feed throughput and latency.
	statsWindow = 100
)

// Op is the kind of cache access.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// AccessLogEntry records a single read or write.
type AccessLogEntry struct {
	Op      Op            `json:"op"`
	Address string        `json:"address"`
	At      time.Time     `json:"at"`
	Hit     bool          `json:"hit"`
	Tier    Tier          `json:"tier"`
	Latency time.Duration `json:"latency_ns"`
}

// accessLog keeps the most recent entries, dropping the oldest first.
type accessLog struct {
	entries []AccessLogEntry
	limit   int
	total   int64
}

func newAccessLog(limit int) *accessLog {
	return &accessLog{entries: make([]AccessLogEntry, 0, limit), limit: limit}
}

func (l *accessLog) append(e AccessLogEntry) {
	if len(l.entries) >= l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
	l.total++
}

func (l *accessLog) recent(n int) []AccessLogEntry {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	return l.entries[len(l.entries)-n:]
}

// TierStats describes one cache level.
type TierStats struct {
	Level     Tier    `json:"level"`
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      int64   `json:"hits"`
	HitRate   float64 `json:"hit_rate"`
	Evictions int64   `json:"evictions"`
}

// Stats is a snapshot of cache effectiveness.
//
// Hit rates are tier hits divided by all reads so far, so the tier rates plus
// the backing and miss rates add up to 1.
type Stats struct {
	Tiers            []TierStats `json:"tiers"`
	BackingEntries   int         `json:"backing_entries"`
	BackingHits      int64       `json:"backing_hits"`
	Misses           int64       `json:"misses"`
	Reads            int64       `json:"reads"`
	Writes           int64       `json:"writes"`
	StoredBytes      int64       `json:"stored_bytes"`
	MemorySize       int         `json:"memory_size"`
	Utilization      float64     `json:"utilization"`
	OverallHitRate   float64     `json:"overall_hit_rate"`
	ThroughputPerSec float64     `json:"throughput_per_sec"`
	AvgLatencyMicros float64     `json:"avg_latency_us"`
	LoggedAccesses   int64       `json:"logged_accesses"`
}

// Stats returns per-tier sizes and hit rates plus throughput and latency over
// the most recent accesses.
func (c *Cache) Stats() Stats {
	s := Stats{
		BackingEntries: len(c.backing),
		BackingHits:    c.backingHits,
		Misses:         c.misses,
		Reads:          c.reads,
		Writes:         c.writes,
		MemorySize:     c.cfg.MemorySize,
		LoggedAccesses: c.log.total,
	}

	for _, t := range c.tiers {
		ts := TierStats{
			Level:     t.level,
			Size:      t.lru.Len(),
			Capacity:  t.capacity,
			Hits:      t.hits,
			Evictions: t.evictions,
		}
		if c.reads > 0 {
			ts.HitRate = float64(t.hits) / float64(c.reads)
		}
		s.Tiers = append(s.Tiers, ts)
	}

	for _, e := range c.backing {
		s.StoredBytes += int64(len(e.data))
	}
	if c.cfg.MemorySize > 0 {
		s.Utilization = float64(len(c.backing)) / float64(c.cfg.MemorySize)
	}
	if c.reads > 0 {
		s.OverallHitRate = float64(c.reads-c.misses) / float64(c.reads)
	}

	recent := c.log.recent(statsWindow)
	if n := len(recent); n > 0 {
		var total time.Duration
		for _, e := range recent {
			total += e.Latency
		}
		s.AvgLatencyMicros = float64(total) / float64(n) / float64(time.Microsecond)
		if span := recent[n-1].At.Sub(recent[0].At); span > 0 {
			s.ThroughputPerSec = float64(n) / span.Seconds()
		}
	}

	return s
}

// RecentAccesses returns up to n of the most recent access-log entries, oldest first.
func (c *Cache) RecentAccesses(n int) []AccessLogEntry {
	return append([]AccessLogEntry(nil), c.log.recent(n)...)
}
