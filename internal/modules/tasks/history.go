package tasks

import (
	"time"
)

// History is an ordered list of execution records, oldest first. When a limit
// is set the oldest records are trimmed on append.
type History struct {
	limit   int
	records []ExecutionRecord
}

// NewHistory creates a history holding at most limit records (0 = unbounded).
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit}
}

// Append adds a record and trims the oldest beyond the limit.
func (h *History) Append(rec ExecutionRecord) {
	h.records = append(h.records, rec)
	if h.limit > 0 && len(h.records) > h.limit {
		drop := len(h.records) - h.limit
		h.records = append(h.records[:0:0], h.records[drop:]...)
	}
}

// Last returns up to n of the newest records, oldest first. n <= 0 returns all.
func (h *History) Last(n int) []ExecutionRecord {
	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	return append([]ExecutionRecord(nil), h.records[len(h.records)-n:]...)
}

// Len returns the number of records held.
func (h *History) Len() int {
	return len(h.records)
}

// Clear drops every record.
func (h *History) Clear() {
	h.records = nil
}

// Prune drops records started before cutoff and returns how many were removed.
func (h *History) Prune(cutoff time.Time) int {
	kept := h.records[:0]
	for _, rec := range h.records {
		if !rec.StartedAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	removed := len(h.records) - len(kept)
	h.records = kept
	return removed
}
