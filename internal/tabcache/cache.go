package tabcache

import (
	"log/slog"
	"sync"
	"time"

	"downsort/internal/logging"
	"downsort/internal/match"
)

// Entry is one page-load's keyword analysis for a tab.
type Entry struct {
	URL       string
	Title     string
	Stats     map[string]match.Stats
	Timestamp time.Time
}

// Cache stores per-tab keyword statistics reported by the content-extraction
// collaborator. It is deliberately process-scoped: the browser clears its own
// copy on suspend, and stale statistics from a previous session would poison
// scoring, so nothing here touches disk.
type Cache struct {
	logger   *slog.Logger
	entryCap int
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[int64][]Entry // newest first
	openers map[int64]int64   // child tab -> opener tab
}

// New creates a cache holding at most entryCap entries per tab, discarding
// any tab whose newest entry is older than ttl.
func New(entryCap int, ttl time.Duration, logger *slog.Logger) *Cache {
	if entryCap <= 0 {
		entryCap = 3
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		logger:   logging.NewComponentLogger(logger, "tabcache"),
		entryCap: entryCap,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[int64][]Entry),
		openers:  make(map[int64]int64),
	}
}

// Record inserts an analysis entry at the front of the tab's bucket, evicting
// the oldest entry beyond the per-tab cap. Every write also prunes tabs whose
// newest entry has aged out.
func (c *Cache) Record(tabID int64, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	bucket := append([]Entry{entry}, c.entries[tabID]...)
	if len(bucket) > c.entryCap {
		bucket = bucket[:c.entryCap]
	}
	c.entries[tabID] = bucket
	c.pruneLocked()

	c.logger.Debug("recorded keyword analysis",
		logging.Int64(logging.FieldTabID, tabID),
		logging.String("url", entry.URL),
		logging.Int("entries", len(c.entries[tabID])))
}

// Entries returns a snapshot of the tab's cached analyses, newest first. When
// the tab's own bucket is below the cap and the tab has a known opener, the
// opener's entries top it up, so a freshly opened tab inherits context it has
// not gathered yet. The returned slice is a copy; dropping the tab afterwards
// does not disturb a decision already holding the snapshot.
func (c *Cache) Entries(tabID int64) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := append([]Entry(nil), c.entries[tabID]...)
	if len(snapshot) < c.entryCap {
		if opener, ok := c.openers[tabID]; ok {
			for _, entry := range c.entries[opener] {
				if len(snapshot) >= c.entryCap {
					break
				}
				snapshot = append(snapshot, entry)
			}
		}
	}
	return snapshot
}

// SetOpener records that child was opened from opener, enabling inheritance.
func (c *Cache) SetOpener(child, opener int64) {
	if child == opener {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openers[child] = opener
}

// DropTab removes the tab's bucket and any relationship edges touching the
// tab. Bounding the relationship table by tab lifecycle keeps it from growing
// for the lifetime of the process.
func (c *Cache) DropTab(tabID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tabID)
	delete(c.openers, tabID)
	for child, opener := range c.openers {
		if opener == tabID {
			delete(c.openers, child)
		}
	}
}

// Size returns the number of entries stored for the tab itself, without
// opener inheritance.
func (c *Cache) Size(tabID int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[tabID])
}

func (c *Cache) pruneLocked() {
	cutoff := c.now().Add(-c.ttl)
	for tabID, bucket := range c.entries {
		if len(bucket) == 0 || bucket[0].Timestamp.Before(cutoff) {
			delete(c.entries, tabID)
		}
	}
}
