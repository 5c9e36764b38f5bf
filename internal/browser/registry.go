package browser

import (
	"log/slog"
	"strings"
	"sync"

	"downsort/internal/logging"
	"downsort/internal/services"
)

const historyCap = 50

// Registry mirrors the browser's open tabs and recent navigations from the
// event stream the extension forwards. It answers two questions for the
// decision engine: which tab did a download originate from, and what did the
// user browse recently when no tab can be resolved.
type Registry struct {
	logger *slog.Logger

	mu       sync.RWMutex
	tabs     map[int64]TabInfo
	activeID int64
	history  []HistoryItem // newest first
}

// NewRegistry creates an empty tab registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logging.NewComponentLogger(logger, "browser"),
		tabs:     make(map[int64]TabInfo),
		activeID: -1,
	}
}

// Upsert records a created or updated tab. Navigations to non-internal URLs
// also feed the recent-history list.
func (r *Registry) Upsert(tab TabInfo) {
	if tab.ID <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, known := r.tabs[tab.ID]
	r.tabs[tab.ID] = tab
	if tab.Active {
		r.activeID = tab.ID
	}

	if tab.URL != "" && !InternalURL(tab.URL) && (!known || previous.URL != tab.URL) {
		r.history = append([]HistoryItem{{URL: tab.URL, Title: tab.Title}}, r.history...)
		if len(r.history) > historyCap {
			r.history = r.history[:historyCap]
		}
	}
}

// Activate marks a tab as the active one.
func (r *Registry) Activate(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tabs[id]; ok {
		r.activeID = id
	}
}

// Remove forgets a closed tab.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, id)
	if r.activeID == id {
		r.activeID = -1
	}
}

// Resolve finds the tab a download originated from by matching the initiator
// URL (query string stripped) against open tab URLs; the closest prefix match
// wins. When nothing matches, the active tab stands in. Resolution failure is
// tagged ErrTabResolution so callers degrade to history evidence.
func (r *Registry) Resolve(initiator string) (TabInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := strings.TrimSpace(initiator)
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}

	if base != "" {
		var best TabInfo
		bestLen := -1
		for _, tab := range r.tabs {
			if tab.URL == "" || !strings.HasPrefix(tab.URL, base) {
				continue
			}
			// The most specific (longest) matching URL wins.
			if len(tab.URL) > bestLen {
				best = tab
				bestLen = len(tab.URL)
			}
		}
		if bestLen >= 0 {
			return best, nil
		}
	}

	if active, ok := r.tabs[r.activeID]; ok {
		return active, nil
	}
	return TabInfo{}, services.Wrap(services.ErrTabResolution, "browser", "resolve tab", "no matching or active tab", nil)
}

// Recent returns up to n recent non-internal history items, newest first.
func (r *Registry) Recent(n int) []HistoryItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.history) {
		n = len(r.history)
	}
	return append([]HistoryItem(nil), r.history[:n]...)
}

// TabCount returns the number of tracked tabs.
func (r *Registry) TabCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

// InternalURL reports whether a URL points at a browser-internal page that
// must never feed scoring evidence.
func InternalURL(url string) bool {
	for _, prefix := range []string{"chrome://", "edge://", "about:", "chrome-extension://", "moz-extension://", "devtools://"} {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}
