package automod

import (
	"sync"
	"time"
)

const windowCapacity = 10

type windowEntry struct {
	content string
	at      time.Time
}

// messageWindow keeps the last windowCapacity messages of one user.
type messageWindow struct {
	entries []windowEntry
}

func (w *messageWindow) add(content string, at time.Time) {
	w.entries = append(w.entries, windowEntry{content: content, at: at})
	if len(w.entries) > windowCapacity {
		w.entries = w.entries[len(w.entries)-windowCapacity:]
	}
}

func (w *messageWindow) countSince(cutoff time.Time) int {
	count := 0
	for _, entry := range w.entries {
		if entry.at.After(cutoff) {
			count++
		}
	}
	return count
}

// distinctContents returns how many distinct contents the window holds,
// and how many entries it holds in total.
func (w *messageWindow) distinctContents() (distinct, total int) {
	seen := make(map[string]struct{}, len(w.entries))
	for _, entry := range w.entries {
		seen[entry.content] = struct{}{}
	}
	return len(seen), len(w.entries)
}

type windows struct {
	mu     sync.Mutex
	byUser map[string]*messageWindow
}

func newWindows() *windows {
	return &windows{byUser: make(map[string]*messageWindow)}
}

func (w *windows) get(key string) *messageWindow {
	w.mu.Lock()
	defer w.mu.Unlock()
	window := w.byUser[key]
	if window == nil {
		window = &messageWindow{}
		w.byUser[key] = window
	}
	return window
}
