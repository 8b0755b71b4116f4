package circulation

import (
	"sort"
	"sync"
)

// keyMutex serializes work per string key. Multi-key acquisition sorts the
// keys first so two callers locking overlapping sets cannot deadlock.
// Unrelated keys do not contend.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*keyLock)}
}

func dedupSorted(keys []string) []string {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	return sorted
}

// Lock acquires every key in sorted order and returns the unlock function.
func (m *keyMutex) Lock(keys ...string) func() {
	sorted := dedupSorted(keys)

	acquired := make([]*keyLock, 0, len(sorted))
	for _, k := range sorted {
		m.mu.Lock()
		l, ok := m.locks[k]
		if !ok {
			l = &keyLock{}
			m.locks[k] = l
		}
		l.refs++
		m.mu.Unlock()

		l.mu.Lock()
		acquired = append(acquired, l)
	}

	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			acquired[i].mu.Unlock()

			m.mu.Lock()
			acquired[i].refs--
			if acquired[i].refs == 0 {
				delete(m.locks, sorted[i])
			}
			m.mu.Unlock()
		}
	}
}
