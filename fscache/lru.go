package fscache

import "container/list"

// lruTracker is the size-bounded eviction policy for Cached sparse files
// (SPEC_FULL.md §4, grounded on the neusearch Java variant's
// maxLocalCacheSize / getCachedFilesSizeSortedList). It tracks only names
// that Cache.touchCached registers — Buffered and Synced files never
// pass through it, so eviction can never remove a file the engine still
// has open for writing.
type lruTracker struct {
	list    *list.List
	entries map[string]*list.Element
	total   int64
}

type lruEntry struct {
	name string
	size int64
}

func newLRUTracker() *lruTracker {
	return &lruTracker{list: list.New(), entries: make(map[string]*list.Element)}
}

// touch marks name as most-recently-used with the given size, then
// evicts least-recently-used entries (oldest first) until total is at
// most budget. It returns the names evicted, if any.
func (t *lruTracker) touch(name string, size, budget int64) []string {
	if el, ok := t.entries[name]; ok {
		t.total -= el.Value.(*lruEntry).size
		t.list.Remove(el)
		delete(t.entries, name)
	}
	el := t.list.PushFront(&lruEntry{name: name, size: size})
	t.entries[name] = el
	t.total += size

	var evicted []string
	for t.total > budget {
		back := t.list.Back()
		if back == nil {
			break
		}
		entry := back.Value.(*lruEntry)
		// Never evict the entry that was just touched, even if it alone
		// exceeds budget: a single oversized object must still be usable.
		if entry.name == name && t.list.Len() == 1 {
			break
		}
		t.list.Remove(back)
		delete(t.entries, entry.name)
		t.total -= entry.size
		evicted = append(evicted, entry.name)
	}
	return evicted
}

// forget removes name from tracking without evicting anything else,
// used when a Cached name is deleted or renamed out from under the
// tracker by a directory operation.
func (t *lruTracker) forget(name string) {
	if el, ok := t.entries[name]; ok {
		t.total -= el.Value.(*lruEntry).size
		t.list.Remove(el)
		delete(t.entries, name)
	}
}
