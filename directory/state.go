package directory

import (
	"sync"

	"github.com/neusearch/lucene-cloud-go/s3input"
)

// nameSet is a concurrent-safe set of names, backing the Buffered, Synced,
// and Renamed state sets (spec §4.5, §5 "MUST be implemented with
// concurrent-safe maps" for Buffered; Synced/Renamed MAY share one mutex,
// which this same type also serves as).
type nameSet struct {
	mu sync.Mutex
	m  map[string]struct{}
}

func newNameSet() *nameSet {
	return &nameSet{m: make(map[string]struct{})}
}

func (s *nameSet) Add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[name] = struct{}{}
}

func (s *nameSet) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, name)
}

func (s *nameSet) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[name]
	return ok
}

func (s *nameSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.m))
	for name := range s.m {
		out = append(out, name)
	}
	return out
}

func (s *nameSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]struct{})
}

// blockMapTable is the Cached state: a concurrent-safe name -> block
// presence map table with atomic compute-if-absent (spec §5: "compute-if-
// absent is required for atomic Cached-map entry creation in
// openInput").
type blockMapTable struct {
	mu sync.Mutex
	m  map[string]*s3input.BlockMap
}

func newBlockMapTable() *blockMapTable {
	return &blockMapTable{m: make(map[string]*s3input.BlockMap)}
}

// GetOrCreate returns the existing block map for name, or atomically
// creates and stores a new empty one.
func (t *blockMapTable) GetOrCreate(name string) *s3input.BlockMap {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bm, ok := t.m[name]; ok {
		return bm
	}
	bm := s3input.NewBlockMap()
	t.m[name] = bm
	return bm
}

func (t *blockMapTable) Has(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.m[name]
	return ok
}

func (t *blockMapTable) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, name)
}

// Rename transfers name's block-presence map from "from" to "to" (spec
// §4.5.1 rename, Cached case: "transfer the block-presence map under
// to").
func (t *blockMapTable) Rename(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bm, ok := t.m[from]; ok {
		t.m[to] = bm
		delete(t.m, from)
	}
}

func (t *blockMapTable) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.m))
	for name := range t.m {
		out = append(out, name)
	}
	return out
}

func (t *blockMapTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m = make(map[string]*s3input.BlockMap)
}
