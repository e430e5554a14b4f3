package docstore

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

// Memory is an in-process Store. Commits are atomic under a single lock.
type Memory struct {
	mu      sync.RWMutex
	colls   map[string]map[string]*Document
	version uint64
	commits int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{colls: make(map[string]map[string]*Document)}
}

// Get returns a copy of the stored document.
func (m *Memory) Get(_ context.Context, collection, key string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.colls[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(doc), nil
}

// List returns copies of every document in collection, ordered by key.
func (m *Memory) List(_ context.Context, collection string) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll := m.colls[collection]
	keys := make([]string, 0, len(coll))
	for k := range coll {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Document, 0, len(keys))
	for _, k := range keys {
		out = append(out, cloneDoc(coll[k]))
	}
	return out, nil
}

// Commit checks every precondition first, then applies all writes.
func (m *Memory) Commit(_ context.Context, writes ...Write) error {
	for _, w := range writes {
		if err := validate(w); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Preconditions are evaluated against the state the commit would see when it reaches
	// each write, so stage the writes on a scratch view first.
	staged := make(map[string]map[string]*Document)
	current := func(coll, key string) (*Document, bool) {
		if c, ok := staged[coll]; ok {
			if d, ok := c[key]; ok {
				return d, d != nil
			}
		}
		d, ok := m.colls[coll][key]
		return d, ok
	}
	for _, w := range writes {
		existing, exists := current(w.Collection, w.Key)
		if w.Precondition.MustNotExist && exists {
			return ErrPreconditionFailed
		}
		if w.Precondition.Version != "" && (!exists || existing.Version != w.Precondition.Version) {
			return ErrPreconditionFailed
		}
		if staged[w.Collection] == nil {
			staged[w.Collection] = make(map[string]*Document)
		}
		switch w.Op {
		case OpDelete:
			staged[w.Collection][w.Key] = nil
		case OpSet:
			m.version++
			staged[w.Collection][w.Key] = &Document{
				Collection: w.Collection, Key: w.Key,
				Fields:  copyFields(w.Fields),
				Version: strconv.FormatUint(m.version, 10),
			}
		case OpMerge:
			merged := Fields{}
			if exists {
				merged = copyFields(existing.Fields)
			}
			for k, v := range w.Fields {
				merged[k] = v
			}
			m.version++
			staged[w.Collection][w.Key] = &Document{
				Collection: w.Collection, Key: w.Key,
				Fields:  merged,
				Version: strconv.FormatUint(m.version, 10),
			}
		}
	}

	for coll, docs := range staged {
		if m.colls[coll] == nil {
			m.colls[coll] = make(map[string]*Document)
		}
		for key, doc := range docs {
			if doc == nil {
				delete(m.colls[coll], key)
				continue
			}
			m.colls[coll][key] = doc
		}
	}
	m.commits++
	return nil
}

// Commits returns the number of successful commits, for tests that assert on write counts.
func (m *Memory) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func cloneDoc(d *Document) *Document {
	return &Document{
		Collection: d.Collection,
		Key:        d.Key,
		Fields:     copyFields(d.Fields),
		Version:    d.Version,
	}
}
