// Package docstore is a small schema-less document store abstraction: named collections of
// JSON-like documents addressed by string keys, with atomic multi-document commits.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrPreconditionFailed is returned by Commit when a write's precondition does not hold.
	// No write of the commit is applied.
	ErrPreconditionFailed = errors.New("docstore: precondition failed")
)

// Fields is the body of a document. Values are JSON-like: string, bool, nil, numbers
// (float64, int64 or json.Number), []any and map[string]any.
type Fields = map[string]any

// Document is a stored document with its store-assigned version.
type Document struct {
	Collection string
	Key        string
	Fields     Fields
	// Version changes on every write to the document. Opaque to callers.
	Version string
}

// Op is the kind of a Write.
type Op int

const (
	// OpSet replaces the whole document.
	OpSet Op = iota
	// OpMerge updates only the given top-level fields, creating the document if needed.
	OpMerge
	// OpDelete removes the document. Deleting a missing document is not an error.
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpMerge:
		return "merge"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Precondition guards a write. The zero value means no precondition.
type Precondition struct {
	// MustNotExist requires the document to be absent.
	MustNotExist bool
	// Version, when set, requires the document to exist with exactly this version.
	Version string
}

// IsZero reports whether p imposes no condition.
func (p Precondition) IsZero() bool { return !p.MustNotExist && p.Version == "" }

// Unchanged returns the precondition that the document is still as last read:
// absent when doc is nil, otherwise at doc's version.
func Unchanged(doc *Document) Precondition {
	if doc == nil {
		return Precondition{MustNotExist: true}
	}
	return Precondition{Version: doc.Version}
}

// Write is one mutation inside a Commit.
type Write struct {
	Op           Op
	Collection   string
	Key          string
	Fields       Fields
	Precondition Precondition
}

// Store is implemented by every backend.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, key string) (*Document, error)
	// List returns every document of a collection ordered by key.
	List(ctx context.Context, collection string) ([]*Document, error)
	// Commit applies writes in order. Backends apply a commit atomically.
	Commit(ctx context.Context, writes ...Write) error
	// Close releases backend resources.
	Close() error
}

// Set replaces collection/key with fields.
func Set(ctx context.Context, s Store, collection, key string, fields Fields) error {
	return s.Commit(ctx, Write{Op: OpSet, Collection: collection, Key: key, Fields: fields})
}

// Merge updates the given top-level fields of collection/key.
func Merge(ctx context.Context, s Store, collection, key string, fields Fields) error {
	return s.Commit(ctx, Write{Op: OpMerge, Collection: collection, Key: key, Fields: fields})
}

// Delete removes collection/key.
func Delete(ctx context.Context, s Store, collection, key string) error {
	return s.Commit(ctx, Write{Op: OpDelete, Collection: collection, Key: key})
}

// Lookup is Get with ErrNotFound folded into a nil document.
func Lookup(ctx context.Context, s Store, collection, key string) (*Document, error) {
	doc, err := s.Get(ctx, collection, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func validate(w Write) error {
	if w.Collection == "" {
		return fmt.Errorf("docstore: %s: empty collection", w.Op)
	}
	if w.Key == "" {
		return fmt.Errorf("docstore: %s %s: empty key", w.Op, w.Collection)
	}
	return nil
}

// copyFields returns a shallow copy, deep enough for the top-level merge semantics.
func copyFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
