package checkins

import (
	"context"
	"fmt"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
)

// Repository reads and writes the Check-in Index (checkin_id + checkin_email).
type Repository struct {
	store docstore.Store
}

// NewRepository creates a check-in repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// GetByEmail returns the email-indexed check-in document, or nil if absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*docstore.Document, error) {
	return docstore.Lookup(ctx, r.store, models.CollectionCheckInsByEmail, email)
}

// Stamp merges fields into checkin_id[id] and checkin_email[email] in one commit. The
// email-indexed write only applies if that document is unchanged since seen was read.
func (r *Repository) Stamp(ctx context.Context, id, email string, fields map[string]any, seen *docstore.Document) error {
	err := r.store.Commit(ctx,
		docstore.Write{Op: docstore.OpMerge, Collection: models.CollectionCheckInsByEmail, Key: email, Fields: fields, Precondition: docstore.Unchanged(seen)},
		docstore.Write{Op: docstore.OpMerge, Collection: models.CollectionCheckInsByID, Key: id, Fields: fields},
	)
	if err != nil {
		return fmt.Errorf("stamp check-in %s: %w", id, err)
	}
	return nil
}

// ListByID returns every id-indexed check-in record.
func (r *Repository) ListByID(ctx context.Context) ([]*docstore.Document, error) {
	return r.store.List(ctx, models.CollectionCheckInsByID)
}

// MarkBoth merges fields onto both index entries of one attendee.
func (r *Repository) MarkBoth(ctx context.Context, id, email string, fields map[string]any) error {
	writes := []docstore.Write{
		{Op: docstore.OpMerge, Collection: models.CollectionCheckInsByID, Key: id, Fields: fields},
	}
	if email != "" {
		writes = append(writes, docstore.Write{Op: docstore.OpMerge, Collection: models.CollectionCheckInsByEmail, Key: email, Fields: fields})
	}
	if err := r.store.Commit(ctx, writes...); err != nil {
		return fmt.Errorf("mark check-in %s: %w", id, err)
	}
	return nil
}

// GetByID returns the id-indexed check-in document, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*docstore.Document, error) {
	return docstore.Lookup(ctx, r.store, models.CollectionCheckInsByID, id)
}
