package registrations

import (
	"context"
	"fmt"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
)

// Repository reads and writes the Registration Index (registrations_id + registrations_email).
type Repository struct {
	store docstore.Store
}

// NewRepository creates a registrations repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Save writes the registration under both index keys in one commit.
func (r *Repository) Save(ctx context.Context, reg *models.Registration) error {
	fields := reg.Fields()
	err := r.store.Commit(ctx,
		docstore.Write{Op: docstore.OpSet, Collection: models.CollectionRegistrationsByID, Key: reg.ID, Fields: fields},
		docstore.Write{Op: docstore.OpSet, Collection: models.CollectionRegistrationsByEmail, Key: reg.Email, Fields: fields},
	)
	if err != nil {
		return fmt.Errorf("save registration %s: %w", reg.ID, err)
	}
	return nil
}

// GetByEmail returns the email-indexed document, or nil if absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*docstore.Document, error) {
	return docstore.Lookup(ctx, r.store, models.CollectionRegistrationsByEmail, email)
}

// GetByID returns the id-indexed document, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*docstore.Document, error) {
	return docstore.Lookup(ctx, r.store, models.CollectionRegistrationsByID, id)
}

// Relocate moves a registration from oldEmail to reg.Email: merge the id-indexed record, delete
// the old email key, create the new one. newSeen is the new email key as last read (nil = absent);
// the commit fails with docstore.ErrPreconditionFailed if it changed meanwhile.
func (r *Repository) Relocate(ctx context.Context, reg *models.Registration, oldEmail string, newSeen *docstore.Document) error {
	fields := reg.Fields()
	writes := []docstore.Write{
		{Op: docstore.OpMerge, Collection: models.CollectionRegistrationsByID, Key: reg.ID, Fields: fields},
	}
	if oldEmail != reg.Email {
		writes = append(writes, docstore.Write{Op: docstore.OpDelete, Collection: models.CollectionRegistrationsByEmail, Key: oldEmail})
	}
	writes = append(writes, docstore.Write{
		Op: docstore.OpSet, Collection: models.CollectionRegistrationsByEmail, Key: reg.Email, Fields: fields,
		Precondition: docstore.Unchanged(newSeen),
	})
	if err := r.store.Commit(ctx, writes...); err != nil {
		return fmt.Errorf("relocate %s: %w", reg.ID, err)
	}
	return nil
}

// ListByID returns every id-indexed registration document.
func (r *Repository) ListByID(ctx context.Context) ([]*docstore.Document, error) {
	return r.store.List(ctx, models.CollectionRegistrationsByID)
}

// ReplaceEmailIndex deletes every registrations_email document and writes byEmail in its place.
func (r *Repository) ReplaceEmailIndex(ctx context.Context, byEmail map[string]map[string]any) error {
	existing, err := r.store.List(ctx, models.CollectionRegistrationsByEmail)
	if err != nil {
		return fmt.Errorf("list email index: %w", err)
	}
	writes := make([]docstore.Write, 0, len(existing)+len(byEmail))
	for _, doc := range existing {
		if _, rewritten := byEmail[doc.Key]; rewritten {
			continue
		}
		writes = append(writes, docstore.Write{Op: docstore.OpDelete, Collection: models.CollectionRegistrationsByEmail, Key: doc.Key})
	}
	for email, fields := range byEmail {
		writes = append(writes, docstore.Write{Op: docstore.OpSet, Collection: models.CollectionRegistrationsByEmail, Key: email, Fields: fields})
	}
	if len(writes) == 0 {
		return nil
	}
	if err := r.store.Commit(ctx, writes...); err != nil {
		return fmt.Errorf("rebuild email index: %w", err)
	}
	return nil
}
