package emaillogs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
)

// Repository handles email_logs persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates an email logs repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Record stores one delivery attempt. ID and CreatedAt are filled in when empty.
func (r *Repository) Record(ctx context.Context, l *models.EmailLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if err := docstore.Set(ctx, r.store, models.CollectionEmailLogs, l.ID, l.Fields()); err != nil {
		return fmt.Errorf("record email log: %w", err)
	}
	return nil
}

// ListByAttendee returns email logs for an attendee id, newest first. An empty id lists all.
func (r *Repository) ListByAttendee(ctx context.Context, attendeeID string) ([]*models.EmailLog, error) {
	docs, err := r.store.List(ctx, models.CollectionEmailLogs)
	if err != nil {
		return nil, err
	}
	list := make([]*models.EmailLog, 0, len(docs))
	for _, d := range docs {
		l := models.EmailLogFromFields(d.Fields)
		if attendeeID != "" && l.AttendeeID != attendeeID {
			continue
		}
		list = append(list, l)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}
