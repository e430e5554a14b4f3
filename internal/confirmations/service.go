// Package confirmations sends the check-in confirmation email to attendees who checked in to the
// trigger event and have not been emailed yet.
package confirmations

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PittChallenge/pittchallenge.com/internal/checkins"
	"github.com/PittChallenge/pittchallenge.com/internal/emaillogs"
	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/internal/notifier"
	"github.com/PittChallenge/pittchallenge.com/pkg/queue"
)

// Enqueuer hands confirmation jobs to a background worker.
type Enqueuer interface {
	EnqueueConfirmation(ctx context.Context, payload queue.ConfirmationPayload) error
}

// Summary counts the outcome of one scan.
type Summary struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Queued int `json:"queued"`
}

// Service scans the check-in index and delivers confirmations.
type Service struct {
	checkins    *checkins.Repository
	notifier    notifier.Notifier
	queue       Enqueuer
	logs        *emaillogs.Repository
	trigger     string
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// NewService creates a confirmation service. A nil queue sends inline; logs may be nil.
func NewService(repo *checkins.Repository, n notifier.Notifier, q Enqueuer, logs *emaillogs.Repository, trigger string, concurrency int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		checkins:    repo,
		notifier:    n,
		queue:       q,
		logs:        logs,
		trigger:     trigger,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Due returns one payload per id-indexed check-in that has the trigger event and no sent marker.
func (s *Service) Due(ctx context.Context) ([]queue.ConfirmationPayload, error) {
	if s.trigger == "" {
		s.logger.Warn("confirmation trigger event not configured")
		return nil, nil
	}
	docs, err := s.checkins.ListByID(ctx)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	var due []queue.ConfirmationPayload
	for _, d := range docs {
		rec := models.CheckInFromFields(d.Fields)
		at := rec.CheckedInAt(s.trigger)
		if at == "" || rec.ConfirmationSentAt != "" {
			continue
		}
		id := rec.ID
		if id == "" {
			id = d.Key
		}
		due = append(due, queue.ConfirmationPayload{
			AttendeeID:   id,
			Email:        rec.Email,
			Name:         rec.Name,
			TriggerEvent: s.trigger,
			CheckedInAt:  at,
		})
	}
	return due, nil
}

// SendAll delivers every due confirmation, inline or through the queue. It fails if any
// delivery fails; confirmations already marked stay marked.
func (s *Service) SendAll(ctx context.Context) (Summary, error) {
	due, err := s.Due(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Due: len(due)}
	if len(due) == 0 {
		return sum, nil
	}

	if s.queue != nil {
		for _, p := range due {
			if err := s.queue.EnqueueConfirmation(ctx, p); err != nil {
				return sum, fmt.Errorf("enqueue %s: %w", p.AttendeeID, err)
			}
			sum.Queued++
		}
		s.logger.Info("confirmations queued", zap.Int("count", sum.Queued))
		return sum, nil
	}

	sent := make([]bool, len(due))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range due {
		g.Go(func() error {
			ok, err := s.Process(gctx, p)
			sent[i] = ok
			return err
		})
	}
	err = g.Wait()
	for _, ok := range sent {
		if ok {
			sum.Sent++
		}
	}
	s.logger.Info("confirmations sent", zap.Int("due", sum.Due), zap.Int("sent", sum.Sent))
	return sum, err
}

// Process sends one confirmation and marks both check-in index entries. It re-reads the record
// first and reports false without sending when it is gone or already marked.
func (s *Service) Process(ctx context.Context, p queue.ConfirmationPayload) (bool, error) {
	doc, err := s.checkins.GetByID(ctx, p.AttendeeID)
	if err != nil {
		return false, fmt.Errorf("lookup check-in %s: %w", p.AttendeeID, err)
	}
	if doc == nil {
		s.logger.Warn("confirmation for missing check-in", zap.String("id", p.AttendeeID))
		return false, nil
	}
	rec := models.CheckInFromFields(doc.Fields)
	if rec.ConfirmationSentAt != "" {
		return false, nil
	}
	email := rec.Email
	if email == "" {
		email = p.Email
	}

	sendErr := s.notifier.SendConfirmation(ctx, notifier.Confirmation{Email: email, Name: rec.Name, Event: p.TriggerEvent})
	s.record(ctx, p.AttendeeID, email, p.TriggerEvent, sendErr)
	if sendErr != nil {
		return false, fmt.Errorf("send confirmation %s: %w", p.AttendeeID, sendErr)
	}

	mark := map[string]any{models.FieldConfirmationSent: s.now().UTC().Format(checkins.TimestampLayout)}
	if err := s.checkins.MarkBoth(ctx, p.AttendeeID, email, mark); err != nil {
		// The email went out; a retry of this record will send it again.
		return true, err
	}
	return true, nil
}

func (s *Service) record(ctx context.Context, id, email, event string, sendErr error) {
	if s.logs == nil {
		return
	}
	entry := &models.EmailLog{
		AttendeeID:     id,
		RecipientEmail: email,
		Event:          event,
		Status:         models.EmailLogStatusSent,
		CreatedAt:      s.now(),
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	}
	if err := s.logs.Record(ctx, entry); err != nil {
		s.logger.Warn("email log write failed", zap.String("id", id), zap.Error(err))
	}
}
