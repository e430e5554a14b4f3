package checkins

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PittChallenge/pittchallenge.com/internal/icons"
	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/internal/registrations"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
	"github.com/PittChallenge/pittchallenge.com/pkg/utils"
)

// Check-in outcomes that are not store failures.
var (
	ErrChangeEmail     = errors.New("email is neither institutional nor alias-tagged")
	ErrEmptyEvent      = errors.New("event is empty")
	ErrReservedEvent   = errors.New("event name is reserved")
	ErrUnknownEvent    = errors.New("event has no icon")
	ErrNotRegistered   = errors.New("email is not registered")
	ErrRegistrationBad = errors.New("registration has no id")
)

// Backoff between stamp retries after a concurrent write to the same attendee.
const (
	stampBackoff    = 2 * time.Millisecond
	maxStampBackoff = 50 * time.Millisecond
)

// TimestampLayout matches JavaScript's Date.prototype.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Options holds the eligibility rules of the check-in flow.
type Options struct {
	InstitutionSuffix     string
	AliasTag              string
	StrictEventValidation bool
}

// Result is the response payload of a successful (or repeated) check-in.
type Result struct {
	Email            string `json:"email"`
	Event            string `json:"event"`
	Icon             string `json:"icon"`
	ID               string `json:"id"`
	Timestamp        string `json:"timestamp"`
	AlreadyCheckedIn bool   `json:"alreadyCheckedIn"`
}

// Publisher is told about every fresh check-in.
type Publisher interface {
	PublishCheckIn(ctx context.Context, r Result)
}

// Service implements the per-(attendee, event) check-in state machine:
// unregistered -> registered-not-checked-in -> checked-in.
type Service struct {
	repo   *Repository
	regs   *registrations.Repository
	icons  *icons.Repository
	opts   Options
	pub    Publisher
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a check-in service.
func NewService(repo *Repository, regs *registrations.Repository, iconRepo *icons.Repository, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, regs: regs, icons: iconRepo, opts: opts, now: time.Now, logger: logger}
}

// SetPublisher registers p for fresh check-ins. Repeats are not published.
func (s *Service) SetPublisher(p Publisher) { s.pub = p }

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CanonicalEmail normalizes email and strips the alias tag. It returns ErrChangeEmail when the
// address is neither institutional nor alias-tagged.
func (s *Service) CanonicalEmail(email string) (string, error) {
	email = utils.NormalizeEmail(email)
	if !utils.HasSuffix(email, s.opts.InstitutionSuffix) && !utils.HasAlias(email, s.opts.AliasTag) {
		return "", ErrChangeEmail
	}
	return utils.StripAlias(email, s.opts.AliasTag), nil
}

// CheckIn records the first check-in of email to event. A repeated check-in returns the original
// timestamp with AlreadyCheckedIn set and writes nothing.
func (s *Service) CheckIn(ctx context.Context, email, event string) (*Result, error) {
	email = utils.NormalizeEmail(email)
	event = strings.ToLower(strings.TrimSpace(event))
	res := &Result{Email: email, Event: event, ID: "null", Timestamp: "null"}

	canonical, err := s.CanonicalEmail(email)
	if err != nil {
		return nil, err
	}
	if event == "" {
		return nil, ErrEmptyEvent
	}
	if models.IsReservedEvent(event) {
		return nil, ErrReservedEvent
	}

	var (
		known bool
		seen  *docstore.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		icon, ok, err := s.icons.Lookup(gctx, event)
		if err != nil {
			if s.opts.StrictEventValidation {
				return err
			}
			s.logger.Warn("icon lookup failed", zap.Error(err))
			return nil
		}
		res.Icon, known = icon, ok
		return nil
	})
	g.Go(func() error {
		doc, err := s.repo.GetByEmail(gctx, canonical)
		seen = doc
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("check-in lookups: %w", err)
	}
	if s.opts.StrictEventValidation && !known {
		return nil, ErrUnknownEvent
	}

	for attempt := 1; ; attempt++ {
		if seen != nil {
			if rec := models.CheckInFromFields(seen.Fields); rec.CheckedInAt(event) != "" {
				res.ID = rec.ID
				res.Timestamp = rec.CheckedInAt(event)
				res.AlreadyCheckedIn = true
				return res, nil
			}
		}

		reg, err := s.registration(ctx, canonical)
		if err != nil {
			return nil, err
		}

		ts := s.now().UTC().Format(TimestampLayout)
		err = s.repo.Stamp(ctx, reg.ID, canonical, models.Stamp(reg.ID, canonical, reg.Name(), event, ts), seen)
		if err == nil {
			res.ID = reg.ID
			res.Timestamp = ts
			s.logger.Info("checked in", zap.String("id", reg.ID), zap.String("event", event))
			if s.pub != nil {
				s.pub.PublishCheckIn(ctx, *res)
			}
			return res, nil
		}
		if !errors.Is(err, docstore.ErrPreconditionFailed) {
			return nil, err
		}
		// Another request touched the record first, possibly for a different event.
		// Retry until the context ends; the re-read decides whether this event is done.
		if err := waitRetry(ctx, attempt); err != nil {
			return nil, fmt.Errorf("stamp check-in %s: %w", reg.ID, err)
		}
		if seen, err = s.repo.GetByEmail(ctx, canonical); err != nil {
			return nil, fmt.Errorf("re-read check-in: %w", err)
		}
	}
}

// waitRetry sleeps a jittered, growing delay or returns the context error.
func waitRetry(ctx context.Context, attempt int) error {
	d := min(time.Duration(attempt)*stampBackoff, maxStampBackoff)
	d = d/2 + rand.N(d/2+1)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) registration(ctx context.Context, email string) (*models.Registration, error) {
	doc, err := s.regs.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup registration: %w", err)
	}
	if doc == nil {
		return nil, ErrNotRegistered
	}
	reg, err := models.RegistrationFromFields(doc.Fields)
	if err != nil {
		return nil, ErrRegistrationBad
	}
	return reg, nil
}
