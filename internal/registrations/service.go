package registrations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
	"github.com/PittChallenge/pittchallenge.com/pkg/utils"
)

var (
	ErrEmailNotFound      = errors.New("email not found")
	ErrEmailWithoutID     = errors.New("email-indexed registration has no id")
	ErrCanonicalMissing   = errors.New("id-indexed registration missing")
	ErrEmailTaken         = errors.New("new email already registered to another attendee")
	ErrIneligibleNewEmail = errors.New("new email lacks the institutional suffix")
)

// Service implements the Registration Index operations.
type Service struct {
	repo   *Repository
	suffix string
	logger *zap.Logger
}

// NewService creates a registrations service. suffix is the institutional email suffix.
func NewService(repo *Repository, suffix string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, suffix: suffix, logger: logger}
}

// Register normalizes the email and stores the raw registration body under both index keys.
func (s *Service) Register(ctx context.Context, body map[string]any) (*models.Registration, error) {
	reg, err := models.RegistrationFromFields(body)
	if err != nil {
		return nil, err
	}
	reg.Email = utils.NormalizeEmail(reg.Email)
	if err := s.repo.Save(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// ChangeEmail moves the registration held by email to newEmail, appending email to originalEmail.
// The id-indexed copy is authoritative.
func (s *Service) ChangeEmail(ctx context.Context, email, newEmail string) (*models.Registration, error) {
	email = utils.NormalizeEmail(email)
	newEmail = utils.NormalizeEmail(newEmail)
	if !utils.HasSuffix(newEmail, s.suffix) {
		return nil, ErrIneligibleNewEmail
	}

	byEmail, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}
	if byEmail == nil {
		return nil, ErrEmailNotFound
	}
	id, ok := models.IDString(byEmail.Fields[models.FieldID])
	if !ok {
		return nil, ErrEmailWithoutID
	}
	byID, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup id %s: %w", id, err)
	}
	if byID == nil {
		return nil, ErrCanonicalMissing
	}
	reg, err := models.RegistrationFromFields(byID.Fields)
	if err != nil {
		return nil, ErrCanonicalMissing
	}
	if email == newEmail {
		return reg, nil
	}

	target, err := s.repo.GetByEmail(ctx, newEmail)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", newEmail, err)
	}
	if target != nil {
		if owner, _ := models.IDString(target.Fields[models.FieldID]); owner != reg.ID {
			return nil, ErrEmailTaken
		}
	}

	reg.Email = newEmail
	reg.OriginalEmail = append(reg.OriginalEmail, email)
	if err := s.repo.Relocate(ctx, reg, email, target); err != nil {
		if errors.Is(err, docstore.ErrPreconditionFailed) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("registration email changed", zap.String("id", reg.ID), zap.String("from", email), zap.String("to", newEmail))
	return reg, nil
}

// ReindexResult summarizes a rebuild of the email index.
type ReindexResult struct {
	Registrations int
	Emails        int
	Skipped       int
}

// ReindexByEmail rebuilds registrations_email from registrations_id. Registrations are ordered by
// EndDate and the most recent one wins when several share an email.
func (s *Service) ReindexByEmail(ctx context.Context) (ReindexResult, error) {
	docs, err := s.repo.ListByID(ctx)
	if err != nil {
		return ReindexResult{}, fmt.Errorf("list registrations: %w", err)
	}
	records := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.Fields)
	}
	byEmail, skipped := FoldByEmail(records)
	if err := s.repo.ReplaceEmailIndex(ctx, byEmail); err != nil {
		return ReindexResult{}, err
	}
	res := ReindexResult{Registrations: len(docs), Emails: len(byEmail), Skipped: skipped}
	s.logger.Info("email index rebuilt", zap.Int("registrations", res.Registrations), zap.Int("emails", res.Emails), zap.Int("skipped", res.Skipped))
	return res, nil
}

// FoldByEmail sorts records by EndDate (ascending, missing first) and keys them by normalized
// email, later records overwriting earlier ones. Records without an email are skipped.
func FoldByEmail(records []map[string]any) (map[string]map[string]any, int) {
	sorted := append([]map[string]any(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := endDateKey(sorted[i])
		b, bok := endDateKey(sorted[j])
		if !aok || !bok {
			return !aok && bok
		}
		return a < b
	})

	out := make(map[string]map[string]any, len(sorted))
	skipped := 0
	for _, rec := range sorted {
		raw, _ := rec[models.FieldEmail].(string)
		email := utils.NormalizeEmail(raw)
		if email == "" {
			skipped++
			continue
		}
		fields := make(map[string]any, len(rec))
		for k, v := range rec {
			fields[k] = v
		}
		fields[models.FieldEmail] = email
		out[email] = fields
	}
	return out, skipped
}

// endDateKey turns "2023-07-25 22:17:06" into 20230725221706. Missing or non-numeric dates report false.
func endDateKey(rec map[string]any) (uint64, bool) {
	v, ok := rec[models.FieldEndDate]
	if !ok || v == nil {
		return 0, false
	}
	s := strings.NewReplacer("-", "", ":", "", " ", "").Replace(fmt.Sprint(v))
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
