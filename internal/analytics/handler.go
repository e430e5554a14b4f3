// Package analytics summarizes registrations and check-ins for the organizer dashboard.
package analytics

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/docstore"
	"github.com/PittChallenge/pittchallenge.com/pkg/response"
)

// WatcherCounter reports how many live dashboards are connected.
type WatcherCounter interface {
	Watchers(room string) int
}

// Summary is the JSON shape of GET /getStats.
type Summary struct {
	TotalRegistrations int            `json:"total_registrations"`
	TotalCheckedIn     int            `json:"total_checked_in"`
	TotalNoShow        int            `json:"total_no_show"`
	ConfirmationsSent  int            `json:"confirmations_sent"`
	ByEvent            map[string]int `json:"by_event"`
	LiveWatchers       int            `json:"live_watchers"`
}

// Handler handles GET /getStats.
type Handler struct {
	store  docstore.Store
	live   WatcherCounter
	logger *zap.Logger
}

// NewHandler creates an analytics handler. live may be nil.
func NewHandler(store docstore.Store, live WatcherCounter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, live: live, logger: logger}
}

// Summarize counts registrations and check-ins from the id-indexed collections.
func Summarize(ctx context.Context, store docstore.Store) (*Summary, error) {
	var regs, checks []*docstore.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		regs, err = store.List(gctx, models.CollectionRegistrationsByID)
		return err
	})
	g.Go(func() (err error) {
		checks, err = store.List(gctx, models.CollectionCheckInsByID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}

	sum := &Summary{TotalRegistrations: len(regs), ByEvent: map[string]int{}}
	for _, d := range checks {
		rec := models.CheckInFromFields(d.Fields)
		if len(rec.Events) > 0 {
			sum.TotalCheckedIn++
		}
		for event := range rec.Events {
			sum.ByEvent[event]++
		}
		if rec.ConfirmationSentAt != "" {
			sum.ConfirmationsSent++
		}
	}
	sum.TotalNoShow = sum.TotalRegistrations - sum.TotalCheckedIn
	if sum.TotalNoShow < 0 {
		sum.TotalNoShow = 0
	}
	return sum, nil
}

// GetStats handles GET /getStats. Mount behind middleware.RequireKey.
func (h *Handler) GetStats(c *gin.Context) {
	sum, err := Summarize(c.Request.Context(), h.store)
	if err != nil {
		h.logger.Error("stats failed", zap.Error(err))
		response.Internal(c, 0)
		return
	}
	if h.live != nil {
		sum.LiveWatchers = h.live.Watchers(c.Query("event"))
	}
	response.JSON(c, sum)
}
