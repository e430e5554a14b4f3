package emaillogs

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/pkg/response"
)

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /getEmailLogs?id=. Returns confirmation delivery attempts, newest first.
// Mount behind middleware.RequireKey.
func (h *Handler) List(c *gin.Context) {
	logs, err := h.repo.ListByAttendee(c.Request.Context(), c.Query("id"))
	if err != nil {
		h.logger.Error("list email logs", zap.Error(err))
		response.Internal(c, 0)
		return
	}
	response.JSON(c, logs)
}
