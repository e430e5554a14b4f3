package confirmations

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/pkg/response"
)

// Handler handles GET|POST /sendCheckinEmail. Mount behind middleware.RequireKey.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a confirmation handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// SendCheckinEmail delivers every due confirmation and answers "OK".
func (h *Handler) SendCheckinEmail(c *gin.Context) {
	sum, err := h.svc.SendAll(c.Request.Context())
	if err != nil {
		h.logger.Error("send confirmations failed", zap.Int("due", sum.Due), zap.Int("sent", sum.Sent), zap.Error(err))
		response.Internal(c, 1)
		return
	}
	response.OK(c)
}
