package checkins

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/pkg/request"
	"github.com/PittChallenge/pittchallenge.com/pkg/response"
)

// CheckInRequest is the body for POST /checkInToEvent.
type CheckInRequest struct {
	Email *string `json:"email"`
	Event *string `json:"event"`
}

// Handler handles check-in HTTP endpoints.
type Handler struct {
	svc    *Service
	suffix string
	logger *zap.Logger
}

// NewHandler creates a check-in handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, suffix: svc.opts.InstitutionSuffix, logger: logger}
}

// CheckIn handles POST /checkInToEvent {email, event}.
func (h *Handler) CheckIn(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		response.BadRequest(c, 1)
		return
	}
	raw, ok := request.ReadBody(c)
	if !ok {
		response.BadRequest(c, 2)
		return
	}
	if c.ContentType() != "application/json" {
		response.BadRequest(c, 3)
		return
	}
	var req CheckInRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		response.BadRequest(c, 2)
		return
	}
	if req.Email == nil {
		response.BadRequest(c, 4)
		return
	}
	if req.Event == nil {
		response.BadRequest(c, 5)
		return
	}

	res, err := h.svc.CheckIn(c.Request.Context(), *req.Email, *req.Event)
	switch {
	case err == nil:
		response.JSON(c, res)
	case errors.Is(err, ErrChangeEmail):
		response.Text(c, http.StatusOK, "CHANGE_EMAIL: change your email to a "+h.suffix+" email")
	case errors.Is(err, ErrEmptyEvent):
		response.BadRequest(c, 6)
	case errors.Is(err, ErrReservedEvent):
		response.BadRequest(c, 7)
	case errors.Is(err, ErrUnknownEvent):
		response.BadRequest(c, 8)
	case errors.Is(err, ErrNotRegistered):
		response.Text(c, http.StatusBadRequest, "NOT_REGISTERED: you are not registered")
	case errors.Is(err, ErrRegistrationBad):
		h.logger.Error("check-in: registration without id", zap.String("email", *req.Email))
		response.Internal(c, 2)
	default:
		h.logger.Error("check-in failed", zap.Error(err))
		response.Internal(c, 3)
	}
}
