package registrations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/internal/models"
	"github.com/PittChallenge/pittchallenge.com/pkg/request"
	"github.com/PittChallenge/pittchallenge.com/pkg/response"
	"github.com/PittChallenge/pittchallenge.com/pkg/utils"
)

// ChangeEmailRequest is the body for POST /changeEmail.
type ChangeEmailRequest struct {
	Email    *string `json:"email"`
	NewEmail *string `json:"newEmail"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc      *Service
	writeKey string
	logger   *zap.Logger
}

// NewHandler creates a registrations handler. writeKey guards register.
func NewHandler(svc *Service, writeKey string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, writeKey: writeKey, logger: logger}
}

// Register handles POST /addRegistrationEntry?key=. Stores the body under registrations_id[id]
// and registrations_email[email].
func (h *Handler) Register(c *gin.Context) {
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
	if !utils.MatchKey(c.Query("key"), h.writeKey) {
		response.Unauthorized(c)
		return
	}

	body, err := request.DecodeObject(raw)
	if err != nil {
		response.BadRequest(c, 4)
		return
	}
	if _, ok := models.IDString(body[models.FieldID]); !ok {
		response.BadRequest(c, 5)
		return
	}
	if email, _ := body[models.FieldEmail].(string); strings.TrimSpace(email) == "" {
		response.BadRequest(c, 6)
		return
	}

	reg, err := h.svc.Register(c.Request.Context(), body)
	if err != nil {
		h.logger.Error("register failed", zap.Error(err))
		response.Internal(c, 0)
		return
	}
	h.logger.Info("registration stored", zap.String("id", reg.ID))
	response.OK(c)
}

// ChangeEmail handles POST /changeEmail {email, newEmail}.
func (h *Handler) ChangeEmail(c *gin.Context) {
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
	var req ChangeEmailRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		response.BadRequest(c, 2)
		return
	}
	if req.Email == nil {
		response.BadRequest(c, 4)
		return
	}
	if req.NewEmail == nil {
		response.BadRequest(c, 5)
		return
	}

	_, err := h.svc.ChangeEmail(c.Request.Context(), *req.Email, *req.NewEmail)
	switch {
	case err == nil:
		response.OK(c)
	case errors.Is(err, ErrIneligibleNewEmail):
		response.BadRequest(c, 6)
	case errors.Is(err, ErrEmailTaken):
		response.Conflict(c, 7)
	case errors.Is(err, ErrEmailNotFound):
		response.NotFound(c, "Email not found")
	case errors.Is(err, ErrEmailWithoutID):
		h.logger.Error("change email: registration without id", zap.String("email", *req.Email))
		response.Internal(c, 1)
	case errors.Is(err, ErrCanonicalMissing):
		h.logger.Error("change email: id-indexed registration missing", zap.String("email", *req.Email))
		response.Internal(c, 3)
	default:
		h.logger.Error("change email failed", zap.Error(err))
		response.Internal(c, 6)
	}
}

// ConvertIDToEmail handles GET|POST /convertIDToEmail. Rebuilds registrations_email from registrations_id.
// Mount behind middleware.RequireKey.
func (h *Handler) ConvertIDToEmail(c *gin.Context) {
	if _, err := h.svc.ReindexByEmail(c.Request.Context()); err != nil {
		h.logger.Error("reindex by email failed", zap.Error(err))
		response.Internal(c, 0)
		return
	}
	response.OK(c)
}
