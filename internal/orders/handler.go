package orders

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SalmanNajah/devhost-2025/internal/middleware"
	"github.com/SalmanNajah/devhost-2025/pkg/response"
)

// Handler exposes order creation and verification over HTTP.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an orders handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the body for POST /orders.
type CreateRequest struct {
	EventID       string `json:"eventId"`
	TeamID        string `json:"teamId" binding:"required"`
	RedirectURL   string `json:"redirectUrl" binding:"required"`
	CustomerID    string `json:"customerId"`
	CustomerEmail string `json:"customerEmail"`
}

// Create handles POST /orders.
func (h *Handler) Create(c *gin.Context) {
	uid := c.MustGet(middleware.ContextUID).(string)
	email := c.MustGet(middleware.ContextEmail).(string)

	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "teamId and redirectUrl required")
		return
	}
	if body.CustomerEmail == "" {
		body.CustomerEmail = email
	}

	result, err := h.svc.CreateOrder(c.Request.Context(), uid, CreateOrderInput{
		EventID:       body.EventID,
		TeamID:        body.TeamID,
		RedirectURL:   body.RedirectURL,
		CustomerID:    body.CustomerID,
		CustomerEmail: body.CustomerEmail,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Verify handles GET /orders/verify?order_id=. The outcome is always a
// terminal SUCCESS or FAIL for the caller.
func (h *Handler) Verify(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		response.BadRequest(c, "missing order_id")
		return
	}
	response.OK(c, h.svc.VerifyOrder(c.Request.Context(), orderID))
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		response.NotFound(c, "user profile not found")
	case errors.Is(err, ErrProfileIncomplete):
		response.BadRequest(c, "profile must include name and phone")
	case errors.Is(err, ErrInvalidRedirectURL):
		response.BadRequest(c, "invalid redirectUrl")
	case errors.Is(err, ErrTeamNotFound):
		response.NotFound(c, "team not found")
	case errors.Is(err, ErrUnknownEvent):
		response.BadRequest(c, "invalid or missing event id")
	case errors.Is(err, ErrEventMismatch):
		response.BadRequest(c, "team does not belong to this event")
	case errors.Is(err, ErrSizeOutOfRange):
		response.BadRequest(c, "team size outside the payable range for this event")
	case errors.Is(err, ErrAlreadyPaid):
		response.Conflict(c, "registration is already paid")
	case errors.Is(err, ErrUpstream):
		response.Internal(c, "payment gateway error")
	default:
		h.logger.Error("create order failed", zap.Error(err))
		response.Internal(c, "server error")
	}
}
