// Package users handles profile capture. The profile is a read-only
// dependency for order creation: name and phone must be present before a
// payment request can be built.
package users

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SalmanNajah/devhost-2025/internal/middleware"
	"github.com/SalmanNajah/devhost-2025/internal/models"
	"github.com/SalmanNajah/devhost-2025/internal/store"
	"github.com/SalmanNajah/devhost-2025/pkg/response"
)

// Handler exposes profile endpoints.
type Handler struct {
	profiles store.Profiles
	logger   *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(profiles store.Profiles, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{profiles: profiles, logger: logger}
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	uid := c.MustGet(middleware.ContextUID).(string)
	profile, err := h.profiles.Get(c.Request.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(c, "profile not found")
		return
	}
	if err != nil {
		h.logger.Error("get profile failed", zap.Error(err), zap.String("uid", uid))
		response.Internal(c, "failed to load profile")
		return
	}
	response.OK(c, profile)
}

// UpdateRequest is the body for PUT /users/me.
type UpdateRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	College string `json:"college"`
	Branch  string `json:"branch"`
	Year    string `json:"year"`
}

// Update handles PUT /users/me, creating or replacing the caller's profile.
func (h *Handler) Update(c *gin.Context) {
	uid := c.MustGet(middleware.ContextUID).(string)
	email := c.MustGet(middleware.ContextEmail).(string)

	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name and phone required")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Phone = strings.TrimSpace(body.Phone)
	if body.Name == "" || body.Phone == "" {
		response.BadRequest(c, "name and phone required")
		return
	}

	profile := &models.Profile{
		UID:     uid,
		Email:   email,
		Name:    body.Name,
		Phone:   body.Phone,
		College: strings.TrimSpace(body.College),
		Branch:  strings.TrimSpace(body.Branch),
		Year:    strings.TrimSpace(body.Year),
	}
	if err := h.profiles.Upsert(c.Request.Context(), profile); err != nil {
		h.logger.Error("upsert profile failed", zap.Error(err), zap.String("uid", uid))
		response.Internal(c, "failed to save profile")
		return
	}
	response.OK(c, profile)
}
