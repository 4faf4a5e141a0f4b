package teams

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SalmanNajah/devhost-2025/internal/middleware"
	"github.com/SalmanNajah/devhost-2025/pkg/lock"
	"github.com/SalmanNajah/devhost-2025/pkg/response"
)

// Handler exposes the team lifecycle over HTTP.
type Handler struct {
	svc    *Service
	probe  *http.Client
	logger *zap.Logger
}

// NewHandler creates a teams handler. The probe client is used for drive-link
// accessibility checks and never follows redirects, since a redirect to a
// login page means the link is not public.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc: svc,
		probe: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownEvent):
		response.BadRequest(c, "invalid or missing event id")
	case errors.Is(err, ErrEventMismatch):
		response.BadRequest(c, "team does not belong to this event")
	case errors.Is(err, ErrProfileNotFound):
		response.NotFound(c, "user profile not found")
	case errors.Is(err, ErrProfileIncomplete):
		response.BadRequest(c, "complete your profile before managing teams")
	case errors.Is(err, ErrAlreadyInTeam):
		response.Conflict(c, "you are already part of a team for this event")
	case errors.Is(err, ErrTeamNotFound):
		response.NotFound(c, "team not found")
	case errors.Is(err, ErrTeamFull):
		response.Conflict(c, "team is already full")
	case errors.Is(err, ErrTeamLocked):
		response.Conflict(c, "team is finalized or already registered")
	case errors.Is(err, ErrNotLeader):
		response.Forbidden(c, "only the team leader can do this")
	case errors.Is(err, ErrLeaderCannotLeave):
		response.Forbidden(c, "the leader cannot leave the team; disband it instead")
	case errors.Is(err, ErrNotMember):
		response.BadRequest(c, "member not found in team")
	case errors.Is(err, ErrTeamNotEmpty):
		response.Conflict(c, "remove all members before deleting the team")
	case errors.Is(err, ErrSizeOutOfRange):
		response.BadRequest(c, "team size is outside the allowed range for this event")
	case errors.Is(err, ErrDriveLinkRequired):
		response.BadRequest(c, "upload a drive link before finalizing")
	case errors.Is(err, lock.ErrNotAcquired):
		response.Conflict(c, "team is being updated, try again")
	default:
		h.logger.Error("team operation failed", zap.Error(err))
		response.Internal(c, "server error")
	}
}

// CreateRequest is the body for POST /events/:eventid/teams.
type CreateRequest struct {
	TeamName string `json:"teamName"`
}

// Create handles POST /events/:eventid/teams.
func (h *Handler) Create(c *gin.Context) {
	uid := c.MustGet(middleware.ContextUID).(string)
	email := c.MustGet(middleware.ContextEmail).(string)
	var body CreateRequest
	_ = c.ShouldBindJSON(&body) // teamName is optional

	team, err := h.svc.Create(c.Request.Context(), uid, email, c.Param("eventid"), body.TeamName)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, team)
}

// JoinRequest is the body for POST /events/:eventid/teams/join.
type JoinRequest struct {
	LeaderEmail string `json:"leaderEmail" binding:"required,email"`
}

// Join handles POST /events/:eventid/teams/join.
func (h *Handler) Join(c *gin.Context) {
	uid := c.MustGet(middleware.ContextUID).(string)
	email := c.MustGet(middleware.ContextEmail).(string)
	var body JoinRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "leaderEmail required")
		return
	}
	team, err := h.svc.Join(c.Request.Context(), uid, email, c.Param("eventid"), body.LeaderEmail)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, team)
}

// Leave handles POST /events/:eventid/teams/leave.
func (h *Handler) Leave(c *gin.Context) {
	email := c.MustGet(middleware.ContextEmail).(string)
	team, err := h.svc.Leave(c.Request.Context(), email, c.Param("eventid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"members": team.Members})
}

// RemoveRequest is the body for POST /events/:eventid/teams/:teamid/remove.
type RemoveRequest struct {
	MemberEmail string `json:"memberEmail" binding:"required,email"`
}

// Remove handles POST /events/:eventid/teams/:teamid/remove.
func (h *Handler) Remove(c *gin.Context) {
	email := c.MustGet(middleware.ContextEmail).(string)
	var body RemoveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "memberEmail required")
		return
	}
	team, err := h.svc.Remove(c.Request.Context(), email, c.Param("eventid"), c.Param("teamid"), body.MemberEmail)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"members": team.Members})
}

// Finalize handles POST /events/:eventid/teams/:teamid/finalize.
func (h *Handler) Finalize(c *gin.Context) {
	email := c.MustGet(middleware.ContextEmail).(string)
	team, err := h.svc.Finalize(c.Request.Context(), email, c.Param("eventid"), c.Param("teamid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, team)
}

// DriveRequest is the body for PUT /events/:eventid/teams/:teamid/drive.
type DriveRequest struct {
	DriveLink string `json:"driveLink" binding:"required"`
}

// SetDrive handles PUT /events/:eventid/teams/:teamid/drive.
func (h *Handler) SetDrive(c *gin.Context) {
	email := c.MustGet(middleware.ContextEmail).(string)
	var body DriveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "driveLink required")
		return
	}
	team, err := h.svc.SetDriveLink(c.Request.Context(), email, c.Param("eventid"), c.Param("teamid"), body.DriveLink)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, team)
}

// Delete handles DELETE /events/:eventid/teams/:teamid.
func (h *Handler) Delete(c *gin.Context) {
	email := c.MustGet(middleware.ContextEmail).(string)
	if err := h.svc.Delete(c.Request.Context(), email, c.Param("eventid"), c.Param("teamid")); err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// MyTeam handles GET /events/:eventid/teams/me.
func (h *Handler) MyTeam(c *gin.Context) {
	email := c.MustGet(middleware.ContextEmail).(string)
	team, err := h.svc.MyTeam(c.Request.Context(), email, c.Param("eventid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"team": team})
}

// CheckDriveRequest is the body for POST /teams/checkdrivelink.
type CheckDriveRequest struct {
	DriveLink string `json:"driveLink" binding:"required"`
}

// CheckDriveLink handles POST /teams/checkdrivelink. Probes the link with a
// HEAD request; a non-200 (including redirects to a login page) means the
// link is not publicly accessible.
func (h *Handler) CheckDriveLink(c *gin.Context) {
	var body CheckDriveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "driveLink required")
		return
	}
	link := strings.TrimSpace(body.DriveLink)
	if !strings.Contains(link, "drive.google.com") {
		response.BadRequest(c, "invalid Google Drive link")
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodHead, link, nil)
	if err != nil {
		response.BadRequest(c, "invalid Google Drive link")
		return
	}
	resp, err := h.probe.Do(req)
	if err != nil {
		response.OK(c, gin.H{"accessible": false, "message": "drive link could not be reached"})
		return
	}
	defer resp.Body.Close()

	accessible := resp.StatusCode == http.StatusOK
	message := "drive link is publicly accessible"
	if !accessible {
		message = "drive link is not publicly accessible"
	}
	response.OK(c, gin.H{
		"status":     resp.StatusCode,
		"accessible": accessible,
		"message":    message,
	})
}
