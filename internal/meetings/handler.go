package meetings

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amphitryon/backend/internal/assembler"
	"github.com/amphitryon/backend/internal/filter"
	"github.com/amphitryon/backend/internal/membership"
	"github.com/amphitryon/backend/internal/middleware"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/response"
)

// DatesFilter optionally restricts POST /getMyMeetings to a date window.
type DatesFilter struct {
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// Handler handles meeting HTTP endpoints. Every domain failure answers 406.
type Handler struct {
	engine    *membership.Engine
	filter    *filter.Engine
	repo      *Repository
	assembler *assembler.Assembler
	logger    *zap.Logger
}

// NewHandler creates a meeting handler.
func NewHandler(engine *membership.Engine, f *filter.Engine, repo *Repository, asm *assembler.Assembler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, filter: f, repo: repo, assembler: asm, logger: logger}
}

// Register mounts the meeting routes on an authenticated group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/meeting", h.Create)
	g.PATCH("/meeting", h.Update)
	g.GET("/meeting/:meetingID", h.GetByID)
	g.DELETE("/meeting/:meetingID", h.Delete)
	g.POST("/meeting/join/:meetingID", h.Join)
	g.POST("/leaveMeeting/:meetingID", h.Leave)
	g.GET("/meetings", h.List)
	g.POST("/meetings/filter", h.Filter)
	g.GET("/getCreatedMeetings", h.CreatedMeetings)
	g.POST("/getMyMeetings", h.MyMeetings)
}

// Create handles POST /meeting.
func (h *Handler) Create(c *gin.Context) {
	var draft models.Meeting
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.Reject(c, "no meeting created", err)
		return
	}
	resp, err := h.engine.Create(c.Request.Context(), middleware.CurrentUser(c), draft)
	if err != nil {
		response.Reject(c, "no meeting created", err)
		return
	}
	response.OK(c, resp)
}

// Update handles PATCH /meeting. Only whitelisted fields are applied.
func (h *Handler) Update(c *gin.Context) {
	var patch models.MeetingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Reject(c, "meeting not updated", err)
		return
	}
	resp, err := h.engine.Update(c.Request.Context(), patch)
	if err != nil {
		response.Reject(c, "meeting not updated", err)
		return
	}
	response.OK(c, resp)
}

// GetByID handles GET /meeting/:meetingID.
func (h *Handler) GetByID(c *gin.Context) {
	resp, err := h.engine.Get(c.Request.Context(), c.Param("meetingID"))
	if err != nil {
		response.Reject(c, "meeting not found", err)
		return
	}
	response.OK(c, resp)
}

// Delete handles DELETE /meeting/:meetingID.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.engine.Delete(c.Request.Context(), c.Param("meetingID")); err != nil {
		response.Reject(c, "meeting not deleted", err)
		return
	}
	response.NoContent(c)
}

// Join handles POST /meeting/join/:meetingID.
func (h *Handler) Join(c *gin.Context) {
	resp, err := h.engine.Join(c.Request.Context(), middleware.CurrentUser(c), c.Param("meetingID"))
	if err != nil {
		response.Reject(c, "meeting could not be joined", err)
		return
	}
	response.OK(c, resp)
}

// Leave handles POST /leaveMeeting/:meetingID.
func (h *Handler) Leave(c *gin.Context) {
	resp, err := h.engine.Leave(c.Request.Context(), middleware.CurrentUser(c), c.Param("meetingID"))
	if err != nil {
		response.Reject(c, "meeting could not be left", err)
		return
	}
	response.OK(c, resp)
}

// List handles GET /meetings.
func (h *Handler) List(c *gin.Context) {
	list, err := h.engine.All(c.Request.Context())
	if err != nil {
		response.Reject(c, "no meeting found", err)
		return
	}
	response.OK(c, list)
}

// Filter handles POST /meetings/filter.
func (h *Handler) Filter(c *gin.Context) {
	var req models.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Reject(c, "no meeting found", err)
		return
	}
	ctx := c.Request.Context()
	candidates, err := h.repo.List(ctx)
	if err != nil {
		response.Reject(c, "no meeting found", err)
		return
	}
	matches, err := h.filter.Filter(ctx, candidates, req)
	if err != nil {
		response.Reject(c, "no meeting found", err)
		return
	}
	list, err := h.assembler.AssembleAll(ctx, matches)
	if err != nil {
		response.Reject(c, "no meeting found", err)
		return
	}
	response.OK(c, list)
}

// CreatedMeetings handles GET /getCreatedMeetings.
func (h *Handler) CreatedMeetings(c *gin.Context) {
	list, err := h.engine.CreatedBy(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		response.Reject(c, "no meeting found", err)
		return
	}
	response.OK(c, list)
}

// MyMeetings handles POST /getMyMeetings. The body is optional.
func (h *Handler) MyMeetings(c *gin.Context) {
	var dates DatesFilter
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&dates); err != nil {
			response.Reject(c, "no meeting found", err)
			return
		}
	}
	list, err := h.engine.ParticipatingIn(c.Request.Context(), middleware.CurrentUser(c), dates.StartDate, dates.EndDate)
	if err != nil {
		response.Reject(c, "no meeting found", err)
		return
	}
	response.OK(c, list)
}
