package locations

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/middleware"
	"github.com/amphitryon/backend/internal/models"
	"github.com/amphitryon/backend/pkg/response"
)

// CreateRequest is the body for POST /location.
type CreateRequest struct {
	Name         string               `json:"name" binding:"required"`
	Description  string               `json:"description"`
	NbPeople     int                  `json:"nbPeople"`
	Address      models.Address       `json:"address"`
	Tags         []models.Tag         `json:"tags"`
	OpeningHours []models.OpeningHour `json:"openingHours"`
}

// Handler handles location HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a location handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /location (hosts only). The location belongs to the current user.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := validateOpeningHours(req.OpeningHours); err != nil {
		response.Reject(c, "location not created", err)
		return
	}
	host := middleware.CurrentUser(c)
	loc := &models.Location{
		ID:           uuid.NewString(),
		HostID:       host.ID,
		Name:         req.Name,
		Description:  req.Description,
		NbPeople:     req.NbPeople,
		Address:      req.Address,
		Tags:         req.Tags,
		OpeningHours: req.OpeningHours,
	}
	if err := h.repo.Save(c.Request.Context(), loc); err != nil {
		h.logger.Error("save location", zap.String("host_id", host.ID), zap.Error(err))
		response.Internal(c, "failed to create location")
		return
	}
	response.Created(c, loc)
}

// GetByID handles GET /location/:id.
func (h *Handler) GetByID(c *gin.Context) {
	loc, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			response.NotFound(c, "location not found")
			return
		}
		response.Internal(c, "failed to load location")
		return
	}
	response.OK(c, loc)
}

// List handles GET /locations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list locations")
		return
	}
	response.OK(c, list)
}

// ListByHost handles GET /locations/host/:hostID.
func (h *Handler) ListByHost(c *gin.Context) {
	list, err := h.repo.ListByHost(c.Request.Context(), c.Param("hostID"))
	if err != nil {
		response.Internal(c, "failed to list locations")
		return
	}
	response.OK(c, list)
}

func validateOpeningHours(hours []models.OpeningHour) error {
	v := &apperr.ValidationError{}
	for i, oh := range hours {
		field := fmt.Sprintf("openingHours[%d]", i)
		if oh.Day < 0 || oh.Day > 6 {
			v.Add(field, "day must be between 0 and 6")
			continue
		}
		start, err1 := time.Parse("15:04", oh.StartTime)
		end, err2 := time.Parse("15:04", oh.EndTime)
		if err1 != nil || err2 != nil {
			v.Add(field, "times must be HH:MM")
			continue
		}
		if !end.After(start) {
			v.Add(field, "endTime must be after startTime")
		}
	}
	return v.OrNil()
}
