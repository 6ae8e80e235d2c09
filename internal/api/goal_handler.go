package api

import (
	"net/http"
	"strconv"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GoalHandler handles monthly goals and the dashboard
type GoalHandler struct {
	services *service.Services
	log      zerolog.Logger
}

func NewGoalHandler(services *service.Services, log zerolog.Logger) *GoalHandler {
	return &GoalHandler{
		services: services,
		log:      log.With().Str("handler", "goal").Logger(),
	}
}

// List handles GET /v1/goals
func (h *GoalHandler) List(c *gin.Context) {
	goals, err := h.services.Goal.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// Upsert handles PUT /v1/goals
func (h *GoalHandler) Upsert(c *gin.Context) {
	var req models.GoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	goal, err := h.services.Goal.Upsert(c.Request.Context(), currentProfile(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// Delete handles DELETE /v1/goals/:id
func (h *GoalHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	if err := h.services.Goal.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard handles GET /v1/dashboard
func (h *GoalHandler) Dashboard(c *gin.Context) {
	d, err := h.services.Dashboard.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
