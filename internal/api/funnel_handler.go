package api

import (
	"net/http"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// FunnelHandler handles funnel, stage and board endpoints
type FunnelHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewFunnelHandler creates a new FunnelHandler
func NewFunnelHandler(services *service.Services, log zerolog.Logger) *FunnelHandler {
	return &FunnelHandler{
		services: services,
		log:      log.With().Str("handler", "funnel").Logger(),
	}
}

// List handles GET /v1/funnels
func (h *FunnelHandler) List(c *gin.Context) {
	funnels, err := h.services.Funnel.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"funnels": funnels})
}

// Get handles GET /v1/funnels/:id
func (h *FunnelHandler) Get(c *gin.Context) {
	funnel, err := h.services.Funnel.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, funnel)
}

// Create handles POST /v1/funnels
func (h *FunnelHandler) Create(c *gin.Context) {
	var req models.FunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	funnel, err := h.services.Funnel.Create(c.Request.Context(), currentProfile(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, funnel)
}

// Update handles PUT /v1/funnels/:id
func (h *FunnelHandler) Update(c *gin.Context) {
	var req models.FunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	funnel, err := h.services.Funnel.Update(c.Request.Context(), currentProfile(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, funnel)
}

// Delete handles DELETE /v1/funnels/:id
func (h *FunnelHandler) Delete(c *gin.Context) {
	if err := h.services.Funnel.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddStage handles POST /v1/funnels/:id/stages
func (h *FunnelHandler) AddStage(c *gin.Context) {
	var req models.StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	stage, err := h.services.Funnel.AddStage(c.Request.Context(), currentProfile(c), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}

// ReorderStages handles PUT /v1/funnels/:id/stages/order
func (h *FunnelHandler) ReorderStages(c *gin.Context) {
	var req models.ReorderStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	stages, err := h.services.Funnel.ReorderStage(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// RenameStage handles PATCH /v1/stages/:id
func (h *FunnelHandler) RenameStage(c *gin.Context) {
	var req models.StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	stage, err := h.services.Funnel.RenameStage(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

// DeleteStage handles DELETE /v1/stages/:id
func (h *FunnelHandler) DeleteStage(c *gin.Context) {
	if err := h.services.Funnel.DeleteStage(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Board handles GET /v1/funnels/:id/board. view=list returns a flat card list.
func (h *FunnelHandler) Board(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if c.Query("view") == "list" {
		cards, err := h.services.Funnel.BoardList(ctx, id)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cards": cards})
		return
	}

	board, err := h.services.Funnel.Board(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
