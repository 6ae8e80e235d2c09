package api

import (
	"net/http"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CardHandler handles card, task and calendar endpoints
type CardHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(services *service.Services, log zerolog.Logger) *CardHandler {
	return &CardHandler{
		services: services,
		log:      log.With().Str("handler", "card").Logger(),
	}
}

// Create handles POST /v1/cards
func (h *CardHandler) Create(c *gin.Context) {
	var req models.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	card, err := h.services.Card.Create(c.Request.Context(), currentProfile(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

// Get handles GET /v1/cards/:id
func (h *CardHandler) Get(c *gin.Context) {
	card, err := h.services.Card.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// Update handles PATCH /v1/cards/:id
func (h *CardHandler) Update(c *gin.Context) {
	var req models.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	card, err := h.services.Card.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// Delete handles DELETE /v1/cards/:id
func (h *CardHandler) Delete(c *gin.Context) {
	if err := h.services.Card.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Move handles POST /v1/cards/:id/move
func (h *CardHandler) Move(c *gin.Context) {
	var req models.MoveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	card, err := h.services.Card.Move(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// History handles GET /v1/cards/:id/history
func (h *CardHandler) History(c *gin.Context) {
	entries, err := h.services.Card.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// ListTasks handles GET /v1/cards/:id/tasks
func (h *CardHandler) ListTasks(c *gin.Context) {
	tasks, err := h.services.Task.ListByCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateTask handles POST /v1/cards/:id/tasks
func (h *CardHandler) CreateTask(c *gin.Context) {
	var req models.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.services.Task.Create(c.Request.Context(), currentProfile(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask handles PATCH /v1/tasks/:id
func (h *CardHandler) UpdateTask(c *gin.Context) {
	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.services.Task.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /v1/tasks/:id
func (h *CardHandler) DeleteTask(c *gin.Context) {
	if err := h.services.Task.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Calendar handles GET /v1/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *CardHandler) Calendar(c *gin.Context) {
	from, ok := h.dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := h.dateQuery(c, "to")
	if !ok {
		return
	}

	days, err := h.services.Task.Calendar(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// dateQuery parses an optional date parameter, answering 400 when malformed
func (h *CardHandler) dateQuery(c *gin.Context, name string) (*models.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a date in YYYY-MM-DD format"})
		return nil, false
	}
	return &d, true
}
