package api

import (
	"net/http"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContactHandler handles contact endpoints
type ContactHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(services *service.Services, log zerolog.Logger) *ContactHandler {
	return &ContactHandler{
		services: services,
		log:      log.With().Str("handler", "contact").Logger(),
	}
}

// List handles GET /v1/contacts?q=...
func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.services.Contact.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// Get handles GET /v1/contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	contact, err := h.services.Contact.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

// Create handles POST /v1/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contact, err := h.services.Contact.Create(c.Request.Context(), currentProfile(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// Update handles PUT /v1/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	contact, err := h.services.Contact.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

// Delete handles DELETE /v1/contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	if err := h.services.Contact.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
