package api

import (
	"net/http"
	"strconv"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /v1/exports?resource=...&format=...
// Streams the export directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if req.Resource != models.ResourceContacts && req.Resource != models.ResourceCards {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resource must be one of: contacts, cards"})
		return
	}
	if req.Format == "" {
		req.Format = "ndjson"
	}
	if req.Format != "ndjson" && req.Format != "json" && req.Format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: ndjson, json, csv"})
		return
	}

	ctx := c.Request.Context()
	if n, err := h.services.Export.GetCount(ctx, req.Resource); err == nil {
		c.Header("X-Total-Count", strconv.Itoa(n))
	} else {
		h.log.Warn().Err(err).Str("resource", req.Resource).Msg("Failed to count export rows")
	}

	if err := h.services.Export.StreamResource(ctx, c.Writer, req.Resource, req.Format); err != nil {
		// headers are already sent once streaming starts
		h.log.Error().Err(err).Str("resource", req.Resource).Msg("Export failed")
		return
	}
}
