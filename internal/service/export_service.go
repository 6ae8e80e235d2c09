package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/rs/zerolog"
)

const exportFlushEvery = 100

// cardCSVHeader is the column order of the cards CSV export
var cardCSVHeader = []string{
	"id", "stage_id", "contact_id", "title", "description", "value", "source",
	"company_name", "business_type", "position", "closed_at", "created_at",
}

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamResource streams every row of resource in format without buffering
// the whole result
func (s *exportService) StreamResource(ctx context.Context, w http.ResponseWriter, resource, format string) error {
	var row rowSource
	var header []string

	switch resource {
	case models.ResourceContacts:
		header = models.ContactCSVHeader
		row = func(emit func(interface{}, []string) error) error {
			return s.repos.Contact.StreamAll(ctx, func(c *models.Contact) error {
				return emit(c, contactRecord(c))
			})
		}
	case models.ResourceCards:
		header = cardCSVHeader
		row = func(emit func(interface{}, []string) error) error {
			return s.repos.Card.StreamAll(ctx, func(c *models.Card) error {
				return emit(c, cardRecord(c))
			})
		}
	default:
		return inputError("resource", fmt.Sprintf("unknown resource: %s", resource))
	}

	s.log.Info().Str("resource", resource).Str("format", format).Msg("Starting export")

	var (
		count int
		err   error
	)
	switch format {
	case "ndjson":
		count, err = s.streamNDJSON(w, resource, row)
	case "json":
		count, err = s.streamJSON(w, resource, row)
	case "csv":
		count, err = s.streamCSV(w, resource, header, row)
	default:
		return inputError("format", fmt.Sprintf("unsupported format: %s", format))
	}

	s.log.Info().Str("resource", resource).Int("count", count).Msg("Export completed")
	return err
}

type rowSource func(emit func(v interface{}, record []string) error) error

func (s *exportService) streamNDJSON(w http.ResponseWriter, resource string, rows rowSource) (int, error) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename="+resource+".ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := rows(func(v interface{}, _ []string) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		if count%exportFlushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	return count, err
}

func (s *exportService) streamJSON(w http.ResponseWriter, resource string, rows rowSource) (int, error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+resource+".json")

	flusher, _ := w.(http.Flusher)
	count := 0

	w.Write([]byte("["))
	err := rows(func(v interface{}, _ []string) error {
		if count > 0 {
			w.Write([]byte(","))
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		w.Write(data)
		count++

		if count%exportFlushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	w.Write([]byte("]"))
	return count, err
}

func (s *exportService) streamCSV(w http.ResponseWriter, resource string, header []string, rows rowSource) (int, error) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+resource+".csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return 0, err
	}
	count := 0
	err := rows(func(_ interface{}, record []string) error {
		if err := writer.Write(record); err != nil {
			return err
		}
		count++
		if count%exportFlushEvery == 0 {
			writer.Flush()
		}
		return nil
	})
	return count, err
}

// GetCount returns count for a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case models.ResourceContacts:
		return s.repos.Contact.Count(ctx)
	case models.ResourceCards:
		return s.repos.Card.Count(ctx)
	default:
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
}

func contactRecord(c *models.Contact) []string {
	return []string{
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.Company,
		c.Role,
		c.Industry,
		c.CompanyURL,
		c.Address,
		c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func cardRecord(c *models.Card) []string {
	closedAt := ""
	if c.ClosedAt != nil {
		closedAt = c.ClosedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		c.ID,
		c.StageID,
		c.ContactID,
		c.Title,
		c.Description,
		c.Value.StringFixed(2),
		c.Source,
		c.CompanyName,
		c.BusinessType,
		strconv.Itoa(c.Position),
		closedAt,
		c.CreatedAt.UTC().Format(time.RFC3339),
	}
}
