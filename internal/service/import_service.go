package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/funnel-crm-api/internal/config"
	"github.com/funnel-crm-api/internal/metrics"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos      *repository.Repositories
	jobService JobService
	metrics    *metrics.Metrics
	cfg        *config.Config
	log        zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, jobService JobService, m *metrics.Metrics, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos:      repos,
		jobService: jobService,
		metrics:    m,
		cfg:        cfg,
		log:        log.With().Str("service", "import").Logger(),
	}
}

// CreateImportJob creates a new import job. A repeated idempotency key
// returns the job created first.
func (s *importService) CreateImportJob(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error) {
	if req.Resource != models.ResourceContacts {
		return nil, inputError("resource", fmt.Sprintf("unsupported import resource: %s", req.Resource))
	}

	job := &models.Job{
		ID:             uuid.New().String(),
		Type:           models.JobTypeImport,
		Resource:       req.Resource,
		Status:         models.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		FilePath:       filePath,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      time.Now(),
	}

	if err := s.repos.Job.Create(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicate) && req.IdempotencyKey != "" {
			existing, getErr := s.repos.Job.GetByIdempotencyKey(ctx, req.IdempotencyKey)
			if getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("resource", job.Resource).
		Str("file", filePath).
		Msg("Import job created")

	return job, nil
}

// ProcessImport processes an import job
func (s *importService) ProcessImport(ctx context.Context, job *models.Job) error {
	startTime := time.Now()
	now := startTime
	job.Status = models.JobStatusProcessing
	job.StartedAt = &now
	s.repos.Job.Update(ctx, job)

	s.log.Info().
		Str("job_id", job.ID).
		Str("resource", job.Resource).
		Msg("Starting import processing")

	var err error
	switch job.Resource {
	case models.ResourceContacts:
		err = s.processContactsCSV(ctx, job)
	default:
		err = fmt.Errorf("unknown resource type: %s", job.Resource)
	}

	duration := time.Since(startTime)
	job.DurationMs = duration.Milliseconds()
	if job.ProcessedCount > 0 && duration.Seconds() > 0 {
		job.RowsPerSec = float64(job.ProcessedCount) / duration.Seconds()
	}

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	var errorRate float64
	if job.TotalRecords > 0 {
		errorRate = float64(job.FailedCount) / float64(job.TotalRecords) * 100
	}

	if err != nil {
		job.Status = models.JobStatusFailed
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Import failed")
	} else {
		job.Status = models.JobStatusCompleted
		s.log.Info().
			Str("job_id", job.ID).
			Int("total", job.TotalRecords).
			Int("successful", job.SuccessfulCount).
			Int("failed", job.FailedCount).
			Float64("error_rate_pct", errorRate).
			Int64("duration_ms", job.DurationMs).
			Float64("rows_per_sec", job.RowsPerSec).
			Msg("Import completed")
	}

	s.repos.Job.Update(ctx, job)
	s.metrics.ImportFinished(string(job.Status), job.SuccessfulCount)

	if job.FilePath != "" {
		if rmErr := os.Remove(job.FilePath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.Warn().Err(rmErr).Str("file", job.FilePath).Msg("Failed to remove upload")
		}
	}

	return err
}

// processContactsCSV reads a contacts CSV whose headers may use any of the
// accepted aliases. Rows without a name or with invalid fields become job
// errors; valid rows are inserted in batches with fresh ids.
func (s *importService) processContactsCSV(ctx context.Context, job *models.Job) error {
	file, err := os.Open(job.FilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	batchSize := s.cfg.Import.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	headerMap := contactHeaderMap(header)
	if _, ok := headerMap["name"]; !ok {
		return fmt.Errorf("missing name column in header")
	}

	var batch []*models.Contact
	var validationErrors []models.ValidationError
	lineNum := 1

	flush := func() {
		inserted, err := s.repos.Contact.BatchInsert(ctx, batch)
		if err != nil {
			s.log.Error().Err(err).Int("batch_size", len(batch)).Msg("Batch insert failed")
			job.FailedCount += len(batch)
		} else {
			job.SuccessfulCount += inserted
		}
		job.ProcessedCount += len(batch)
		batch = batch[:0]
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				lineNum = perr.Line
			}
			job.TotalRecords++
			job.FailedCount++
			job.ProcessedCount++
			validationErrors = append(validationErrors, models.ValidationError{
				Line:    lineNum,
				Field:   "csv",
				Message: fmt.Sprintf("malformed row: %v", err),
			})
			continue
		}
		// the reader skips empty lines, so take the line from the record
		lineNum, _ = reader.FieldPos(0)
		if isBlankRecord(record) {
			continue
		}
		job.TotalRecords++

		if lineNum%10000 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		row := &models.ContactCSV{
			Name:       getField(record, headerMap, "name"),
			Email:      getField(record, headerMap, "email"),
			Phone:      getField(record, headerMap, "phone"),
			Company:    getField(record, headerMap, "company"),
			Role:       getField(record, headerMap, "role"),
			Industry:   getField(record, headerMap, "industry"),
			CompanyURL: getField(record, headerMap, "company_url"),
			Address:    getField(record, headerMap, "address"),
		}

		errs := validation.ValidateContactRow(row)
		if len(errs) > 0 {
			job.FailedCount++
			job.ProcessedCount++
			for _, e := range errs {
				validationErrors = append(validationErrors, models.ValidationError{
					Line:    lineNum,
					Field:   e.Field,
					Message: e.Message,
					Value:   e.Value,
				})
			}
			if len(validationErrors) >= errorFlushThreshold {
				s.flushValidationErrors(ctx, job.ID, &validationErrors)
			}
			continue
		}

		batch = append(batch, convertCSVToContact(row, job.CreatedBy))

		if len(batch) >= batchSize {
			flush()
			s.log.Debug().
				Str("job_id", job.ID).
				Int("processed", job.ProcessedCount).
				Msg("Batch processed")
		}
	}

	if len(batch) > 0 {
		flush()
	}

	s.flushValidationErrors(ctx, job.ID, &validationErrors)
	return nil
}

// flushValidationErrors writes accumulated errors to the database and resets the slice
const errorFlushThreshold = 1000

func (s *importService) flushValidationErrors(ctx context.Context, jobID string, errs *[]models.ValidationError) {
	if len(*errs) == 0 {
		return
	}
	if err := s.repos.Job.AddErrors(ctx, jobID, *errs); err != nil {
		s.log.Error().Err(err).Int("count", len(*errs)).Msg("Failed to flush validation errors")
	}
	*errs = (*errs)[:0]
}

// contactHeaderMap maps canonical field names to column indexes. The first
// column matching a field wins.
func contactHeaderMap(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		field, ok := models.ContactHeaderAliases[key]
		if !ok {
			continue
		}
		if _, seen := m[field]; !seen {
			m[field] = i
		}
	}
	return m
}

func getField(record []string, headerMap map[string]int, field string) string {
	if idx, ok := headerMap[field]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func convertCSVToContact(row *models.ContactCSV, createdBy string) *models.Contact {
	now := time.Now()
	return &models.Contact{
		ID:         uuid.New().String(),
		Name:       row.Name,
		Email:      row.Email,
		Phone:      row.Phone,
		Company:    row.Company,
		Role:       row.Role,
		Industry:   row.Industry,
		CompanyURL: row.CompanyURL,
		Address:    row.Address,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
