package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// contactService is the concrete implementation of ContactService
type contactService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

func newContactService(repos *repository.Repositories, log zerolog.Logger) *contactService {
	return &contactService{
		repos: repos,
		log:   log.With().Str("service", "contact").Logger(),
	}
}

// List returns contacts newest first, filtered by name, email or company
func (s *contactService) List(ctx context.Context, search string) ([]*models.Contact, error) {
	contacts, err := s.repos.Contact.List(ctx, search)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []*models.Contact{}
	}
	return contacts, nil
}

func (s *contactService) Get(ctx context.Context, id string) (*models.Contact, error) {
	contact, err := s.repos.Contact.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, ErrNotFound
	}
	return contact, nil
}

func (s *contactService) Create(ctx context.Context, actor *models.Profile, req *models.ContactRequest) (*models.Contact, error) {
	if err := checkInput(validation.ValidateContact(req)); err != nil {
		return nil, err
	}

	now := time.Now()
	contact := &models.Contact{
		ID:        uuid.New().String(),
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyContact(contact, req)

	if err := s.repos.Contact.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	s.log.Info().Str("contact_id", contact.ID).Msg("Contact created")
	return contact, nil
}

// Update replaces every editable field of a contact
func (s *contactService) Update(ctx context.Context, id string, req *models.ContactRequest) (*models.Contact, error) {
	if err := checkInput(validation.ValidateContact(req)); err != nil {
		return nil, err
	}
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyContact(contact, req)

	if err := s.repos.Contact.Update(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return contact, nil
}

// Delete removes a contact. Cards keep existing without it.
func (s *contactService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repos.Contact.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	s.log.Info().Str("contact_id", id).Msg("Contact deleted")
	return nil
}

func applyContact(c *models.Contact, req *models.ContactRequest) {
	c.Name = strings.TrimSpace(req.Name)
	c.Email = strings.TrimSpace(req.Email)
	c.Phone = strings.TrimSpace(req.Phone)
	c.Company = strings.TrimSpace(req.Company)
	c.Role = strings.TrimSpace(req.Role)
	c.Industry = strings.TrimSpace(req.Industry)
	c.CompanyURL = strings.TrimSpace(req.CompanyURL)
	c.Address = strings.TrimSpace(req.Address)
}
