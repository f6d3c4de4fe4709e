package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/brickworks/listings/internal/model"
	"github.com/brickworks/listings/internal/repository"
	"github.com/brickworks/listings/internal/validation"
)

// LeadService captures visitor inquiries against listings. Leads live in
// the primary store only: they are append-only and low-volume, so there is
// no fallback collection for them.
type LeadService struct {
	leadRepo repository.LeadRepository
}

func NewLeadService(leadRepo repository.LeadRepository) *LeadService {
	return &LeadService{leadRepo: leadRepo}
}

func (s *LeadService) Capture(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	err := validation.ValidateLead(lead)
	if err != nil {
		return nil, err
	}

	id, err := s.leadRepo.Create(lead)
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		return nil, err
	}
	lead.ID = id
	return lead, nil
}

// ForProperty lists captured leads for one listing, owner or admin only.
func (s *LeadService) ForProperty(ctx context.Context, caller model.Caller, property *model.Property) ([]*model.Lead, error) {
	if !caller.IsAdmin() && property.OwnerID != caller.ID {
		return nil, ErrNotAuthorized
	}
	return s.leadRepo.ByProperty(property.ID)
}
