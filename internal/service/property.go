package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/brickworks/listings/internal/fallback"
	"github.com/brickworks/listings/internal/imaging"
	"github.com/brickworks/listings/internal/media"
	"github.com/brickworks/listings/internal/model"
	"github.com/brickworks/listings/internal/repository"
	"github.com/brickworks/listings/internal/validation"
)

var (
	// ErrPersistenceFailed means neither the primary nor the fallback store
	// could take the write. There is no further recovery at this layer.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrNotAuthorized means the caller does not own the record and is not
	// an admin.
	ErrNotAuthorized = errors.New("caller may not modify this record")
)

// StoreKind tags which backing store actually persisted a write.
type StoreKind string

const (
	StorePrimary  StoreKind = "primary"
	StoreFallback StoreKind = "fallback"
)

// PropertyService is the persistence orchestrator for listings: it routes
// writes between the primary and fallback stores, compresses embedded images
// when the fallback blob would overflow, and migrates temporary media
// uploads into record-scoped locations after a primary create.
type PropertyService struct {
	propertyRepo    repository.PropertyRepository
	fallbackStore   *fallback.Store
	reorganizer     *media.Reorganizer
	compressMaxDim  int
	compressQuality int
}

func NewPropertyService(
	propertyRepo repository.PropertyRepository,
	fallbackStore *fallback.Store,
	reorganizer *media.Reorganizer,
	compressMaxDim int,
	compressQuality int,
) *PropertyService {
	return &PropertyService{
		propertyRepo:    propertyRepo,
		fallbackStore:   fallbackStore,
		reorganizer:     reorganizer,
		compressMaxDim:  compressMaxDim,
		compressQuality: compressQuality,
	}
}

// Create persists a new listing. The primary store is tried first; if it is
// unreachable the record goes to the local fallback under a temporary id and
// no error reaches the caller. After a successful primary create, media
// uploaded under a session placeholder is migrated to record-scoped storage
// and the record's references are rewritten in place.
//
// Fallback-created records keep their temporary media references: their id
// is not stable enough to scope permanent assets by.
func (s *PropertyService) Create(ctx context.Context, caller model.Caller, property *model.Property) (*model.Property, StoreKind, error) {
	if property.ID != "" {
		return nil, "", &validation.Error{Field: "id", Reason: "must be empty on create"}
	}
	if property.OwnerID == "" {
		property.OwnerID = caller.ID
	}
	if !caller.IsAdmin() && property.OwnerID != caller.ID {
		return nil, "", ErrNotAuthorized
	}
	if property.Status == "" {
		property.Status = model.PropertyStatusDraft
	}
	err := validation.ValidateProperty(property)
	if err != nil {
		return nil, "", err
	}

	id, err := s.propertyRepo.Create(property)
	if err == nil {
		property.ID = id
		s.reorganizeMedia(ctx, property)
		return property, StorePrimary, nil
	}
	if !errors.Is(err, repository.ErrStoreUnavailable) {
		return nil, "", err
	}

	slog.Warn("primary store unavailable, creating in fallback", "error", err)
	property.ID = model.TempIDPrefix + uuid.New().String()
	err = s.writeFallback(property, func() error { return s.fallbackStore.Append(property) })
	if err != nil {
		return nil, "", err
	}
	return property, StoreFallback, nil
}

// Read returns listings visible to the caller. A non-empty primary result is
// authoritative; only when the primary is empty or unreachable does the
// fallback collection answer. The two stores are never merged.
func (s *PropertyService) Read(ctx context.Context, caller model.Caller, filter repository.PropertyFilter) ([]*model.Property, error) {
	if !caller.IsAdmin() {
		filter.OwnerID = caller.ID
	}

	properties, err := s.propertyRepo.Find(filter)
	if err != nil && !errors.Is(err, repository.ErrStoreUnavailable) {
		return nil, err
	}
	if err == nil && len(properties) > 0 {
		return properties, nil
	}
	if err != nil {
		slog.Warn("primary store unavailable, reading fallback", "error", err)
	}

	stored, err := s.fallbackStore.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	matched := make([]*model.Property, 0, len(stored))
	for _, p := range stored {
		if filter.OwnerID != "" && p.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		matched = append(matched, p)
	}
	return matched, nil
}

// Update writes changed fields for an existing listing, primary first,
// fallback when the primary is unreachable. Fallback-only updates are not
// migrated back once the primary returns (documented limitation).
func (s *PropertyService) Update(ctx context.Context, caller model.Caller, property *model.Property) (*model.Property, StoreKind, error) {
	if property.ID == "" {
		return nil, "", &validation.Error{Field: "id", Reason: "required on update"}
	}
	if !caller.IsAdmin() && property.OwnerID != caller.ID {
		return nil, "", ErrNotAuthorized
	}
	err := validation.ValidateProperty(property)
	if err != nil {
		return nil, "", err
	}

	err = s.propertyRepo.Update(property)
	if err == nil {
		return property, StorePrimary, nil
	}
	if !errors.Is(err, repository.ErrStoreUnavailable) {
		return nil, "", err
	}

	slog.Warn("primary store unavailable, updating fallback", "error", err)
	err = s.writeFallback(property, func() error { return s.fallbackStore.Update(property) })
	if err != nil {
		return nil, "", err
	}
	return property, StoreFallback, nil
}

// Delete removes a listing by id, primary first, fallback when the primary
// is unreachable.
func (s *PropertyService) Delete(ctx context.Context, caller model.Caller, id string) error {
	if !caller.IsAdmin() {
		existing, err := s.propertyRepo.ByID(id)
		if err == nil && existing.OwnerID != caller.ID {
			return ErrNotAuthorized
		}
		if err != nil && !errors.Is(err, repository.ErrStoreUnavailable) && !errors.Is(err, repository.ErrPropertyNotFound) {
			return err
		}
	}

	err := s.propertyRepo.Delete(id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrStoreUnavailable) {
		return err
	}

	slog.Warn("primary store unavailable, deleting from fallback", "error", err)
	err = s.fallbackStore.Delete(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// Reorganize is the repair entry point for the media migration stage: it
// re-derives pending temporary references from the record's current fields
// and runs the migration again. Safe to invoke repeatedly; already-migrated
// assets no longer resolve and are skipped.
func (s *PropertyService) Reorganize(ctx context.Context, recordID string) error {
	property, err := s.propertyRepo.ByID(recordID)
	if err != nil {
		return err
	}
	if !property.HasPermanentID() {
		slog.Info("skipping media reorganization for fallback-created record", "id", recordID)
		return nil
	}

	mappings, err := s.reorganizer.Reorganize(ctx, property.ID, property.MediaRefs())
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}

	property.RewriteMediaRefs(media.AsMap(mappings))
	err = s.propertyRepo.Update(property)
	if err != nil {
		return fmt.Errorf("failed to persist rewritten media references: %w", err)
	}
	return nil
}

// reorganizeMedia runs the post-create migration stage. It never fails the
// create that triggered it: a crash or error here leaves a record with
// temporary-looking references, which Reorganize can repair later.
func (s *PropertyService) reorganizeMedia(ctx context.Context, property *model.Property) {
	mappings, err := s.reorganizer.Reorganize(ctx, property.ID, property.MediaRefs())
	if err != nil {
		slog.Error("media reorganization aborted", "id", property.ID, "error", err)
		return
	}
	if len(mappings) == 0 {
		return
	}

	property.RewriteMediaRefs(media.AsMap(mappings))
	err = s.propertyRepo.Update(property)
	if err != nil {
		slog.Error("failed to persist rewritten media references", "id", property.ID, "error", err)
	}
}

// writeFallback performs a fallback-store write, compressing embedded images
// and retrying once if the blob would exceed capacity. The incoming record
// is compressed along with the stored collection, since it is the one most
// likely to carry full-size embedded images. Still over after compression
// means the write genuinely cannot be taken.
func (s *PropertyService) writeFallback(property *model.Property, write func() error) error {
	err := write()
	if err == nil {
		return nil
	}
	if !errors.Is(err, fallback.ErrCapacityExceeded) {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	slog.Info("fallback store over capacity, compressing embedded images", "capacity_bytes", s.fallbackStore.Capacity())
	s.compressEmbedded(property)
	err = s.compressStoredImages()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	err = write()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// compressStoredImages routes every embedded image in the fallback
// collection through the compression engine and writes the result back.
func (s *PropertyService) compressStoredImages() error {
	properties, err := s.fallbackStore.Load()
	if err != nil {
		return err
	}
	for _, p := range properties {
		s.compressEmbedded(p)
	}
	return s.fallbackStore.Save(properties)
}

func (s *PropertyService) compressEmbedded(property *model.Property) {
	property.BannerImageURL = imaging.CompressEmbedded(property.BannerImageURL, s.compressMaxDim, s.compressQuality)
	property.FloorPlanURL = imaging.CompressEmbedded(property.FloorPlanURL, s.compressMaxDim, s.compressQuality)
	for i, g := range property.GalleryURLs {
		property.GalleryURLs[i] = imaging.CompressEmbedded(g, s.compressMaxDim, s.compressQuality)
	}
}
