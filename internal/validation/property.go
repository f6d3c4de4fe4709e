package validation

import (
	"fmt"
	"strings"

	"github.com/brickworks/listings/internal/imaging"
	"github.com/brickworks/listings/internal/model"
)

// Error reports a caller-supplied record that cannot be persisted. It names
// the offending field so the caller can fix the input; operations failing
// with it are never retried automatically.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateProperty checks the fields a property record must carry before it
// is handed to any store.
func ValidateProperty(property *model.Property) error {
	if strings.TrimSpace(property.OwnerID) == "" {
		return &Error{Field: "owner_id", Reason: "required"}
	}
	if strings.TrimSpace(property.Title) == "" {
		return &Error{Field: "title", Reason: "required"}
	}
	if len(property.Title) > 200 {
		return &Error{Field: "title", Reason: "too long (max 200 characters)"}
	}
	if property.Price < 0 {
		return &Error{Field: "price", Reason: "must not be negative"}
	}
	switch property.Status {
	case "", model.PropertyStatusDraft, model.PropertyStatusPublished, model.PropertyStatusArchived:
	default:
		return &Error{Field: "status", Reason: "unknown status " + property.Status}
	}

	if err := validateEmbedded("banner_image_url", property.BannerImageURL); err != nil {
		return err
	}
	if err := validateEmbedded("floor_plan_url", property.FloorPlanURL); err != nil {
		return err
	}
	for _, g := range property.GalleryURLs {
		if err := validateEmbedded("gallery_urls", g); err != nil {
			return err
		}
	}
	return nil
}

// validateEmbedded checks media reference values that carry image bytes
// inline. Plain URLs pass through untouched.
func validateEmbedded(field, value string) error {
	if !imaging.IsEmbedded(value) {
		return nil
	}
	_, data, err := imaging.DecodeEmbedded(value)
	if err != nil {
		return &Error{Field: field, Reason: err.Error()}
	}
	if err := ValidateImageBytes(data, EmbeddedImageConstraints); err != nil {
		return &Error{Field: field, Reason: err.Error()}
	}
	return nil
}

// ValidateLead checks a captured lead before persistence.
func ValidateLead(lead *model.Lead) error {
	if strings.TrimSpace(lead.PropertyID) == "" {
		return &Error{Field: "property_id", Reason: "required"}
	}
	if err := ValidateName(lead.Name); err != nil {
		return &Error{Field: "name", Reason: err.Error()}
	}
	if err := ValidateEmail(lead.Email); err != nil {
		return &Error{Field: "email", Reason: err.Error()}
	}
	return nil
}
