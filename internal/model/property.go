package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	PropertyStatusDraft     = "draft"
	PropertyStatusPublished = "published"
	PropertyStatusArchived  = "archived"
)

// TempIDPrefix marks identifiers assigned locally when the primary store was
// unreachable. Records carrying one have never been assigned a permanent id.
const TempIDPrefix = "tmp-"

// MediaRole tags what a media asset is used for on a listing.
type MediaRole string

const (
	RoleBanner    MediaRole = "banner"
	RoleGallery   MediaRole = "gallery"
	RoleFloorPlan MediaRole = "floorplan"
)

type Property struct {
	ID             string      `db:"id"`
	OwnerID        string      `db:"owner_id"`
	Title          string      `db:"title"`
	Description    string      `db:"description"`
	Price          int64       `db:"price"` // minor currency units
	Location       string      `db:"location"`
	Status         string      `db:"status"`
	BannerImageURL string      `db:"banner_image_url"`
	FloorPlanURL   string      `db:"floor_plan_url"`
	GalleryURLs    GalleryURLs `db:"gallery_urls"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// GalleryURLs is an ordered list of gallery image URLs. Order is meaningful:
// the first entry doubles as the listing's fallback image. Stored as a JSON
// array in a single column.
type GalleryURLs []string

func (g GalleryURLs) Value() (driver.Value, error) {
	if len(g) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (g *GalleryURLs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*g = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), g)
	case []byte:
		return json.Unmarshal(v, g)
	default:
		return fmt.Errorf("cannot scan %T into GalleryURLs", src)
	}
}

// HasPermanentID reports whether the record has been assigned an identifier
// by the primary store (as opposed to a local fallback id, or none at all).
func (p *Property) HasPermanentID() bool {
	return p.ID != "" && !strings.HasPrefix(p.ID, TempIDPrefix)
}

// MediaRef is one media reference field value paired with its role.
type MediaRef struct {
	URL  string
	Role MediaRole
}

// MediaRefs returns every non-empty media reference on the record, in field
// order: banner, floor plan, then gallery entries in their stored order.
func (p *Property) MediaRefs() []MediaRef {
	refs := make([]MediaRef, 0, len(p.GalleryURLs)+2)
	if p.BannerImageURL != "" {
		refs = append(refs, MediaRef{URL: p.BannerImageURL, Role: RoleBanner})
	}
	if p.FloorPlanURL != "" {
		refs = append(refs, MediaRef{URL: p.FloorPlanURL, Role: RoleFloorPlan})
	}
	for _, u := range p.GalleryURLs {
		if u != "" {
			refs = append(refs, MediaRef{URL: u, Role: RoleGallery})
		}
	}
	return refs
}

// RewriteMediaRefs replaces every media reference whose current value appears
// as a key in mapping with the mapped value. References not present in the
// mapping are left untouched.
func (p *Property) RewriteMediaRefs(mapping map[string]string) {
	if u, ok := mapping[p.BannerImageURL]; ok {
		p.BannerImageURL = u
	}
	if u, ok := mapping[p.FloorPlanURL]; ok {
		p.FloorPlanURL = u
	}
	for i, g := range p.GalleryURLs {
		if u, ok := mapping[g]; ok {
			p.GalleryURLs[i] = u
		}
	}
}
