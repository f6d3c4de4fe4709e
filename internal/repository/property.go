package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brickworks/listings/internal/model"
)

var (
	ErrPropertyNotFound = errors.New("property not found")

	// ErrStoreUnavailable means the database itself could not be reached,
	// as opposed to a query that ran and found nothing. Callers route to
	// the fallback store on this error and only on this error.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// PropertyFilter narrows Find and Count. Zero values match everything.
type PropertyFilter struct {
	OwnerID string
	Status  string
}

type PropertyRepository interface {
	Create(property *model.Property) (string, error)
	ByID(id string) (*model.Property, error)
	Find(filter PropertyFilter) ([]*model.Property, error)
	Count(filter PropertyFilter) (int, error)
	Update(property *model.Property) error
	Delete(id string) error
}

type propertyRepository struct {
	db *sqlx.DB
}

func NewPropertyRepository(db *sqlx.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

// Create inserts the property and returns its permanent id. The store owns
// id assignment: an empty incoming id gets a fresh one.
func (r *propertyRepository) Create(property *model.Property) (string, error) {
	if property.ID == "" {
		property.ID = uuid.New().String()
	}
	now := time.Now()
	if property.CreatedAt.IsZero() {
		property.CreatedAt = now
	}
	property.UpdatedAt = now

	query := `INSERT INTO properties (id, owner_id, title, description, price, location, status, banner_image_url, floor_plan_url, gallery_urls, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(query,
		property.ID,
		property.OwnerID,
		property.Title,
		property.Description,
		property.Price,
		property.Location,
		property.Status,
		property.BannerImageURL,
		property.FloorPlanURL,
		property.GalleryURLs,
		property.CreatedAt,
		property.UpdatedAt,
	)
	if err != nil {
		return "", storeErr(err)
	}

	return property.ID, nil
}

func (r *propertyRepository) ByID(id string) (*model.Property, error) {
	property := &model.Property{}
	query := `SELECT * FROM properties WHERE id = $1`

	err := r.db.Get(property, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrPropertyNotFound
	}

	return property, storeErr(err)
}

func (r *propertyRepository) Find(filter PropertyFilter) ([]*model.Property, error) {
	var properties []*model.Property
	query := `SELECT * FROM properties WHERE ($1 = '' OR owner_id = $1) AND ($2 = '' OR status = $2) ORDER BY created_at DESC`

	err := r.db.Select(&properties, query, filter.OwnerID, filter.Status)
	if err != nil {
		return nil, storeErr(err)
	}

	return properties, nil
}

func (r *propertyRepository) Count(filter PropertyFilter) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM properties WHERE ($1 = '' OR owner_id = $1) AND ($2 = '' OR status = $2)`

	err := r.db.Get(&n, query, filter.OwnerID, filter.Status)
	if err != nil {
		return 0, storeErr(err)
	}

	return n, nil
}

func (r *propertyRepository) Update(property *model.Property) error {
	property.UpdatedAt = time.Now()

	query := `UPDATE properties SET owner_id = $2, title = $3, description = $4, price = $5, location = $6, status = $7, banner_image_url = $8, floor_plan_url = $9, gallery_urls = $10, updated_at = $11 WHERE id = $1`

	result, err := r.db.Exec(query,
		property.ID,
		property.OwnerID,
		property.Title,
		property.Description,
		property.Price,
		property.Location,
		property.Status,
		property.BannerImageURL,
		property.FloorPlanURL,
		property.GalleryURLs,
		property.UpdatedAt,
	)
	if err != nil {
		return storeErr(err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrPropertyNotFound
	}

	return nil
}

func (r *propertyRepository) Delete(id string) error {
	query := `DELETE FROM properties WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return storeErr(err)
}

// storeErr maps connection-level failures to ErrStoreUnavailable so callers
// can tell "store down" apart from ordinary query errors.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
