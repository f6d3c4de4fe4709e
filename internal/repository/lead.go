package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brickworks/listings/internal/model"
)

var (
	ErrLeadNotFound = errors.New("lead not found")
)

type LeadRepository interface {
	Create(lead *model.Lead) (string, error)
	ByID(id string) (*model.Lead, error)
	ByProperty(propertyID string) ([]*model.Lead, error)
	Delete(id string) error
}

type leadRepository struct {
	db *sqlx.DB
}

func NewLeadRepository(db *sqlx.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(lead *model.Lead) (string, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}

	query := `INSERT INTO leads (id, property_id, name, email, phone, message, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query, lead.ID, lead.PropertyID, lead.Name, lead.Email, lead.Phone, lead.Message, lead.CreatedAt)
	if err != nil {
		return "", storeErr(err)
	}

	return lead.ID, nil
}

func (r *leadRepository) ByID(id string) (*model.Lead, error) {
	lead := &model.Lead{}
	query := `SELECT * FROM leads WHERE id = $1`

	err := r.db.Get(lead, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrLeadNotFound
	}

	return lead, storeErr(err)
}

func (r *leadRepository) ByProperty(propertyID string) ([]*model.Lead, error) {
	var leads []*model.Lead
	query := `SELECT * FROM leads WHERE property_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&leads, query, propertyID)
	if err != nil {
		return nil, storeErr(err)
	}

	return leads, nil
}

func (r *leadRepository) Delete(id string) error {
	query := `DELETE FROM leads WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return storeErr(err)
}
