package model

import "time"

// Lead is an inquiry left by a visitor on a listing.
type Lead struct {
	ID         string    `db:"id"`
	PropertyID string    `db:"property_id"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	Phone      string    `db:"phone"`
	Message    string    `db:"message"`
	CreatedAt  time.Time `db:"created_at"`
}
