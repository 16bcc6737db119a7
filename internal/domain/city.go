package domain

import (
	"time"

	"github.com/google/uuid"
)

type City struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	NameAr     *string    `db:"name_ar" json:"name_ar,omitempty"`
	NameEn     *string    `db:"name_en" json:"name_en,omitempty"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	PartnerIDs PartnerIDs `db:"-" json:"partner_ids"`
}

// CityMapping links a canonical city to one partner's external id.
type CityMapping struct {
	CityID     uuid.UUID `db:"city_id" json:"city_id"`
	Partner    Partner   `db:"partner" json:"partner"`
	ExternalID string    `db:"external_id" json:"external_id"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	SyncID     uuid.UUID `db:"sync_id" json:"sync_id"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
