package domain

import (
	"time"

	"github.com/google/uuid"
)

type Region struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CityID     uuid.UUID  `db:"city_id" json:"city_id"`
	Name       string     `db:"name" json:"name"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	PartnerIDs PartnerIDs `db:"-" json:"partner_ids"`
}

// RegionMapping links a canonical region to one partner's external id.
// ExternalCityID is the partner's id of the parent city.
type RegionMapping struct {
	RegionID       uuid.UUID `db:"region_id" json:"region_id"`
	Partner        Partner   `db:"partner" json:"partner"`
	ExternalID     string    `db:"external_id" json:"external_id"`
	ExternalCityID string    `db:"external_city_id" json:"external_city_id"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	SyncID         uuid.UUID `db:"sync_id" json:"sync_id"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RegionUpsert is one region row written during a sync together with its
// partner mapping.
type RegionUpsert struct {
	Region         Region
	ExternalID     string
	ExternalCityID string
}

// RegionKey identifies a partner's region. Partners may number regions per
// city, so the parent city id is part of the key.
func RegionKey(externalCityID, externalID string) string {
	return externalCityID + "\x1f" + externalID
}
