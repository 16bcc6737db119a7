package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncLogEntry is the write-once audit record of a finished sync run.
type SyncLogEntry struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ProgressID      uuid.UUID `db:"progress_id" json:"progress_id"`
	Partner         Partner   `db:"partner" json:"partner"`
	TriggeredBy     string    `db:"triggered_by" json:"triggered_by"`
	StartedAt       time.Time `db:"started_at" json:"started_at"`
	EndedAt         time.Time `db:"ended_at" json:"ended_at"`
	CitiesCount     int       `db:"cities_count" json:"cities_count"`
	RegionsCount    int       `db:"regions_count" json:"regions_count"`
	Success         bool      `db:"success" json:"success"`
	ErrorMessage    *string   `db:"error_message" json:"error_message,omitempty"`
	DurationSeconds float64   `db:"duration_seconds" json:"duration_seconds"`
}
