package domain

import (
	"time"

	"github.com/google/uuid"
)

type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusCancelled  SyncStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s SyncStatus) IsTerminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed || s == SyncStatusCancelled
}

// IsActive reports whether the run still counts as running for the
// concurrent-sync guard.
func (s SyncStatus) IsActive() bool {
	return s == SyncStatusPending || s == SyncStatusInProgress
}

// CanTransitionTo enforces forward-only status changes.
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	switch s {
	case SyncStatusPending:
		return next == SyncStatusInProgress || next.IsTerminal()
	case SyncStatusInProgress:
		return next.IsTerminal()
	default:
		return false
	}
}

type SyncType string

const SyncTypeCitiesRegions SyncType = "cities_regions"

// SyncProgress is the live, pollable state of one sync run.
type SyncProgress struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	TriggeredBy      string     `db:"triggered_by" json:"triggered_by"`
	Partner          Partner    `db:"partner" json:"partner"`
	SyncType         SyncType   `db:"sync_type" json:"sync_type"`
	Status           SyncStatus `db:"status" json:"status"`
	TotalCities      int        `db:"total_cities" json:"total_cities"`
	CompletedCities  int        `db:"completed_cities" json:"completed_cities"`
	TotalRegions     int        `db:"total_regions" json:"total_regions"`
	CompletedRegions int        `db:"completed_regions" json:"completed_regions"`
	CurrentCityName  string     `db:"current_city_name" json:"current_city_name"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ErrorMessage     *string    `db:"error_message" json:"error_message,omitempty"`
}

// Percent is the share of processed cities in [0,100].
func (p *SyncProgress) Percent() float64 {
	if p.Status == SyncStatusCompleted {
		return 100
	}
	if p.TotalCities == 0 {
		return 0
	}
	return float64(p.CompletedCities) * 100 / float64(p.TotalCities)
}

// IsStale reports whether an active run has not been touched for longer than
// staleAfter, e.g. because its worker died.
func (p *SyncProgress) IsStale(now time.Time, staleAfter time.Duration) bool {
	return p.Status.IsActive() && staleAfter > 0 && now.Sub(p.UpdatedAt) > staleAfter
}
