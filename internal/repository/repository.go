package repository

import (
	"context"
	"time"

	"github.com/tajer-app/locations/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Cities       Cities
	Regions      Regions
	SyncProgress SyncProgress
	SyncLogs     SyncLogs
}

func NewRepositories(conn *sqlx.DB) *Repositories {
	return &Repositories{
		Cities:       newCityRepository(conn),
		Regions:      newRegionRepository(conn),
		SyncProgress: newSyncProgressRepository(conn),
		SyncLogs:     newSyncLogRepository(conn),
	}
}

type Cities interface {
	Upsert(ctx context.Context, city *domain.City, partner domain.Partner, externalID string, syncID uuid.UUID) error
	GetOneByID(ctx context.Context, id uuid.UUID) (*domain.City, error)
	FindByName(ctx context.Context, name string) (*domain.City, error)
	ListActive(ctx context.Context) ([]domain.City, error)
	MappingsByPartner(ctx context.Context, partner domain.Partner) (map[string]uuid.UUID, error)
	DeactivateStale(ctx context.Context, partner domain.Partner, syncID uuid.UUID) (int64, error)
}

type Regions interface {
	UpsertBatch(ctx context.Context, partner domain.Partner, syncID uuid.UUID, rows []domain.RegionUpsert) (int, error)
	ListActive(ctx context.Context, limit, offset int) ([]domain.Region, error)
	ListByCity(ctx context.Context, cityID uuid.UUID) ([]domain.Region, error)
	ListByPartnerCity(ctx context.Context, partner domain.Partner, externalCityID string) ([]domain.Region, error)
	MappingsByPartner(ctx context.Context, partner domain.Partner) (map[string]uuid.UUID, error)
	DeactivateStale(ctx context.Context, partner domain.Partner, cityID uuid.UUID, syncID uuid.UUID) (int64, error)
}

type SyncProgress interface {
	Create(ctx context.Context, progress *domain.SyncProgress) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncProgress, error)
	FindActive(ctx context.Context, partner domain.Partner) (*domain.SyncProgress, error)
	List(ctx context.Context, limit int) ([]domain.SyncProgress, error)
	MarkInProgress(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	SetTotalCities(ctx context.Context, id uuid.UUID, total int) error
	AddTotalRegions(ctx context.Context, id uuid.UUID, cityName string, count int) error
	AddCompletedRegions(ctx context.Context, id uuid.UUID, count int) error
	AddCompletedCity(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID, status domain.SyncStatus, errorMessage *string, completedAt time.Time) error
}

type SyncLogs interface {
	Create(ctx context.Context, entry *domain.SyncLogEntry) error
	List(ctx context.Context, limit int) ([]domain.SyncLogEntry, error)
}

// partnerIDRow is the shape of a mapping row joined onto its entity.
type partnerIDRow struct {
	EntityID   uuid.UUID      `db:"entity_id"`
	Partner    domain.Partner `db:"partner"`
	ExternalID string         `db:"external_id"`
}

func groupPartnerIDs(rows []partnerIDRow) map[uuid.UUID]domain.PartnerIDs {
	out := make(map[uuid.UUID]domain.PartnerIDs, len(rows))
	for _, row := range rows {
		ids, ok := out[row.EntityID]
		if !ok {
			ids = make(domain.PartnerIDs)
			out[row.EntityID] = ids
		}
		ids[row.Partner] = row.ExternalID
	}
	return out
}

type externalIDRow struct {
	ExternalID string    `db:"external_id"`
	EntityID   uuid.UUID `db:"entity_id"`
}

func toExternalIDMap(rows []externalIDRow) map[string]uuid.UUID {
	out := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		out[row.ExternalID] = row.EntityID
	}
	return out
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
