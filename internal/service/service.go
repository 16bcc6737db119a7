package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tajer-app/locations/internal/ai"
	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/queue/client"
	"github.com/tajer-app/locations/internal/repository"
)

type Services struct {
	Sync      Sync
	Locations Locations
	Resolver  Resolver
}

// PartnerCatalog tells which partners can be synced.
type PartnerCatalog interface {
	Supports(partner domain.Partner) bool
	Partners() []domain.Partner
}

// Subscriber delivers pub/sub messages, nil disables cross-process
// invalidation.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handle func(message string)) error
}

type Deps struct {
	Config    *config.Config
	Repos     *repository.Repositories
	Catalog   PartnerCatalog
	Enqueuer  client.Enqueuer
	Inspector client.Inspector
	Notifier  Subscriber
	Generator ai.Generator
}

func NewServices(deps Deps) *Services {
	syncService := newSyncService(
		deps.Repos.SyncProgress,
		deps.Repos.SyncLogs,
		deps.Catalog,
		deps.Enqueuer,
		deps.Inspector,
		deps.Config.Sync,
	)
	locations := newLocationsCache(
		deps.Repos.Cities,
		deps.Repos.Regions,
		syncService,
		deps.Notifier,
		deps.Config.Locations,
	)

	return &Services{
		Sync:      syncService,
		Locations: locations,
		Resolver:  newResolverService(locations, deps.Generator, deps.Config.AI.Models, deps.Config.Resolver),
	}
}

type TriggerSyncInput struct {
	Partner     domain.Partner
	Token       string
	TriggeredBy string
}

type Sync interface {
	Trigger(ctx context.Context, input TriggerSyncInput) (progress *domain.SyncProgress, joined bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*domain.SyncProgress, error)
	Cancel(ctx context.Context, id uuid.UUID, cancelledBy string) (*domain.SyncProgress, error)
	History(ctx context.Context, limit int) ([]domain.SyncProgress, error)
	Logs(ctx context.Context, limit int) ([]domain.SyncLogEntry, error)
}

type Locations interface {
	Init(ctx context.Context) error
	EnsureLoaded(ctx context.Context) error
	Cities() []domain.City
	Regions() []domain.Region
	RegionsByCityID(cityID uuid.UUID) []domain.Region
	GetRegionsByCity(partner domain.Partner, partnerCityID string) []domain.Region
	CityRegions(ctx context.Context, cityID uuid.UUID) ([]domain.Region, error)
	PartnerCityRegions(ctx context.Context, partner domain.Partner, partnerCityID string) ([]domain.Region, error)
	TriggerSync(ctx context.Context, partner domain.Partner, token, userID string) (uuid.UUID, bool, error)
	IsLoaded() bool
	IsLoading() bool
	Invalidate(ctx context.Context, partner domain.Partner) error
	Listen(ctx context.Context)
	Teardown()
}

type Resolver interface {
	Resolve(ctx context.Context, text string) (*domain.LocationResolution, error)
}
