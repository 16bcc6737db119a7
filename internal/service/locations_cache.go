package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/cache"
	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/repository"
	"github.com/tajer-app/locations/pkg/logger"
)

// locationsCache keeps every active city and region in memory for request
// time lookups.
type locationsCache struct {
	cityRepository   repository.Cities
	regionRepository repository.Regions
	syncService      Sync
	subscriber       Subscriber
	pageSize         int
	pageDelay        time.Duration

	mu      sync.RWMutex
	cities  []domain.City
	regions []domain.Region

	loadMu  sync.Mutex
	loaded  atomic.Bool
	loading atomic.Bool

	listenMu     sync.Mutex
	stopListener context.CancelFunc
}

func newLocationsCache(
	cityRepository repository.Cities,
	regionRepository repository.Regions,
	syncService Sync,
	subscriber Subscriber,
	cfg config.LocationsConfig,
) *locationsCache {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	return &locationsCache{
		cityRepository:   cityRepository,
		regionRepository: regionRepository,
		syncService:      syncService,
		subscriber:       subscriber,
		pageSize:         pageSize,
		pageDelay:        cfg.PageDelay,
	}
}

// Init loads all active cities with one query and all active regions page by
// page until a short page comes back. The previous data stays visible until
// the new load completes.
func (c *locationsCache) Init(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.loading.Store(true)
	defer c.loading.Store(false)

	cities, err := c.cityRepository.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load cities failed: %w", err)
	}

	var regions []domain.Region
	for offset, page := 0, 0; ; offset += c.pageSize {
		if page > 0 && c.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}

		batch, err := c.regionRepository.ListActive(ctx, c.pageSize, offset)
		if err != nil {
			return fmt.Errorf("load regions page %d failed: %w", page, err)
		}
		regions = append(regions, batch...)
		page++

		if len(batch) < c.pageSize {
			break
		}
	}

	c.mu.Lock()
	c.cities = cities
	c.regions = regions
	c.mu.Unlock()
	c.loaded.Store(true)

	logger.Info("locations cache loaded",
		zap.Int("cities", len(cities)),
		zap.Int("regions", len(regions)),
	)

	return nil
}

func (c *locationsCache) EnsureLoaded(ctx context.Context) error {
	if c.loaded.Load() {
		return nil
	}
	return c.Init(ctx)
}

func (c *locationsCache) Cities() []domain.City {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cities
}

func (c *locationsCache) Regions() []domain.Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.regions
}

func (c *locationsCache) RegionsByCityID(cityID uuid.UUID) []domain.Region {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Region, 0)
	for _, region := range c.regions {
		if region.CityID == cityID {
			out = append(out, region)
		}
	}
	return out
}

// GetRegionsByCity returns the regions of the city the partner knows as
// partnerCityID.
func (c *locationsCache) GetRegionsByCity(partner domain.Partner, partnerCityID string) []domain.Region {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cityIDs := make(map[uuid.UUID]struct{})
	for _, city := range c.cities {
		if id, ok := city.PartnerIDs.Get(partner); ok && id == partnerCityID {
			cityIDs[city.ID] = struct{}{}
		}
	}

	out := make([]domain.Region, 0)
	if len(cityIDs) == 0 {
		return out
	}
	for _, region := range c.regions {
		if _, ok := cityIDs[region.CityID]; ok {
			out = append(out, region)
		}
	}
	return out
}

// CityRegions returns the active regions of a canonical city. Before the
// first load it reads the store directly.
func (c *locationsCache) CityRegions(ctx context.Context, cityID uuid.UUID) ([]domain.Region, error) {
	if c.loaded.Load() {
		if !c.hasCity(cityID) {
			return nil, domain.ErrNotFound
		}
		return c.RegionsByCityID(cityID), nil
	}

	city, err := c.cityRepository.GetOneByID(ctx, cityID)
	if err != nil {
		return nil, err
	}
	if !city.IsActive {
		return nil, domain.ErrNotFound
	}

	regions, err := c.regionRepository.ListByCity(ctx, cityID)
	if err != nil {
		return nil, err
	}
	return nonNil(regions), nil
}

// PartnerCityRegions is GetRegionsByCity with a store fallback before the
// first load.
func (c *locationsCache) PartnerCityRegions(ctx context.Context, partner domain.Partner, partnerCityID string) ([]domain.Region, error) {
	if c.loaded.Load() {
		return c.GetRegionsByCity(partner, partnerCityID), nil
	}

	regions, err := c.regionRepository.ListByPartnerCity(ctx, partner, partnerCityID)
	if err != nil {
		return nil, err
	}
	return nonNil(regions), nil
}

func (c *locationsCache) hasCity(cityID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, city := range c.cities {
		if city.ID == cityID {
			return true
		}
	}
	return false
}

func nonNil(regions []domain.Region) []domain.Region {
	if regions == nil {
		return []domain.Region{}
	}
	return regions
}

func (c *locationsCache) TriggerSync(ctx context.Context, partner domain.Partner, token, userID string) (uuid.UUID, bool, error) {
	progress, joined, err := c.syncService.Trigger(ctx, TriggerSyncInput{
		Partner:     partner,
		Token:       token,
		TriggeredBy: userID,
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return progress.ID, joined, nil
}

func (c *locationsCache) IsLoaded() bool {
	return c.loaded.Load()
}

func (c *locationsCache) IsLoading() bool {
	return c.loading.Load()
}

// Invalidate reloads the cache after partner's locations changed.
func (c *locationsCache) Invalidate(ctx context.Context, partner domain.Partner) error {
	logger.Info("locations cache invalidated", zap.String("partner", partner.String()))
	return c.Init(ctx)
}

// Listen reloads the cache whenever a sync publishes an invalidation. It
// returns immediately, Teardown stops it.
func (c *locationsCache) Listen(ctx context.Context) {
	if c.subscriber == nil {
		return
	}

	c.listenMu.Lock()
	if c.stopListener != nil {
		c.listenMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.stopListener = cancel
	c.listenMu.Unlock()

	go func() {
		err := c.subscriber.Subscribe(ctx, cache.LocationsInvalidateChannel, func(message string) {
			if err := c.Invalidate(ctx, domain.Partner(message)); err != nil {
				logger.Error("reload locations cache failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Error("locations invalidation listener stopped", zap.Error(err))
		}
	}()
}

func (c *locationsCache) Teardown() {
	c.listenMu.Lock()
	if c.stopListener != nil {
		c.stopListener()
		c.stopListener = nil
	}
	c.listenMu.Unlock()

	c.mu.Lock()
	c.cities = nil
	c.regions = nil
	c.mu.Unlock()
	c.loaded.Store(false)
}
