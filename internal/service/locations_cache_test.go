package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/repository"
)

type countingRegions struct {
	repository.Regions
	pages atomic.Int32
}

func (c *countingRegions) ListActive(ctx context.Context, limit, offset int) ([]domain.Region, error) {
	c.pages.Add(1)
	return c.Regions.ListActive(ctx, limit, offset)
}

func seedLocations(t *testing.T, repos *repository.Repositories, regionCount int) (*domain.City, *domain.City) {
	t.Helper()
	ctx := context.Background()
	syncID := uuid.New()

	baghdad := &domain.City{ID: uuid.New(), Name: "Baghdad"}
	basra := &domain.City{ID: uuid.New(), Name: "Basra"}
	require.NoError(t, repos.Cities.Upsert(ctx, baghdad, domain.PartnerAlWaseet, "1", syncID))
	require.NoError(t, repos.Cities.Upsert(ctx, basra, domain.PartnerAlWaseet, "2", syncID))
	require.NoError(t, repos.Cities.Upsert(ctx, basra, domain.PartnerModon, "20", syncID))

	batch := make([]domain.RegionUpsert, 0, 500)
	flush := func() {
		_, err := repos.Regions.UpsertBatch(ctx, domain.PartnerAlWaseet, syncID, batch)
		require.NoError(t, err)
		batch = batch[:0]
	}
	for i := 0; i < regionCount; i++ {
		city, externalCityID := baghdad, "1"
		if i%2 == 1 {
			city, externalCityID = basra, "2"
		}
		batch = append(batch, domain.RegionUpsert{
			Region:         domain.Region{ID: uuid.New(), CityID: city.ID, Name: fmt.Sprintf("region %d", i)},
			ExternalID:     fmt.Sprintf("r%d", i),
			ExternalCityID: externalCityID,
		})
		if len(batch) == cap(batch) {
			flush()
		}
	}
	if len(batch) > 0 {
		flush()
	}

	return baghdad, basra
}

func TestLocationsCache_InitPaginates(t *testing.T) {
	repos := newTestRepos(t)
	baghdad, basra := seedLocations(t, repos, 2500)

	regions := &countingRegions{Regions: repos.Regions}
	cache := newLocationsCache(repos.Cities, regions, nil, nil, config.LocationsConfig{PageSize: 1000})

	assert.False(t, cache.IsLoaded())
	require.NoError(t, cache.Init(context.Background()))

	assert.True(t, cache.IsLoaded())
	assert.False(t, cache.IsLoading())
	assert.EqualValues(t, 3, regions.pages.Load())
	assert.Len(t, cache.Cities(), 2)
	assert.Len(t, cache.Regions(), 2500)

	assert.Len(t, cache.RegionsByCityID(baghdad.ID), 1250)
	assert.Len(t, cache.GetRegionsByCity(domain.PartnerAlWaseet, "2"), 1250)
	// modon knows basra as 20
	assert.Len(t, cache.GetRegionsByCity(domain.PartnerModon, "20"), 1250)
	assert.Empty(t, cache.GetRegionsByCity(domain.PartnerModon, "1"))
	assert.Empty(t, cache.RegionsByCityID(uuid.New()))

	for _, region := range cache.GetRegionsByCity(domain.PartnerAlWaseet, "2") {
		require.Equal(t, basra.ID, region.CityID)
	}
}

func TestLocationsCache_ExactPageMultiple(t *testing.T) {
	repos := newTestRepos(t)
	seedLocations(t, repos, 20)

	regions := &countingRegions{Regions: repos.Regions}
	cache := newLocationsCache(repos.Cities, regions, nil, nil, config.LocationsConfig{PageSize: 10})

	require.NoError(t, cache.EnsureLoaded(context.Background()))
	// two full pages and the empty one that ends the loop
	assert.EqualValues(t, 3, regions.pages.Load())
	assert.Len(t, cache.Regions(), 20)

	// already loaded
	require.NoError(t, cache.EnsureLoaded(context.Background()))
	assert.EqualValues(t, 3, regions.pages.Load())
}

func TestLocationsCache_InvalidateAndTeardown(t *testing.T) {
	repos := newTestRepos(t)
	seedLocations(t, repos, 4)

	cache := newLocationsCache(repos.Cities, repos.Regions, nil, nil, config.LocationsConfig{PageSize: 100})
	require.NoError(t, cache.Init(context.Background()))
	assert.Len(t, cache.Cities(), 2)

	erbil := &domain.City{ID: uuid.New(), Name: "Erbil"}
	require.NoError(t, repos.Cities.Upsert(context.Background(), erbil, domain.PartnerModon, "5", uuid.New()))

	require.NoError(t, cache.Invalidate(context.Background(), domain.PartnerModon))
	assert.Len(t, cache.Cities(), 3)

	cache.Teardown()
	assert.False(t, cache.IsLoaded())
	assert.Empty(t, cache.Cities())
	assert.Empty(t, cache.Regions())
}

func TestLocationsCache_TriggerSync(t *testing.T) {
	repos := newTestRepos(t)
	enqueuer := &mockEnqueuer{}
	enqueuer.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, nil)

	syncService := newSyncService(repos.SyncProgress, repos.SyncLogs, testCatalog, enqueuer, &mockInspector{}, config.SyncConfig{})
	cache := newLocationsCache(repos.Cities, repos.Regions, syncService, nil, config.LocationsConfig{})

	id, joined, err := cache.TriggerSync(context.Background(), domain.PartnerModon, "token", "user-1")
	require.NoError(t, err)
	assert.False(t, joined)
	assert.NotEqual(t, uuid.Nil, id)

	again, joined, err := cache.TriggerSync(context.Background(), domain.PartnerModon, "token", "user-2")
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, id, again)
}

func TestLocationsCache_RegionLookupsBeforeLoad(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	baghdad, basra := seedLocations(t, repos, 6)

	cache := newLocationsCache(repos.Cities, repos.Regions, nil, nil, config.LocationsConfig{PageSize: 100})
	require.False(t, cache.IsLoaded())

	regions, err := cache.CityRegions(ctx, baghdad.ID)
	require.NoError(t, err)
	assert.Len(t, regions, 3)

	_, err = cache.CityRegions(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	byPartner, err := cache.PartnerCityRegions(ctx, domain.PartnerAlWaseet, "2")
	require.NoError(t, err)
	require.Len(t, byPartner, 3)
	for _, region := range byPartner {
		assert.Equal(t, basra.ID, region.CityID)
	}

	// modon knows basra as 20 and has no region mappings of its own
	viaModon, err := cache.PartnerCityRegions(ctx, domain.PartnerModon, "20")
	require.NoError(t, err)
	assert.Len(t, viaModon, 3)

	empty, err := cache.PartnerCityRegions(ctx, domain.PartnerModon, "99")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	// lookups stay off the store once loaded
	require.NoError(t, cache.Init(ctx))
	regions, err = cache.CityRegions(ctx, basra.ID)
	require.NoError(t, err)
	assert.Len(t, regions, 3)
	_, err = cache.CityRegions(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	byPartner, err = cache.PartnerCityRegions(ctx, domain.PartnerModon, "20")
	require.NoError(t, err)
	assert.Len(t, byPartner, 3)
}
