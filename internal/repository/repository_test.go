package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tajer-app/locations/internal/db"
	"github.com/tajer-app/locations/internal/domain"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(context.Background(), conn))
	return conn
}

func newCity(name string) *domain.City {
	return &domain.City{ID: uuid.New(), Name: name}
}

func TestCityRepository_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))
	syncID := uuid.New()

	city := newCity("Baghdad")
	require.NoError(t, repos.Cities.Upsert(ctx, city, domain.PartnerAlWaseet, "1", syncID))
	require.NoError(t, repos.Cities.Upsert(ctx, city, domain.PartnerAlWaseet, "1", syncID))

	cities, err := repos.Cities.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 1)

	got, err := repos.Cities.GetOneByID(ctx, city.ID)
	require.NoError(t, err)
	assert.Equal(t, "Baghdad", got.Name)
	assert.True(t, got.IsActive)
	assert.Equal(t, domain.PartnerIDs{domain.PartnerAlWaseet: "1"}, got.PartnerIDs)
}

func TestCityRepository_UpsertKeepsTranslations(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	ar := "بغداد"
	city := newCity("Baghdad")
	city.NameAr = &ar
	require.NoError(t, repos.Cities.Upsert(ctx, city, domain.PartnerAlWaseet, "1", uuid.New()))

	second := &domain.City{ID: city.ID, Name: "Baghdad"}
	require.NoError(t, repos.Cities.Upsert(ctx, second, domain.PartnerModon, "77", uuid.New()))

	got, err := repos.Cities.GetOneByID(ctx, city.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NameAr)
	assert.Equal(t, ar, *got.NameAr)
	assert.Equal(t, domain.PartnerIDs{domain.PartnerAlWaseet: "1", domain.PartnerModon: "77"}, got.PartnerIDs)
}

func TestCityRepository_FindByName(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	city := newCity("Basra")
	require.NoError(t, repos.Cities.Upsert(ctx, city, domain.PartnerAlWaseet, "2", uuid.New()))

	got, err := repos.Cities.FindByName(ctx, "  basra ")
	require.NoError(t, err)
	assert.Equal(t, city.ID, got.ID)

	_, err = repos.Cities.FindByName(ctx, "Erbil")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCityRepository_GetOneByIDNotFound(t *testing.T) {
	repos := NewRepositories(newTestDB(t))

	_, err := repos.Cities.GetOneByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCityRepository_DeactivateStale(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))

	firstSync, secondSync := uuid.New(), uuid.New()
	kept, dropped, shared := newCity("Baghdad"), newCity("Najaf"), newCity("Basra")

	require.NoError(t, repos.Cities.Upsert(ctx, kept, domain.PartnerAlWaseet, "1", firstSync))
	require.NoError(t, repos.Cities.Upsert(ctx, dropped, domain.PartnerAlWaseet, "2", firstSync))
	require.NoError(t, repos.Cities.Upsert(ctx, shared, domain.PartnerAlWaseet, "3", firstSync))
	require.NoError(t, repos.Cities.Upsert(ctx, shared, domain.PartnerModon, "30", uuid.New()))

	require.NoError(t, repos.Cities.Upsert(ctx, kept, domain.PartnerAlWaseet, "1", secondSync))

	n, err := repos.Cities.DeactivateStale(ctx, domain.PartnerAlWaseet, secondSync)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	active, err := repos.Cities.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Baghdad", active[0].Name)
	assert.Equal(t, "Basra", active[1].Name)
	// the partner's stale mapping is gone, the other partner still maps it
	assert.Equal(t, domain.PartnerIDs{domain.PartnerModon: "30"}, active[1].PartnerIDs)

	mappings, err := repos.Cities.MappingsByPartner(ctx, domain.PartnerAlWaseet)
	require.NoError(t, err)
	assert.Len(t, mappings, 3)
	assert.Equal(t, dropped.ID, mappings["2"])
}

func TestRegionRepository_UpsertBatchSkipsBadRows(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))
	syncID := uuid.New()

	city := newCity("Baghdad")
	require.NoError(t, repos.Cities.Upsert(ctx, city, domain.PartnerAlWaseet, "1", syncID))

	rows := []domain.RegionUpsert{
		{Region: domain.Region{ID: uuid.New(), CityID: city.ID, Name: "Karrada"}, ExternalID: "10", ExternalCityID: "1"},
		// unknown city violates the foreign key
		{Region: domain.Region{ID: uuid.New(), CityID: uuid.New(), Name: "Ghost"}, ExternalID: "11", ExternalCityID: "9"},
		{Region: domain.Region{ID: uuid.New(), CityID: city.ID, Name: "Mansour"}, ExternalID: "12", ExternalCityID: "1"},
	}

	written, err := repos.Regions.UpsertBatch(ctx, domain.PartnerAlWaseet, syncID, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	// repeating the batch does not create duplicates
	written, err = repos.Regions.UpsertBatch(ctx, domain.PartnerAlWaseet, syncID, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	active, err := repos.Regions.ListActive(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	byCity, err := repos.Regions.ListByCity(ctx, city.ID)
	require.NoError(t, err)
	require.Len(t, byCity, 2)
	assert.Equal(t, "Karrada", byCity[0].Name)
	assert.Equal(t, domain.PartnerIDs{domain.PartnerAlWaseet: "10"}, byCity[0].PartnerIDs)

	byPartner, err := repos.Regions.ListByPartnerCity(ctx, domain.PartnerAlWaseet, "1")
	require.NoError(t, err)
	assert.Len(t, byPartner, 2)
}

func TestRegionRepository_ListActivePages(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))
	syncID := uuid.New()

	city := newCity("Erbil")
	require.NoError(t, repos.Cities.Upsert(ctx, city, domain.PartnerModon, "5", syncID))

	rows := make([]domain.RegionUpsert, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, domain.RegionUpsert{
			Region:         domain.Region{ID: uuid.New(), CityID: city.ID, Name: "r" + string(rune('a'+i))},
			ExternalID:     string(rune('a' + i)),
			ExternalCityID: "5",
		})
	}
	_, err := repos.Regions.UpsertBatch(ctx, domain.PartnerModon, syncID, rows)
	require.NoError(t, err)

	first, err := repos.Regions.ListActive(ctx, 3, 0)
	require.NoError(t, err)
	second, err := repos.Regions.ListActive(ctx, 3, 3)
	require.NoError(t, err)
	third, err := repos.Regions.ListActive(ctx, 3, 6)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Len(t, second, 2)
	assert.Empty(t, third)
}

func TestRegionRepository_DeactivateStaleScopedToCity(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))
	firstSync, secondSync := uuid.New(), uuid.New()

	baghdad, basra := newCity("Baghdad"), newCity("Basra")
	require.NoError(t, repos.Cities.Upsert(ctx, baghdad, domain.PartnerAlWaseet, "1", firstSync))
	require.NoError(t, repos.Cities.Upsert(ctx, basra, domain.PartnerAlWaseet, "2", firstSync))

	karrada := domain.RegionUpsert{Region: domain.Region{ID: uuid.New(), CityID: baghdad.ID, Name: "Karrada"}, ExternalID: "10", ExternalCityID: "1"}
	mansour := domain.RegionUpsert{Region: domain.Region{ID: uuid.New(), CityID: baghdad.ID, Name: "Mansour"}, ExternalID: "11", ExternalCityID: "1"}
	ashar := domain.RegionUpsert{Region: domain.Region{ID: uuid.New(), CityID: basra.ID, Name: "Ashar"}, ExternalID: "20", ExternalCityID: "2"}

	_, err := repos.Regions.UpsertBatch(ctx, domain.PartnerAlWaseet, firstSync, []domain.RegionUpsert{karrada, mansour, ashar})
	require.NoError(t, err)

	_, err = repos.Regions.UpsertBatch(ctx, domain.PartnerAlWaseet, secondSync, []domain.RegionUpsert{karrada})
	require.NoError(t, err)

	n, err := repos.Regions.DeactivateStale(ctx, domain.PartnerAlWaseet, baghdad.ID, secondSync)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	baghdadRegions, err := repos.Regions.ListByCity(ctx, baghdad.ID)
	require.NoError(t, err)
	require.Len(t, baghdadRegions, 1)
	assert.Equal(t, "Karrada", baghdadRegions[0].Name)

	// basra was not part of the deactivation
	basraRegions, err := repos.Regions.ListByCity(ctx, basra.ID)
	require.NoError(t, err)
	assert.Len(t, basraRegions, 1)
}

func TestRegionRepository_MappingsByPartnerKeyedByCity(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(newTestDB(t))
	syncID := uuid.New()

	baghdad, basra := newCity("Baghdad"), newCity("Basra")
	require.NoError(t, repos.Cities.Upsert(ctx, baghdad, domain.PartnerModon, "1", syncID))
	require.NoError(t, repos.Cities.Upsert(ctx, basra, domain.PartnerModon, "2", syncID))

	karrada := domain.RegionUpsert{Region: domain.Region{ID: uuid.New(), CityID: baghdad.ID, Name: "Karrada"}, ExternalID: "1", ExternalCityID: "1"}
	ashar := domain.RegionUpsert{Region: domain.Region{ID: uuid.New(), CityID: basra.ID, Name: "Ashar"}, ExternalID: "1", ExternalCityID: "2"}

	written, err := repos.Regions.UpsertBatch(ctx, domain.PartnerModon, syncID, []domain.RegionUpsert{karrada, ashar})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	mappings, err := repos.Regions.MappingsByPartner(ctx, domain.PartnerModon)
	require.NoError(t, err)
	assert.Equal(t, map[string]uuid.UUID{
		domain.RegionKey("1", "1"): karrada.Region.ID,
		domain.RegionKey("2", "1"): ashar.Region.ID,
	}, mappings)
}
