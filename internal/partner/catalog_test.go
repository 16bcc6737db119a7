package partner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tajer-app/locations/internal/domain"
)

func TestLoadCatalog_Default(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)

	assert.Equal(t, []domain.Partner{domain.PartnerAlWaseet, domain.PartnerModon}, catalog.Partners())
	assert.True(t, catalog.Supports(" AlWaseet "))

	spec, err := catalog.Lookup(domain.PartnerModon)
	require.NoError(t, err)
	assert.Equal(t, "cities", spec.CitiesEndpoint)
	assert.Equal(t, "city_id", spec.RegionCityParam)
}

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(`
partners:
  - name: Prime
    cities_endpoint: getCities
    regions_endpoint: getAreas
`))
	require.NoError(t, err)

	spec, err := catalog.Lookup("prime")
	require.NoError(t, err)
	assert.Equal(t, "GET", spec.Method)
	assert.Equal(t, "city_id", spec.RegionCityParam)

	_, err = catalog.Lookup(domain.PartnerModon)
	assert.ErrorIs(t, err, domain.ErrUnknownPartner)

	_, err = ParseCatalog([]byte(`partners: [{name: broken}]`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`partners: []`))
	assert.Error(t, err)
}
