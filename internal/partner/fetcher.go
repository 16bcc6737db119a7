package partner

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/pkg/logger"
)

var defaultNameKeys = []string{"name", "city_name", "region_name"}

func (s Spec) nameKeys() []string {
	keys := make([]string, 0, len(s.NameKeys)+len(defaultNameKeys))
	keys = append(keys, s.NameKeys...)
	return append(keys, defaultNameKeys...)
}

// Fetcher reads the city and region lists of catalog partners through the
// proxy and normalizes them.
type Fetcher struct {
	proxy   Proxy
	catalog *Catalog
}

func NewFetcher(proxy Proxy, catalog *Catalog) *Fetcher {
	return &Fetcher{
		proxy:   proxy,
		catalog: catalog,
	}
}

func (f *Fetcher) Supports(partner domain.Partner) bool {
	return f.catalog.Supports(partner)
}

// FetchCities fails on any transport or shape error, a sync can not go on
// without the city list.
func (f *Fetcher) FetchCities(ctx context.Context, partner domain.Partner, token string) ([]domain.PartnerCity, error) {
	spec, err := f.catalog.Lookup(partner)
	if err != nil {
		return nil, err
	}

	raw, err := f.proxy.Invoke(ctx, Request{
		Partner:  spec.Name,
		Endpoint: spec.CitiesEndpoint,
		Method:   spec.Method,
		Token:    token,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s cities", spec.Name)
	}

	items, err := unwrapList(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s cities", spec.Name)
	}

	nameKeys := spec.nameKeys()
	cities := make([]domain.PartnerCity, 0, len(items))
	for _, it := range items {
		city := domain.PartnerCity{
			ExternalID: it.id("id", "city_id"),
			Name:       it.str(nameKeys...),
			NameAr:     it.str("name_ar", "city_name_ar"),
			NameEn:     it.str("name_en", "city_name_en"),
		}
		if city.ExternalID == "" || city.Name == "" {
			logger.Warn("skip partner city without id or name",
				zap.String("partner", spec.Name.String()),
				zap.Any("item", it),
			)
			continue
		}
		cities = append(cities, city)
	}

	return cities, nil
}

// FetchRegions never fails: errors are logged and an empty list is returned
// so one broken city does not abort the sync.
func (f *Fetcher) FetchRegions(ctx context.Context, partner domain.Partner, token, externalCityID string) []domain.PartnerRegion {
	regions, err := f.fetchRegions(ctx, partner, token, externalCityID)
	if err != nil {
		logger.Error("fetch partner regions failed",
			zap.String("partner", partner.String()),
			zap.String("city_id", externalCityID),
			zap.Error(err),
		)
		return []domain.PartnerRegion{}
	}
	return regions
}

func (f *Fetcher) fetchRegions(ctx context.Context, partner domain.Partner, token, externalCityID string) ([]domain.PartnerRegion, error) {
	spec, err := f.catalog.Lookup(partner)
	if err != nil {
		return nil, err
	}

	raw, err := f.proxy.Invoke(ctx, Request{
		Partner:  spec.Name,
		Endpoint: spec.RegionsEndpoint,
		Method:   spec.Method,
		Token:    token,
		Query:    map[string]string{spec.RegionCityParam: externalCityID},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s regions", spec.Name)
	}

	items, err := unwrapList(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s regions", spec.Name)
	}

	cityID := coerceID(externalCityID)
	nameKeys := spec.nameKeys()
	regions := make([]domain.PartnerRegion, 0, len(items))
	for _, it := range items {
		region := domain.PartnerRegion{
			ExternalID:     it.id("id", "region_id"),
			ExternalCityID: cityID,
			Name:           it.str(nameKeys...),
		}
		if region.ExternalID == "" || region.Name == "" {
			continue
		}
		regions = append(regions, region)
	}

	return regions, nil
}
