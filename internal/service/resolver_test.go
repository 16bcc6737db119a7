package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tajer-app/locations/internal/ai"
	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
)

type staticSource struct {
	cities  []domain.City
	regions []domain.Region
	loadErr error
}

func (s *staticSource) EnsureLoaded(context.Context) error { return s.loadErr }
func (s *staticSource) Cities() []domain.City              { return s.cities }
func (s *staticSource) Regions() []domain.Region           { return s.regions }

func (s *staticSource) RegionsByCityID(cityID uuid.UUID) []domain.Region {
	var out []domain.Region
	for _, region := range s.regions {
		if region.CityID == cityID {
			out = append(out, region)
		}
	}
	return out
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, model string, prompt ai.Prompt) (string, error) {
	args := m.Called(ctx, model, prompt)
	return args.String(0), args.Error(1)
}

var (
	baghdadID = uuid.MustParse("0190a6e4-0000-7000-8000-000000000001")
	basraID   = uuid.MustParse("0190a6e4-0000-7000-8000-000000000002")
	karradaID = uuid.MustParse("0190a6e4-0000-7000-8000-000000000011")
	ashar     = uuid.MustParse("0190a6e4-0000-7000-8000-000000000021")
)

func testSource() *staticSource {
	baghdadAr := "بغداد"
	return &staticSource{
		cities: []domain.City{
			{ID: baghdadID, Name: "Baghdad", NameAr: &baghdadAr, IsActive: true},
			{ID: basraID, Name: "Basra", IsActive: true},
		},
		regions: []domain.Region{
			{ID: karradaID, CityID: baghdadID, Name: "Karrada", IsActive: true},
			{ID: uuid.New(), CityID: baghdadID, Name: "Mansour", IsActive: true},
			{ID: ashar, CityID: basraID, Name: "Ashar", IsActive: true},
		},
	}
}

func newTestResolver(source LocationSource, generator ai.Generator, models ...string) *resolverService {
	return newResolverService(source, generator, models, config.ResolverConfig{FuzzyDistance: 1, RegionSampleLimit: 200})
}

func TestResolver_DirectCityAndRegion(t *testing.T) {
	gen := &mockGenerator{}
	resolver := newTestResolver(testSource(), gen, "gpt-4o-mini")

	res, err := resolver.Resolve(context.Background(), "Baghdad - Karrada")
	require.NoError(t, err)

	require.NotNil(t, res.CityID)
	require.NotNil(t, res.RegionID)
	assert.Equal(t, baghdadID, *res.CityID)
	assert.Equal(t, karradaID, *res.RegionID)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, domain.ResolutionSourceDirect, res.Source)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_DirectCityOnly(t *testing.T) {
	gen := &mockGenerator{}
	resolver := newTestResolver(testSource(), gen, "gpt-4o-mini")

	res, err := resolver.Resolve(context.Background(), "بغداد، شارع فلسطين")
	require.NoError(t, err)

	require.NotNil(t, res.CityID)
	assert.Equal(t, baghdadID, *res.CityID)
	assert.Nil(t, res.RegionID)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Empty(t, res.Suggestions)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_EmptyInput(t *testing.T) {
	source := &staticSource{loadErr: errors.New("must not load")}
	resolver := newTestResolver(source, nil)

	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := resolver.Resolve(context.Background(), input)
		assert.ErrorIs(t, err, domain.ErrEmptyLocationInput)
	}
}

func TestResolver_StoreFailure(t *testing.T) {
	resolver := newTestResolver(&staticSource{loadErr: errors.New("db down")}, nil)

	_, err := resolver.Resolve(context.Background(), "Baghdad")
	assert.Error(t, err)
}

func TestResolver_FuzzyCityAndRegion(t *testing.T) {
	gen := &mockGenerator{}
	resolver := newTestResolver(testSource(), gen, "gpt-4o-mini")

	res, err := resolver.Resolve(context.Background(), "Bagdad Karada")
	require.NoError(t, err)

	require.NotNil(t, res.CityID)
	require.NotNil(t, res.RegionID)
	assert.Equal(t, baghdadID, *res.CityID)
	assert.Equal(t, karradaID, *res.RegionID)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Equal(t, domain.ResolutionSourceFuzzy, res.Source)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_FuzzyCityOnlyWithoutAI(t *testing.T) {
	resolver := newTestResolver(testSource(), nil)

	res, err := resolver.Resolve(context.Background(), "Basre street 14")
	require.NoError(t, err)

	require.NotNil(t, res.CityID)
	assert.Equal(t, basraID, *res.CityID)
	assert.Nil(t, res.RegionID)
	assert.InDelta(t, FuzzyCityScore, res.Confidence, 1e-9)
	assert.Equal(t, domain.ResolutionSourceFuzzy, res.Source)
}

func TestResolver_Unrecognized(t *testing.T) {
	resolver := newTestResolver(testSource(), nil)

	res, err := resolver.Resolve(context.Background(), "zzz qqq")
	require.NoError(t, err)

	assert.Nil(t, res.CityID)
	assert.Nil(t, res.RegionID)
	assert.Equal(t, 0.0, res.Confidence)
	assert.NotNil(t, res.Suggestions)
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, domain.ResolutionSourceNone, res.Source)
	assert.Equal(t, "zzz qqq", res.RawInput)
}

func TestResolver_AIModelFallbackChain(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, "model-a", mock.Anything).Return("", errors.New("503")).Once()
	gen.On("Generate", mock.Anything, "model-b", mock.Anything).Return("not json at all", nil).Once()
	gen.On("Generate", mock.Anything, "model-c", mock.MatchedBy(func(p ai.Prompt) bool {
		return p.JSON && p.System != ""
	})).Return(`{"city":"Basra","region":"Ashar","corrected":"Basra Ashar","confidence":0.85,
		"suggestions":[{"city":"Basra","region":"Ashar","confidence":0.85},{"city":"Baghdad","confidence":0.1}]}`, nil).Once()

	resolver := newTestResolver(testSource(), gen, "model-a", "model-b", "model-c")

	res, err := resolver.Resolve(context.Background(), "xqzv wtrp")
	require.NoError(t, err)

	require.NotNil(t, res.CityID)
	require.NotNil(t, res.RegionID)
	assert.Equal(t, basraID, *res.CityID)
	assert.Equal(t, ashar, *res.RegionID)
	assert.Equal(t, 0.85, res.Confidence)
	assert.Len(t, res.Suggestions, 2)
	assert.Equal(t, domain.ResolutionSourceAI, res.Source)

	gen.AssertExpectations(t)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestResolver_AIAllModelsFail(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("boom"))

	resolver := newTestResolver(testSource(), gen, "model-a", "model-b")

	res, err := resolver.Resolve(context.Background(), "xqzv wtrp")
	require.NoError(t, err)

	assert.Nil(t, res.CityID)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Empty(t, res.Suggestions)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestResolver_AIAnswerNotInStore(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, "model-a", mock.Anything).
		Return(`{"city":"Mosul","confidence":0.9,"suggestions":[{"city":"Mosul","confidence":0.9}]}`, nil)

	resolver := newTestResolver(testSource(), gen, "model-a")

	res, err := resolver.Resolve(context.Background(), "xqzv wtrp")
	require.NoError(t, err)

	assert.Nil(t, res.CityID)
	assert.Equal(t, 0.0, res.Confidence)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, "Mosul", res.Suggestions[0].City)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"بغداد", "الكرادة", "street", "62"},
		tokenize("بغداد،الكرادة - Street,62"))
}
