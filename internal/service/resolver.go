package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/ai"
	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/pkg/logger"
)

// Confidence policy. A direct city hit alone is enough to skip the fuzzy
// and ai stages.
const (
	DirectCityScore        = 0.5
	DirectRegionScore      = 0.5
	FuzzyCityScore         = 0.4
	FuzzyRegionScore       = 0.4
	ShortCircuitConfidence = 0.5
	MaxSuggestions         = 3

	minFuzzyTokenLength       = 3
	minContainedTokenLength   = 2
	defaultRegionSampleLimit  = 200
	fuzzyShortCircuitRequired = FuzzyCityScore + FuzzyRegionScore
)

// LocationSource is the in-memory view of the store the resolver matches
// against.
type LocationSource interface {
	EnsureLoaded(ctx context.Context) error
	Cities() []domain.City
	Regions() []domain.Region
	RegionsByCityID(cityID uuid.UUID) []domain.Region
}

type resolverService struct {
	source            LocationSource
	generator         ai.Generator
	models            []string
	fuzzyDistance     int
	regionSampleLimit int
}

func newResolverService(source LocationSource, generator ai.Generator, models []string, cfg config.ResolverConfig) *resolverService {
	sample := cfg.RegionSampleLimit
	if sample <= 0 {
		sample = defaultRegionSampleLimit
	}

	return &resolverService{
		source:            source,
		generator:         generator,
		models:            models,
		fuzzyDistance:     cfg.FuzzyDistance,
		regionSampleLimit: sample,
	}
}

// match is the outcome of one matching stage.
type match struct {
	city       *domain.City
	region     *domain.Region
	confidence float64
	source     domain.ResolutionSource
}

// Resolve turns free text into a store backed city and region. Unrecognized
// input is not an error, the result then has no city id.
func (s *resolverService) Resolve(ctx context.Context, text string) (*domain.LocationResolution, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, domain.ErrEmptyLocationInput
	}

	if err := s.source.EnsureLoaded(ctx); err != nil {
		return nil, fmt.Errorf("load locations failed: %w", err)
	}

	tokens := tokenize(raw)
	cities := s.source.Cities()

	direct := s.directMatch(tokens, cities)
	if direct.confidence >= ShortCircuitConfidence {
		return direct.resolution(text, nil), nil
	}

	fuzzy := s.fuzzyMatch(tokens, cities)
	if fuzzy.confidence >= fuzzyShortCircuitRequired {
		return fuzzy.resolution(text, nil), nil
	}

	fallback := direct
	if fuzzy.city != nil {
		fallback = fuzzy
	}

	if s.generator == nil || len(s.models) == 0 {
		return fallback.resolution(text, nil), nil
	}

	answer, err := s.askModels(ctx, raw, cities)
	if err != nil {
		logger.Warn("ai location fallback failed", zap.String("input", raw), zap.Error(err))
		return fallback.resolution(text, nil), nil
	}

	suggestions := answerSuggestions(answer)
	reconciled := s.reconcile(answer, cities)
	if reconciled.city == nil {
		return fallback.resolution(text, suggestions), nil
	}

	return reconciled.resolution(text, suggestions), nil
}

func (s *resolverService) directMatch(tokens []string, cities []domain.City) match {
	cityIdx, tokenIdx := findCity(tokens, cities)
	if cityIdx < 0 {
		return match{source: domain.ResolutionSourceNone}
	}

	city := &cities[cityIdx]
	result := match{city: city, confidence: DirectCityScore, source: domain.ResolutionSourceDirect}

	regions := s.source.RegionsByCityID(city.ID)
	if regionIdx := findRegion(without(tokens, tokenIdx), regions); regionIdx >= 0 {
		result.region = &regions[regionIdx]
		result.confidence += DirectRegionScore
	}

	return result
}

func (s *resolverService) fuzzyMatch(tokens []string, cities []domain.City) match {
	if s.fuzzyDistance <= 0 {
		return match{source: domain.ResolutionSourceNone}
	}

	cityIdx, tokenIdx := s.closestCity(tokens, cities)
	if cityIdx < 0 {
		return match{source: domain.ResolutionSourceNone}
	}

	city := &cities[cityIdx]
	result := match{city: city, confidence: FuzzyCityScore, source: domain.ResolutionSourceFuzzy}

	rest := without(tokens, tokenIdx)
	regions := s.source.RegionsByCityID(city.ID)
	if regionIdx := findRegion(rest, regions); regionIdx >= 0 {
		result.region = &regions[regionIdx]
		result.confidence += DirectRegionScore
	} else if regionIdx := s.closestRegion(rest, regions); regionIdx >= 0 {
		result.region = &regions[regionIdx]
		result.confidence += FuzzyRegionScore
	}

	return result
}

// askModels walks the model chain and returns the first answer that parses.
func (s *resolverService) askModels(ctx context.Context, input string, cities []domain.City) (*ai.LocationAnswer, error) {
	prompt := s.buildPrompt(input, cities)

	var errs []error
	for _, model := range s.models {
		content, err := s.generator.Generate(ctx, model, prompt)
		if err == nil {
			var answer *ai.LocationAnswer
			answer, err = ai.ParseLocationAnswer(content)
			if err == nil {
				return answer, nil
			}
		}

		logger.Warn("ai model failed", zap.String("model", model), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", model, err))

		if ctx.Err() != nil {
			break
		}
	}

	return nil, errors.Join(errs...)
}

const resolverSystemPrompt = `You extract delivery locations from customer addresses in Iraq.
Pick the city and region only from the known lists, fix spelling mistakes and
answer with a single json object:
{"city": "", "region": "", "corrected": "", "confidence": 0.0,
 "suggestions": [{"city": "", "region": "", "confidence": 0.0}]}
Use empty strings when unsure, confidence between 0 and 1, at most 3 suggestions.`

func (s *resolverService) buildPrompt(input string, cities []domain.City) ai.Prompt {
	cityNames := make([]string, 0, len(cities))
	for _, city := range cities {
		cityNames = append(cityNames, city.Name)
	}

	seen := make(map[string]struct{})
	regionNames := make([]string, 0, s.regionSampleLimit)
	for _, region := range s.source.Regions() {
		if len(regionNames) >= s.regionSampleLimit {
			break
		}
		if _, ok := seen[region.Name]; ok {
			continue
		}
		seen[region.Name] = struct{}{}
		regionNames = append(regionNames, region.Name)
	}

	var b strings.Builder
	b.WriteString("Known cities: ")
	b.WriteString(strings.Join(cityNames, ", "))
	b.WriteString("\nSample regions: ")
	b.WriteString(strings.Join(regionNames, ", "))
	b.WriteString("\nAddress: ")
	b.WriteString(input)

	return ai.Prompt{
		System: resolverSystemPrompt,
		User:   b.String(),
		JSON:   true,
	}
}

// reconcile maps the names returned by the model back onto store rows with
// the direct matching rule.
func (s *resolverService) reconcile(answer *ai.LocationAnswer, cities []domain.City) match {
	if answer.City == "" {
		return match{source: domain.ResolutionSourceNone}
	}

	cityIdx, _ := findCity(nameTokens(answer.City), cities)
	if cityIdx < 0 {
		return match{source: domain.ResolutionSourceNone}
	}

	city := &cities[cityIdx]
	result := match{city: city, confidence: DirectCityScore, source: domain.ResolutionSourceAI}

	if answer.Region != "" {
		regions := s.source.RegionsByCityID(city.ID)
		if regionIdx := findRegion(nameTokens(answer.Region), regions); regionIdx >= 0 {
			result.region = &regions[regionIdx]
			result.confidence += DirectRegionScore
		}
	}

	if answer.Confidence > 0 {
		result.confidence = clamp(answer.Confidence)
	}

	return result
}

func answerSuggestions(answer *ai.LocationAnswer) []domain.LocationSuggestion {
	out := make([]domain.LocationSuggestion, 0, MaxSuggestions)
	for _, suggestion := range answer.Suggestions {
		if len(out) == MaxSuggestions {
			break
		}
		out = append(out, domain.LocationSuggestion{
			City:       suggestion.City,
			Region:     suggestion.Region,
			Confidence: clamp(suggestion.Confidence),
		})
	}
	return out
}

func (m match) resolution(rawInput string, suggestions []domain.LocationSuggestion) *domain.LocationResolution {
	if suggestions == nil {
		suggestions = []domain.LocationSuggestion{}
	}

	res := &domain.LocationResolution{
		Confidence:  clamp(m.confidence),
		Suggestions: suggestions,
		RawInput:    rawInput,
		Source:      m.source,
	}
	if m.city == nil {
		res.Confidence = 0
		res.Source = domain.ResolutionSourceNone
		return res
	}

	cityID := m.city.ID
	res.CityID = &cityID
	res.CityName = m.city.Name
	if m.region != nil {
		regionID := m.region.ID
		res.RegionID = &regionID
		res.RegionName = m.region.Name
	}
	return res
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == ',' || r == '،'
	})
}

// nameTokens tries the whole name before its parts.
func nameTokens(name string) []string {
	whole := strings.ToLower(strings.TrimSpace(name))
	return append([]string{whole}, tokenize(whole)...)
}

func without(tokens []string, idx int) []string {
	if idx < 0 || idx >= len(tokens) {
		return tokens
	}
	out := make([]string, 0, len(tokens)-1)
	out = append(out, tokens[:idx]...)
	return append(out, tokens[idx+1:]...)
}

func cityNames(city *domain.City) []string {
	names := []string{strings.ToLower(city.Name)}
	if city.NameAr != nil && *city.NameAr != "" {
		names = append(names, strings.ToLower(*city.NameAr))
	}
	if city.NameEn != nil && *city.NameEn != "" {
		names = append(names, strings.ToLower(*city.NameEn))
	}
	return names
}

// textMatches is the direct rule: equal, name contains token or token
// contains name. Single letters only match exactly.
func textMatches(token, name string) bool {
	if token == "" || name == "" {
		return false
	}
	if token == name {
		return true
	}
	if utf8.RuneCountInString(token) < minContainedTokenLength || utf8.RuneCountInString(name) < minContainedTokenLength {
		return false
	}
	return strings.Contains(name, token) || strings.Contains(token, name)
}

// findCity returns the first city hit by any token, in token order, and the
// index of that token.
func findCity(tokens []string, cities []domain.City) (int, int) {
	for t, token := range tokens {
		for i := range cities {
			for _, name := range cityNames(&cities[i]) {
				if textMatches(token, name) {
					return i, t
				}
			}
		}
	}
	return -1, -1
}

func findRegion(tokens []string, regions []domain.Region) int {
	for _, token := range tokens {
		for i := range regions {
			if textMatches(token, strings.ToLower(regions[i].Name)) {
				return i
			}
		}
	}
	return -1
}

func (s *resolverService) closestCity(tokens []string, cities []domain.City) (int, int) {
	bestCity, bestToken, bestDistance := -1, -1, s.fuzzyDistance+1
	for t, token := range tokens {
		if utf8.RuneCountInString(token) < minFuzzyTokenLength {
			continue
		}
		for i := range cities {
			for _, name := range cityNames(&cities[i]) {
				if d := closestWordDistance(token, name); d < bestDistance {
					bestCity, bestToken, bestDistance = i, t, d
				}
			}
		}
	}
	return bestCity, bestToken
}

func (s *resolverService) closestRegion(tokens []string, regions []domain.Region) int {
	best, bestDistance := -1, s.fuzzyDistance+1
	for _, token := range tokens {
		if utf8.RuneCountInString(token) < minFuzzyTokenLength {
			continue
		}
		for i := range regions {
			if d := closestWordDistance(token, strings.ToLower(regions[i].Name)); d < bestDistance {
				best, bestDistance = i, d
			}
		}
	}
	return best
}

// closestWordDistance compares token with the whole name and each of its
// words.
func closestWordDistance(token, name string) int {
	best := levenshtein.ComputeDistance(token, name)
	for _, word := range tokenize(name) {
		if d := levenshtein.ComputeDistance(token, word); d < best {
			best = d
		}
	}
	return best
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
