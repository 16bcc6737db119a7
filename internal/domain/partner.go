package domain

import (
	"sort"
	"strings"
)

// Partner is a delivery/logistics provider with its own city and region ids.
type Partner string

const (
	PartnerAlWaseet Partner = "alwaseet"
	PartnerModon    Partner = "modon"
)

func (p Partner) String() string {
	return string(p)
}

// Normalize lowercases and trims a partner name taken from user input.
func (p Partner) Normalize() Partner {
	return Partner(strings.ToLower(strings.TrimSpace(string(p))))
}

// PartnerIDs maps a partner to the external id it uses for a location.
// There is at most one external id per partner.
type PartnerIDs map[Partner]string

func (p PartnerIDs) Get(partner Partner) (string, bool) {
	if p == nil {
		return "", false
	}
	id, ok := p[partner]
	return id, ok
}

func (p PartnerIDs) Partners() []Partner {
	out := make([]Partner, 0, len(p))
	for partner := range p {
		out = append(out, partner)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PartnerCity is a city as reported by a partner api, already normalized.
type PartnerCity struct {
	ExternalID string `json:"id"`
	Name       string `json:"name"`
	NameAr     string `json:"name_ar,omitempty"`
	NameEn     string `json:"name_en,omitempty"`
}

// PartnerRegion is a region as reported by a partner api, already normalized.
type PartnerRegion struct {
	ExternalID     string `json:"id"`
	ExternalCityID string `json:"city_id"`
	Name           string `json:"name"`
}
