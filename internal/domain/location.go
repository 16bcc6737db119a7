package domain

import "github.com/google/uuid"

type ResolutionSource string

const (
	ResolutionSourceDirect ResolutionSource = "direct"
	ResolutionSourceFuzzy  ResolutionSource = "fuzzy"
	ResolutionSourceAI     ResolutionSource = "ai"
	ResolutionSourceNone   ResolutionSource = "none"
)

type LocationSuggestion struct {
	City       string  `json:"city"`
	Region     string  `json:"region,omitempty"`
	Confidence float64 `json:"confidence"`
}

// LocationResolution is the best guess for a free-text address. A nil CityID
// means the caller has to ask for manual entry.
type LocationResolution struct {
	CityID      *uuid.UUID           `json:"city_id"`
	RegionID    *uuid.UUID           `json:"region_id"`
	CityName    string               `json:"city_name"`
	RegionName  string               `json:"region_name"`
	Confidence  float64              `json:"confidence"`
	Suggestions []LocationSuggestion `json:"suggestions"`
	RawInput    string               `json:"raw_input"`
	Source      ResolutionSource     `json:"source"`
}
