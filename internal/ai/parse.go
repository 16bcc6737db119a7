package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrUnparsableAIResponse = errors.New("ai response is not a valid location answer")

var validate = validator.New(validator.WithRequiredStructEnabled())

// LocationSuggestion is one alternative reading proposed by the model.
type LocationSuggestion struct {
	City       string  `json:"city" validate:"required"`
	Region     string  `json:"region"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// LocationAnswer is the json object the model is asked to return.
type LocationAnswer struct {
	City        string               `json:"city"`
	Region      string               `json:"region"`
	Corrected   string               `json:"corrected"`
	Confidence  float64              `json:"confidence" validate:"gte=0,lte=1"`
	Suggestions []LocationSuggestion `json:"suggestions" validate:"max=3,dive"`
}

// ParseLocationAnswer decodes and validates a model answer. Markdown code
// fences and text around the object are tolerated, anything else is
// ErrUnparsableAIResponse.
func ParseLocationAnswer(content string) (*LocationAnswer, error) {
	object := extractObject(content)
	if object == "" {
		return nil, fmt.Errorf("%w: no json object found", ErrUnparsableAIResponse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(object)))
	var answer LocationAnswer
	if err := dec.Decode(&answer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableAIResponse, err)
	}

	answer.City = strings.TrimSpace(answer.City)
	answer.Region = strings.TrimSpace(answer.Region)

	if err := validate.Struct(answer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableAIResponse, err)
	}

	return &answer, nil
}

func extractObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
