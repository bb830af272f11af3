package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validItinerary = `{
	"destination": "Lisbon, Portugal",
	"duration": "3 days",
	"budget_level": "mid-range",
	"activities": ["pastel de nata tasting", "tram 28 ride"],
	"days": [
		{"day": 1, "title": "Alfama", "items": ["Miradouro de Santa Luzia"]}
	],
	"travel_tips": ["buy a Viva Viagem card"]
}`

func TestValidateAcceptsCompleteItinerary(t *testing.T) {
	v := NewItineraryValidator()
	assert.NoError(t, v.Validate(json.RawMessage(validItinerary)))
}

func TestValidateRejectsMissingKeys(t *testing.T) {
	v := NewItineraryValidator()

	err := v.Validate(json.RawMessage(`{"destination": "Lisbon"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")
	assert.Contains(t, err.Error(), "days")
	assert.Contains(t, err.Error(), "travel_tips")
}

func TestValidateRejectsNullValues(t *testing.T) {
	v := NewItineraryValidator()

	err := v.Validate(json.RawMessage(`{
		"destination": "Lisbon",
		"duration": "3 days",
		"budget_level": "mid-range",
		"activities": [],
		"days": null,
		"travel_tips": []
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "days")
}

func TestValidateRejectsNonArrayFields(t *testing.T) {
	v := NewItineraryValidator()

	err := v.Validate(json.RawMessage(`{
		"destination": "Lisbon",
		"duration": "3 days",
		"budget_level": "mid-range",
		"activities": "walking",
		"days": [{"day": 1}],
		"travel_tips": []
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"activities"`)
}

func TestValidateRejectsEmptyDays(t *testing.T) {
	v := NewItineraryValidator()

	err := v.Validate(json.RawMessage(`{
		"destination": "Lisbon",
		"duration": "3 days",
		"budget_level": "mid-range",
		"activities": [],
		"days": [],
		"travel_tips": []
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one day")
}

func TestValidateRejectsNonObject(t *testing.T) {
	v := NewItineraryValidator()
	assert.Error(t, v.Validate(json.RawMessage(`["not", "an", "object"]`)))
	assert.Error(t, v.Validate(json.RawMessage(`"just a string"`)))
}
