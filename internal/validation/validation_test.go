package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	URL   string   `json:"url" validate:"required"`
	Score *float64 `json:"score" validate:"required,min=0,max=1"`
	Level string   `json:"threatLevel" validate:"required,risklevel"`
	Inner *inner   `json:"result" validate:"required"`
}

type inner struct {
	Link string `json:"link" validate:"omitempty,url"`
}

func ptr(f float64) *float64 { return &f }

func TestStruct(t *testing.T) {
	ok := sample{URL: "http://a.example", Score: ptr(0.3), Level: "high", Inner: &inner{}}
	require.NoError(t, Struct(ok))

	err := Struct(sample{Score: ptr(1.5), Level: "Severe", Inner: &inner{Link: "not a url"}})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	msg := Describe(err)
	assert.Contains(t, msg, "url: is required")
	assert.Contains(t, msg, "score: must be at most 1")
	assert.Contains(t, msg, "threatLevel: must be one of Low, Medium, High")
	assert.Contains(t, msg, "result.link: must be a valid URL")
}

func TestMissingPointersAreRequired(t *testing.T) {
	err := Struct(sample{URL: "x", Level: "Low"})
	msg := Describe(err)
	assert.Contains(t, msg, "score: is required")
	assert.Contains(t, msg, "result: is required")
}

func TestDescribePlainError(t *testing.T) {
	assert.False(t, IsValidationError(errors.New("boom")))
	assert.Equal(t, "boom", Describe(errors.New("boom")))
}
