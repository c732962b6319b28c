package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomize_UsesModelVariations(t *testing.T) {
	model := &fakeModel{variations: []string{"adorable puppy outdoors", "playful dog nature"}}
	got := NewRandomizeService(model).Randomize(context.Background(), "dog cute outside")

	assert.Equal(t, []string{"adorable puppy outdoors", "playful dog nature"}, got)
	assert.Equal(t, 1, model.variationCalls)
}

func TestRandomize_FallsBackOnModelFailure(t *testing.T) {
	for _, err := range []error{errors.New("schema mismatch"), ErrNoModel} {
		model := &fakeModel{varErr: err}
		got := NewRandomizeService(model).Randomize(context.Background(), "dog cute outside")
		assert.Equal(t, []string{"dog stunning outside", "artistic dog cute outside"}, got)
	}
}

func TestRandomize_EmptyKeywords(t *testing.T) {
	model := &fakeModel{}
	got := NewRandomizeService(model).Randomize(context.Background(), "  ")
	assert.Equal(t, []string{"  "}, got)
	assert.Zero(t, model.variationCalls)
}

func TestFallbackVariations(t *testing.T) {
	assert.Equal(t, []string{"stunning photo", "nice shot"}, FallbackVariations("nice photo"))
	assert.Equal(t, []string{"artistic sunset"}, FallbackVariations("sunset"))
	assert.Equal(t, []string{"stunning stunning", "artistic cute CUTE"}, FallbackVariations("cute CUTE"))
}

func TestValidateVariations(t *testing.T) {
	got, err := validateVariations([]string{"", " a ", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	_, err = validateVariations([]string{" ", ""})
	assert.Error(t, err)

	_, err = validateVariations(nil)
	assert.Error(t, err)
}
