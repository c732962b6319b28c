package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/photo-search-assistant/internal/store"
)

func TestKeywordService_SyncRespectsUserEdits(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	state, err := env.keywords.SyncFromAI(env.sessionID, "golden hour beach")
	require.NoError(t, err)
	assert.Equal(t, []string{"golden hour", "beach"}, state.Keywords)
	assert.False(t, state.UserEdited)

	update, err := env.keywords.Add(ctx, env.sessionID, "waves, beach", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"golden hour", "beach", "waves"}, update.State.Keywords)
	assert.True(t, update.State.UserEdited)
	assert.Equal(t, "golden hour, beach, waves", update.Query)
	require.NotNil(t, update.Search)
	assert.Len(t, update.Search.Results, 4)

	state, err = env.keywords.SyncFromAI(env.sessionID, "mountain lake")
	require.NoError(t, err)
	assert.Equal(t, []string{"golden hour", "beach", "waves"}, state.Keywords)
	assert.Equal(t, "mountain lake", state.LastAIKeywords)

	state, err = env.keywords.SyncFromAI(env.sessionID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "mountain lake", state.LastAIKeywords)
}

func TestKeywordService_Remove(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	_, err := env.keywords.SyncFromAI(env.sessionID, "red bike")
	require.NoError(t, err)

	_, err = env.keywords.Remove(ctx, env.sessionID, 5, nil)
	assert.ErrorIs(t, err, ErrKeywordIndex)
	_, err = env.keywords.Remove(ctx, env.sessionID, -1, nil)
	assert.ErrorIs(t, err, ErrKeywordIndex)

	update, err := env.keywords.Remove(ctx, env.sessionID, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bike"}, update.State.Keywords)
	assert.Equal(t, "bike", update.Query)
	require.NotNil(t, update.Search)

	update, err = env.keywords.Remove(ctx, env.sessionID, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, update.State.Keywords)
	assert.Nil(t, update.Search, "an empty keyword set is not searched")
}

func TestKeywordService_Restore(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, env.prefs.SaveKeywordState(env.sessionID, store.KeywordState{LastAIKeywords: "dog park"}))

	state, err := env.keywords.Restore(env.sessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "park"}, state.Keywords)

	require.NoError(t, env.prefs.SaveKeywordState(env.sessionID, store.KeywordState{LastAIKeywords: "dog park", UserEdited: true}))
	state, err = env.keywords.Restore(env.sessionID)
	require.NoError(t, err)
	assert.Empty(t, state.Keywords)
}

func TestKeywordService_RandomizeCyclesVariations(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	env.model.variations = []string{"adorable puppy outdoors", "playful dog nature"}
	_, err := env.keywords.SyncFromAI(env.sessionID, "dog cute outside")
	require.NoError(t, err)

	first, err := env.keywords.Randomize(ctx, env.sessionID, store.DefaultFilters())
	require.NoError(t, err)
	assert.Equal(t, "adorable puppy outdoors", first.Query)
	assert.Equal(t, []string{"adorable", "puppy", "outdoors"}, first.State.Keywords)
	require.NotNil(t, first.Search)

	second, err := env.keywords.Randomize(ctx, env.sessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, "playful dog nature", second.Query)

	third, err := env.keywords.Randomize(ctx, env.sessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, "adorable puppy outdoors", third.Query)
	assert.Equal(t, 1, env.model.variationCalls, "cached variations are reused")

	// A manual edit drops the cached batch.
	_, err = env.keywords.Add(ctx, env.sessionID, "grass", nil)
	require.NoError(t, err)
	_, err = env.keywords.Randomize(ctx, env.sessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, env.model.variationCalls)
}

func TestKeywordService_RandomizeEmpty(t *testing.T) {
	env := newTestEnv(t, "")

	update, err := env.keywords.Randomize(context.Background(), env.sessionID, nil)
	require.NoError(t, err)
	assert.Empty(t, update.State.Keywords)
	assert.Nil(t, update.Search)
	assert.Zero(t, env.model.variationCalls)
}

func TestKeywordService_RandomizeWithOutOfRangeIndex(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, env.prefs.SaveKeywordState(env.sessionID, store.KeywordState{
		Keywords:       []string{"dog"},
		Variations:     []string{"puppy park", "canine meadow"},
		VariationIndex: -5,
	}))

	update, err := env.keywords.Randomize(context.Background(), env.sessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, "canine meadow", update.Query)
	assert.Zero(t, env.model.variationCalls)
}
