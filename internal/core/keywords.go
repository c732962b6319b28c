package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gwi.com/photo-search-assistant/internal/store"
	"gwi.com/photo-search-assistant/internal/utils"
)

var ErrKeywordIndex = errors.New("keyword index out of range")

// KeywordUpdate is the keyword surface after an edit, plus the search it
// triggered. Search is nil when nothing was searched.
type KeywordUpdate struct {
	State  store.KeywordState `json:"state"`
	Query  string             `json:"query"`
	Search *SearchResponse    `json:"search,omitempty"`
}

// KeywordService owns the manual keyword-editing surface of a session.
type KeywordService struct {
	prefs      *store.PreferenceStore
	search     *SearchService
	randomizer *RandomizeService
	mu         sync.Mutex
}

func NewKeywordService(prefs *store.PreferenceStore, search *SearchService, randomizer *RandomizeService) *KeywordService {
	return &KeywordService{
		prefs:      prefs,
		search:     search,
		randomizer: randomizer,
	}
}

func (k *KeywordService) State(sessionID string) (store.KeywordState, error) {
	return k.prefs.KeywordState(sessionID)
}

// update applies fn to the stored state under the service lock.
func (k *KeywordService) update(sessionID string, fn func(state *store.KeywordState) error) (store.KeywordState, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	state, err := k.prefs.KeywordState(sessionID)
	if err != nil {
		return store.KeywordState{}, fmt.Errorf("failed to load keyword state: %w", err)
	}
	if err := fn(&state); err != nil {
		return store.KeywordState{}, err
	}
	if err := k.prefs.SaveKeywordState(sessionID, state); err != nil {
		return store.KeywordState{}, fmt.Errorf("failed to save keyword state: %w", err)
	}
	return state, nil
}

func resetVariations(state *store.KeywordState) {
	state.Variations = nil
	state.VariationIndex = 0
}

// SyncFromAI records the AI's latest query and, unless the user has edited
// the keywords by hand, replaces them with its parsed form.
func (k *KeywordService) SyncFromAI(sessionID, query string) (store.KeywordState, error) {
	return k.update(sessionID, func(state *store.KeywordState) error {
		if strings.TrimSpace(query) == "" {
			return nil
		}
		state.LastAIKeywords = query
		if !state.UserEdited {
			state.Keywords = utils.ParseKeywords(query)
			resetVariations(state)
		}
		return nil
	})
}

// Restore brings back the AI keywords when the surface is empty and untouched.
func (k *KeywordService) Restore(sessionID string) (store.KeywordState, error) {
	return k.update(sessionID, func(state *store.KeywordState) error {
		if len(state.Keywords) == 0 && state.LastAIKeywords != "" && !state.UserEdited {
			state.Keywords = utils.ParseKeywords(state.LastAIKeywords)
		}
		return nil
	})
}

func (k *KeywordService) Add(ctx context.Context, sessionID, text string, filters store.FilterSet) (*KeywordUpdate, error) {
	state, err := k.update(sessionID, func(state *store.KeywordState) error {
		state.Keywords = utils.MergeKeywords(state.Keywords, utils.ParseKeywords(text))
		state.UserEdited = true
		resetVariations(state)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return k.searchKeywords(ctx, state, utils.FormatKeywords(state.Keywords), filters), nil
}

func (k *KeywordService) Remove(ctx context.Context, sessionID string, index int, filters store.FilterSet) (*KeywordUpdate, error) {
	state, err := k.update(sessionID, func(state *store.KeywordState) error {
		if index < 0 || index >= len(state.Keywords) {
			return ErrKeywordIndex
		}
		state.Keywords = append(state.Keywords[:index:index], state.Keywords[index+1:]...)
		state.UserEdited = true
		resetVariations(state)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return k.searchKeywords(ctx, state, utils.FormatKeywords(state.Keywords), filters), nil
}

// Randomize moves to the next cached variation, fetching a fresh batch when
// none are cached. Empty keywords are left alone.
func (k *KeywordService) Randomize(ctx context.Context, sessionID string, filters store.FilterSet) (*KeywordUpdate, error) {
	current, err := k.State(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword state: %w", err)
	}
	if len(current.Keywords) == 0 {
		return &KeywordUpdate{State: current}, nil
	}

	var fresh []string
	if len(current.Variations) == 0 {
		// Model call happens outside the lock.
		fresh = k.randomizer.Randomize(ctx, utils.FormatKeywords(current.Keywords))
	}

	var chosen string
	state, err := k.update(sessionID, func(state *store.KeywordState) error {
		if len(state.Variations) > 0 {
			state.VariationIndex = (state.VariationIndex + 1) % len(state.Variations)
		} else {
			if fresh == nil {
				fresh = []string{utils.FormatKeywords(state.Keywords)}
			}
			state.Variations = fresh
			state.VariationIndex = 0
		}
		chosen = state.Variations[state.VariationIndex]
		state.Keywords = utils.ParseKeywords(chosen)
		state.UserEdited = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return k.searchKeywords(ctx, state, chosen, filters), nil
}

func (k *KeywordService) searchKeywords(ctx context.Context, state store.KeywordState, query string, filters store.FilterSet) *KeywordUpdate {
	update := &KeywordUpdate{State: state, Query: query}
	if strings.TrimSpace(query) == "" {
		return update
	}
	resp := k.search.Search(ctx, query, filters, 1)
	update.Search = &resp
	return update
}
