package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/photo-search-assistant/internal/config"
)

const (
	SearchStyleKey    = "search-style"
	ResponseStyleKey  = "response-style"
	ProjectContextKey = "project-context"
	SavedItemsKey     = "saved-items"
	KeywordStateKey   = "keyword-state"
)

// PreferenceStore holds the small per-session settings: styles, project
// context, saved items and the keyword surface state.
type PreferenceStore struct {
	kv KV

	// Serializes read-modify-write cycles on list values.
	mu sync.Mutex
}

func NewPreferenceStore(kv KV) *PreferenceStore {
	return &PreferenceStore{kv: kv}
}

// readJSON decodes the value stored under key. Missing or corrupt values
// report false and the zero T, never a partially decoded one.
func readJSON[T any](kv KV, sessionID, key string) (T, bool, error) {
	var zero T
	raw, ok, err := kv.GetValue(sessionID, key)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		config.Logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"key":        key,
			"error":      err,
		}).Warn("Ignoring corrupt stored preference")
		return zero, false, nil
	}
	return v, true, nil
}

func (p *PreferenceStore) writeJSON(sessionID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return p.kv.SetValue(sessionID, key, string(data))
}

func (p *PreferenceStore) Styles(sessionID string) (StylePreferences, error) {
	prefs := DefaultStyles()

	search, ok, err := readJSON[SearchStyle](p.kv, sessionID, SearchStyleKey)
	if err != nil {
		return prefs, err
	}
	if ok && search.Valid() {
		prefs.SearchStyle = search
	}

	response, ok, err := readJSON[ResponseStyle](p.kv, sessionID, ResponseStyleKey)
	if err != nil {
		return prefs, err
	}
	if ok && response.Valid() {
		prefs.ResponseStyle = response
	}
	return prefs, nil
}

func (p *PreferenceStore) SetSearchStyle(sessionID string, style SearchStyle) error {
	if !style.Valid() {
		return fmt.Errorf("invalid search style %q", style)
	}
	return p.writeJSON(sessionID, SearchStyleKey, style)
}

func (p *PreferenceStore) SetResponseStyle(sessionID string, style ResponseStyle) error {
	if !style.Valid() {
		return fmt.Errorf("invalid response style %q", style)
	}
	return p.writeJSON(sessionID, ResponseStyleKey, style)
}

// ProjectContext returns the stored context, or nil when none is set.
func (p *PreferenceStore) ProjectContext(sessionID string) (*string, error) {
	text, ok, err := readJSON[string](p.kv, sessionID, ProjectContextKey)
	if err != nil || !ok || strings.TrimSpace(text) == "" {
		return nil, err
	}
	return &text, nil
}

// SetProjectContext stores text; blank text removes the context instead.
func (p *PreferenceStore) SetProjectContext(sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return p.ClearProjectContext(sessionID)
	}
	return p.writeJSON(sessionID, ProjectContextKey, text)
}

func (p *PreferenceStore) ClearProjectContext(sessionID string) error {
	return p.kv.DeleteValue(sessionID, ProjectContextKey)
}

func (p *PreferenceStore) SavedItems(sessionID string) ([]SavedItem, error) {
	items, _, err := readJSON[[]SavedItem](p.kv, sessionID, SavedItemsKey)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []SavedItem{}
	}
	return items, nil
}

// SaveItem bookmarks an item; saving an id twice keeps the first entry.
func (p *PreferenceStore) SaveItem(sessionID string, item SavedItem) ([]SavedItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	items, err := p.SavedItems(sessionID)
	if err != nil {
		return nil, err
	}
	for _, existing := range items {
		if existing.ID == item.ID {
			return items, nil
		}
	}
	item.SavedAt = time.Now().UnixMilli()
	items = append(items, item)
	if err := p.writeJSON(sessionID, SavedItemsKey, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *PreferenceStore) RemoveItem(sessionID, itemID string) ([]SavedItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	items, err := p.SavedItems(sessionID)
	if err != nil {
		return nil, err
	}
	kept := items[:0]
	for _, item := range items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	if err := p.writeJSON(sessionID, SavedItemsKey, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func (p *PreferenceStore) IsItemSaved(sessionID, itemID string) (bool, error) {
	items, err := p.SavedItems(sessionID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.ID == itemID {
			return true, nil
		}
	}
	return false, nil
}

// KeywordState returns the stored keyword surface with VariationIndex
// clamped into range.
func (p *PreferenceStore) KeywordState(sessionID string) (KeywordState, error) {
	state, _, err := readJSON[KeywordState](p.kv, sessionID, KeywordStateKey)
	if err != nil {
		return KeywordState{}, err
	}
	if state.Keywords == nil {
		state.Keywords = []string{}
	}
	if state.VariationIndex < 0 || state.VariationIndex >= len(state.Variations) {
		state.VariationIndex = 0
	}
	return state, nil
}

func (p *PreferenceStore) SaveKeywordState(sessionID string, state KeywordState) error {
	return p.writeJSON(sessionID, KeywordStateKey, state)
}
