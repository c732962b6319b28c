package store

import (
	"strings"
	"time"
)

type Session struct {
	ID        string    `json:"id"` // Using UUID for external ID
	CreatedAt time.Time `json:"created_at"`
}

type MessageKind string

const (
	KindUser          MessageKind = "user"
	KindAssistant     MessageKind = "assistant"
	KindThinking      MessageKind = "thinking"
	KindSearchSummary MessageKind = "search-summary"
)

type Message struct {
	ID        string           `json:"id"`
	Kind      MessageKind      `json:"kind"`
	Text      string           `json:"text"`
	CreatedAt time.Time        `json:"createdAt"`
	Thinking  *ThinkingPayload `json:"thinkingPayload,omitempty"`
	Search    *SearchPayload   `json:"searchPayload,omitempty"`
}

type ThinkingStep struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// ThinkingPayload is a cosmetic trace of how a query was derived.
type ThinkingPayload struct {
	DurationLabel string         `json:"durationLabel"`
	Steps         []ThinkingStep `json:"steps"`
}

type SearchResult struct {
	ID        string   `json:"id"`
	ImageURL  string   `json:"imageUrl"`
	AltText   string   `json:"altText"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	SourceURL string   `json:"sourceUrl,omitempty"`
	Tags      []string `json:"tags"`
}

type SearchPayload struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"totalResults"`
	Filters      FilterSet      `json:"filters"`
}

// Filter keys. The first four are the base set; the rest are detected from
// free text.
const (
	FilterCategory    = "category"
	FilterSubcategory = "subcategory"
	FilterOrientation = "orientation"
	FilterResolution  = "resolution"
	FilterDogBreed    = "dogBreed"
	FilterStyle       = "style"
	FilterMood        = "mood"
	FilterSeason      = "season"

	FilterAll = "all"
)

var knownFilterKeys = []string{
	FilterCategory, FilterSubcategory, FilterOrientation, FilterResolution,
	FilterDogBreed, FilterStyle, FilterMood, FilterSeason,
}

// FilterSet maps a filter name to its selected value. A missing key and the
// value "all" both mean no constraint.
type FilterSet map[string]string

func DefaultFilters() FilterSet {
	return FilterSet{
		FilterCategory:    "photos",
		FilterOrientation: FilterAll,
		FilterSubcategory: FilterAll,
		FilterResolution:  FilterAll,
	}
}

// Get returns the value for key, or "all" when unset.
func (f FilterSet) Get(key string) string {
	if v, ok := f[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return FilterAll
}

// Active reports whether key carries a real constraint.
func (f FilterSet) Active(key string) bool {
	return !strings.EqualFold(f.Get(key), FilterAll)
}

// Clone returns a copy safe to mutate.
func (f FilterSet) Clone() FilterSet {
	out := make(FilterSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// CanonicalFilterKey maps a key in any casing onto its canonical spelling.
// Unknown keys are lower-cased.
func CanonicalFilterKey(key string) string {
	trimmed := strings.TrimSpace(key)
	for _, known := range knownFilterKeys {
		if strings.EqualFold(trimmed, known) {
			return known
		}
	}
	return strings.ToLower(trimmed)
}

type SearchStyle string

const (
	SearchExact    SearchStyle = "exact"
	SearchBalanced SearchStyle = "balanced"
	SearchCreative SearchStyle = "creative"
)

func (s SearchStyle) Valid() bool {
	switch s {
	case SearchExact, SearchBalanced, SearchCreative:
		return true
	}
	return false
}

type ResponseStyle string

const (
	ResponseConversational ResponseStyle = "conversational"
	ResponseInquisitive    ResponseStyle = "inquisitive"
	ResponseDirect         ResponseStyle = "direct"
	ResponseDetailed       ResponseStyle = "detailed"
)

func (s ResponseStyle) Valid() bool {
	switch s {
	case ResponseConversational, ResponseInquisitive, ResponseDirect, ResponseDetailed:
		return true
	}
	return false
}

type StylePreferences struct {
	SearchStyle   SearchStyle   `json:"searchStyle"`
	ResponseStyle ResponseStyle `json:"responseStyle"`
}

func DefaultStyles() StylePreferences {
	return StylePreferences{SearchStyle: SearchBalanced, ResponseStyle: ResponseConversational}
}

type SavedItem struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	AltText  string `json:"altText"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	SavedAt  int64  `json:"savedAt"` // unix millis
}

// KeywordState backs the manual keyword-editing surface.
type KeywordState struct {
	Keywords       []string `json:"keywords"`
	LastAIKeywords string   `json:"lastAiKeywords"`
	UserEdited     bool     `json:"userEdited"`
	Variations     []string `json:"variations"`
	VariationIndex int      `json:"variationIndex"`
}
