package utils

import "strings"

type FilterKind string

const (
	FilterDogBreed FilterKind = "dogBreed"
	FilterStyle    FilterKind = "style"
	FilterMood     FilterKind = "mood"
	FilterSeason   FilterKind = "season"
)

// DetectedFilter is a contextual facet inferred from free text. PreSelected is
// empty when only a generic mention matched; the UI then shows "All".
type DetectedFilter struct {
	Kind        FilterKind `json:"kind"`
	Label       string     `json:"label"`
	Options     []string   `json:"options"`
	PreSelected string     `json:"preSelected,omitempty"`
}

type triggerValue struct {
	keyword string
	option  string
}

type filterTriggers struct {
	kind     FilterKind
	label    string
	options  []string
	explicit []string
	// Ordered; the first keyword found in the query wins.
	values []triggerValue
}

var filterTable = []filterTriggers{
	{
		kind:  FilterDogBreed,
		label: "Dog Breed",
		options: []string{
			"Labrador Retriever", "Golden Retriever", "German Shepherd", "Poodle", "Bulldog",
			"Beagle", "Husky", "Dachshund", "Chihuahua", "Mixed Breed",
		},
		explicit: []string{"dog", "dogs", "canine", "puppy", "puppies", "breed"},
		values: []triggerValue{
			{"labrador", "Labrador Retriever"},
			{"lab", "Labrador Retriever"},
			{"golden retriever", "Golden Retriever"},
			{"golden", "Golden Retriever"},
			{"german shepherd", "German Shepherd"},
			{"shepherd", "German Shepherd"},
			{"poodle", "Poodle"},
			{"bulldog", "Bulldog"},
			{"beagle", "Beagle"},
			{"husky", "Husky"},
			{"dachshund", "Dachshund"},
			{"wiener dog", "Dachshund"},
			{"chihuahua", "Chihuahua"},
			{"mixed", "Mixed Breed"},
			{"mutt", "Mixed Breed"},
		},
	},
	{
		kind:  FilterStyle,
		label: "Style",
		options: []string{
			"Cinematic", "Minimal", "Vintage", "Retro", "Modern",
			"Artistic", "Abstract", "Realistic", "High Contrast", "Pastel",
		},
		explicit: []string{"style", "vibe", "aesthetic", "look"},
		values: []triggerValue{
			{"cinematic", "Cinematic"},
			{"minimal", "Minimal"},
			{"minimalist", "Minimal"},
			{"vintage", "Vintage"},
			{"retro", "Retro"},
			{"modern", "Modern"},
			{"contemporary", "Modern"},
			{"artistic", "Artistic"},
			{"abstract", "Abstract"},
			{"realistic", "Realistic"},
			{"high contrast", "High Contrast"},
			{"pastel", "Pastel"},
		},
	},
	{
		kind:  FilterMood,
		label: "Mood",
		options: []string{
			"Happy", "Playful", "Calm", "Energetic", "Romantic",
			"Serious", "Inspired", "Moody", "Excited", "Relaxed",
		},
		explicit: []string{"mood", "feeling", "emotion"},
		values: []triggerValue{
			{"happy", "Happy"},
			{"joyful", "Happy"},
			{"playful", "Playful"},
			{"fun", "Playful"},
			{"calm", "Calm"},
			{"peaceful", "Calm"},
			{"serene", "Calm"},
			{"energetic", "Energetic"},
			{"dynamic", "Energetic"},
			{"romantic", "Romantic"},
			{"love", "Romantic"},
			{"serious", "Serious"},
			{"professional", "Serious"},
			{"inspired", "Inspired"},
			{"creative", "Inspired"},
			{"moody", "Moody"},
			{"dramatic", "Moody"},
			{"excited", "Excited"},
			{"enthusiastic", "Excited"},
			{"relaxed", "Relaxed"},
			{"chill", "Relaxed"},
			{"angry", "Serious"},
			{"sad", "Moody"},
		},
	},
	{
		kind:  FilterSeason,
		label: "Season / Occasion",
		options: []string{
			"Summer", "Winter", "Spring", "Autumn / Fall", "Christmas",
			"Halloween", "Easter", "Valentine's Day", "New Year", "Thanksgiving",
		},
		explicit: []string{"season", "time", "occasion", "holiday"},
		values: []triggerValue{
			{"summer", "Summer"},
			{"beach", "Summer"},
			{"sunny", "Summer"},
			{"winter", "Winter"},
			{"snow", "Winter"},
			{"snowy", "Winter"},
			{"cold", "Winter"},
			{"spring", "Spring"},
			{"bloom", "Spring"},
			{"flowers", "Spring"},
			{"autumn", "Autumn / Fall"},
			{"fall", "Autumn / Fall"},
			{"leaves", "Autumn / Fall"},
			{"christmas", "Christmas"},
			{"xmas", "Christmas"},
			{"santa", "Christmas"},
			{"halloween", "Halloween"},
			{"spooky", "Halloween"},
			{"pumpkin", "Halloween"},
			{"easter", "Easter"},
			{"bunny", "Easter"},
			{"valentine", "Valentine's Day"},
			{"valentines", "Valentine's Day"},
			{"love", "Valentine's Day"},
			{"new year", "New Year"},
			{"thanksgiving", "Thanksgiving"},
			{"turkey", "Thanksgiving"},
		},
	},
}

// DetectFilters infers contextual filters from a free-text query. Matching is
// case-insensitive substring matching; within a kind the first table entry
// found wins. An unmatched query yields an empty slice.
func DetectFilters(query string) []DetectedFilter {
	detected := []DetectedFilter{}
	lowerQuery := strings.ToLower(query)
	if strings.TrimSpace(lowerQuery) == "" {
		return detected
	}

	for _, triggers := range filterTable {
		mentioned := false
		for _, keyword := range triggers.explicit {
			if strings.Contains(lowerQuery, keyword) {
				mentioned = true
				break
			}
		}

		var match string
		for _, v := range triggers.values {
			if strings.Contains(lowerQuery, v.keyword) {
				match = v.option
				break
			}
		}

		if mentioned || match != "" {
			options := make([]string, len(triggers.options))
			copy(options, triggers.options)
			detected = append(detected, DetectedFilter{
				Kind:        triggers.kind,
				Label:       triggers.label,
				Options:     options,
				PreSelected: match,
			})
		}
	}
	return detected
}
