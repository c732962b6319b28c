package utils

import (
	"regexp"
	"strings"
)

// Generic catalog words that never help a search. Kept short on purpose.
var keywordStopWords = map[string]struct{}{
	"photo":    {},
	"photos":   {},
	"image":    {},
	"images":   {},
	"picture":  {},
	"pictures": {},
	"stock":    {},
	"royalty":  {},
	"free":     {},
	"download": {},
}

var keywordPhrases = []string{
	"black and white",
	"black & white",
	"high resolution",
	"low angle",
	"wide angle",
	"close up",
	"top view",
	"side view",
	"front view",
	"bird eye view",
	"golden hour",
	"blue hour",
	"depth of field",
	"shallow focus",
	"natural light",
	"artificial light",
	"soft light",
	"hard light",
	"warm tone",
	"cool tone",
	"vintage style",
	"modern style",
	"minimalist style",
}

var (
	phrasePatterns    = compilePhrasePatterns(keywordPhrases)
	keywordDelimiters = regexp.MustCompile(`[,;]+`)
)

type phrasePattern struct {
	phrase string
	re     *regexp.Regexp
}

func compilePhrasePatterns(phrases []string) []phrasePattern {
	patterns := make([]phrasePattern, 0, len(phrases))
	for _, p := range phrases {
		patterns = append(patterns, phrasePattern{
			phrase: p,
			re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`),
		})
	}
	return patterns
}

// ParseKeywords splits free text into ordered, deduplicated keyword tokens.
// Known phrases come first as single tokens, then the remaining words in
// input order, minus stop words.
func ParseKeywords(text string) []string {
	remaining := strings.ToLower(strings.TrimSpace(text))
	if remaining == "" {
		return []string{}
	}

	var tokens []string
	for _, p := range phrasePatterns {
		if p.re.MatchString(remaining) {
			tokens = append(tokens, p.phrase)
			remaining = p.re.ReplaceAllString(remaining, " ")
		}
	}

	for _, part := range keywordDelimiters.Split(remaining, -1) {
		for _, word := range strings.Fields(part) {
			if _, stop := keywordStopWords[word]; stop {
				continue
			}
			tokens = append(tokens, word)
		}
	}

	return MergeKeywords(tokens)
}

// FormatKeywords joins tokens for display and for search terms.
func FormatKeywords(tokens []string) string {
	return strings.Join(tokens, ", ")
}

// MergeKeywords concatenates lists, keeping the first occurrence of each token.
func MergeKeywords(lists ...[]string) []string {
	seen := make(map[string]struct{})
	merged := []string{}
	for _, list := range lists {
		for _, token := range list {
			if strings.TrimSpace(token) == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			merged = append(merged, token)
		}
	}
	return merged
}
