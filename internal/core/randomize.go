package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gwi.com/photo-search-assistant/internal/config"
)

const (
	maxVariations         = 3
	maxFallbackVariations = 2
)

const randomizeSystemPrompt = `You are a creative keyword generator for photo search. Given a set of keywords, create 1-3 alternative combinations that:

1. Maintain core intent - don't change the main subject dramatically
2. Add creative variety through:
   - Synonym substitution (e.g., "beautiful" -> "stunning", "gorgeous")
   - Style adjustments (e.g., "modern" -> "contemporary", "minimalist")
   - Mood variations (e.g., "bright" -> "vibrant", "cheerful")
   - Perspective changes (e.g., "close-up" -> "macro", "detailed")
   - Creative modifiers (e.g., adding "artistic", "professional", "candid")
3. Keep practical for photo search - all terms should be relevant for finding actual photos
4. Vary keyword order for different search emphasis
5. Maintain similar keyword count (plus or minus 1-2 keywords from original)

Examples:
- "dog cute outside" -> ["adorable puppy outdoors", "playful dog nature", "cute canine outdoor portrait"]
- "sunset beach waves" -> ["golden hour coastline surf", "dramatic ocean sunset", "beach waves evening light"]
- "business meeting professional" -> ["corporate conference modern", "professional team collaboration", "business discussion contemporary"]`

type substitution struct {
	pattern *regexp.Regexp
	repl    string
}

var fallbackSubstitutions = []substitution{
	{regexp.MustCompile(`(?i)\b(cute|beautiful|nice)\b`), "stunning"},
	{regexp.MustCompile(`(?i)\b(photo|picture|image)\b`), "shot"},
}

type RandomizeService struct {
	llm VariationGenerator
}

func NewRandomizeService(llm VariationGenerator) *RandomizeService {
	return &RandomizeService{llm: llm}
}

// Randomize returns 1-3 variations of keywords. Model failures fall back to
// fixed substitutions and finally to keywords itself.
func (s *RandomizeService) Randomize(ctx context.Context, keywords string) []string {
	if strings.TrimSpace(keywords) == "" {
		return []string{keywords}
	}

	prompt := fmt.Sprintf(`Generate 1-3 creative variations of these keywords: %q

Each variation should maintain the core search intent while adding creative variety through synonyms, style adjustments, or perspective changes. Keep them practical for photo search.`, keywords)

	variations, err := s.llm.GenerateVariations(ctx, randomizeSystemPrompt, prompt)
	if err == nil {
		return variations
	}
	if !errors.Is(err, ErrNoModel) {
		config.Logger.WithError(err).WithField("keywords", keywords).Warn("Keyword randomization failed, using fallback variations")
	}
	return FallbackVariations(keywords)
}

// FallbackVariations applies the fixed substitutions, dropping no-ops.
func FallbackVariations(keywords string) []string {
	candidates := make([]string, 0, len(fallbackSubstitutions)+1)
	for _, sub := range fallbackSubstitutions {
		candidates = append(candidates, sub.pattern.ReplaceAllString(keywords, sub.repl))
	}
	candidates = append(candidates, "artistic "+keywords)

	var variations []string
	for _, c := range candidates {
		if c == keywords {
			continue
		}
		variations = append(variations, c)
		if len(variations) == maxFallbackVariations {
			break
		}
	}
	if len(variations) == 0 {
		return []string{keywords}
	}
	return variations
}
