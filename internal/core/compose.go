package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/store"
)

const (
	RecentWindowSize = 6 // messages rendered verbatim into the prompt
	MaxSuggestions   = 4

	fallbackResponseText = "I'll search for that now!"
)

var fallbackSuggestions = []string{"Try a different style", "Add more details", "Specify colors"}

type FallbackReason string

const (
	FallbackNone        FallbackReason = ""
	FallbackModelError  FallbackReason = "model_error"
	FallbackUnparsable  FallbackReason = "unparsable"
	FallbackEmptyOutput FallbackReason = "empty_output"
)

// Directive is the structured result of composing a conversation turn.
type Directive struct {
	SearchQuery  string          `json:"searchQuery"`
	ResponseText string          `json:"responseText"`
	Suggestions  []string        `json:"suggestions"`
	Filters      store.FilterSet `json:"filters"`
	Fallback     FallbackReason  `json:"fallback,omitempty"`
}

type ComposeRequest struct {
	// History is the transcript including the current user message.
	History        []store.Message
	CurrentText    string
	Styles         store.StylePreferences
	ProjectContext *string
}

// ComposeService turns a conversation into a search directive through one
// language-model call.
type ComposeService struct {
	llm TextGenerator
}

func NewComposeService(llm TextGenerator) *ComposeService {
	return &ComposeService{llm: llm}
}

var searchStyleRules = map[store.SearchStyle]string{
	store.SearchCreative: `- Focus on artistic and conceptual interpretations
- Use abstract and mood-based keywords
- Prioritize aesthetic and emotional qualities
- Include artistic styles and creative concepts`,
	store.SearchExact: `- Use literal and specific keywords from user input
- Focus on concrete objects and subjects
- Minimize interpretation and abstraction
- Stick closely to what was explicitly mentioned`,
	store.SearchBalanced: `- Balance literal keywords with creative interpretation
- Include both specific subjects and mood/style elements
- Consider context and implied meanings
- Provide comprehensive but focused search terms`,
}

var responseStyleRules = map[store.ResponseStyle]string{
	store.ResponseConversational: `- Use a friendly, casual tone with 1-2 paragraphs
- Include light suggestions and prompts for exploration
- Optional use of 1-2 emoji maximum
- End with a gentle next step or refinement suggestion`,
	store.ResponseInquisitive: `- Start with 1 intro sentence, then ask 2 targeted questions in bullet points
- Use a curious, exploratory tone to uncover possibilities
- End with an invitation to choose one direction
- Focus on clarifying user needs and sparking ideas`,
	store.ResponseDirect: `- Keep responses to 3 lines maximum
- No small talk or casual conversation
- No emoji usage
- End with a terse, clear next step
- Straight to the point with minimal commentary`,
	store.ResponseDetailed: `- Provide a summary followed by 3-5 key bullet points
- Include specific style, mood, and orientation ideas
- Thorough and descriptive with relevant context
- End with 1-2 precise next steps for refinement`,
}

const memoryRules = `CONVERSATIONAL MEMORY RULES:
- Handle follow-up requests like "more like the first one", "make it moodier", "similar but brighter"
- Reference previous subjects, styles, and constraints from conversation history
- When user says "like the first one" or "similar", use the first search query as base
- When user requests modifications (moodier, brighter, different style), apply changes to the most recent search
- Preserve established preferences unless explicitly overridden
- Use conversation context to understand ambiguous requests`

const outputRules = `Respond with a single JSON object containing exactly these fields:
1. "searchQuery": The optimized search keywords (string)
2. "response": Your reply to the user following the response style (string)
3. "suggestions": Array of 3-4 short follow-up suggestions (strings)
4. "filters": Object with "category", "subcategory", "orientation" and "resolution" (use "all" for no constraint)

IMPORTANT:
- Never use words like "inspirational", "based", "context", "project" in search queries
- When handling inspiration requests, extract concrete visual themes from the context
- Always end responses with a clear next step
- Never claim to create images - only help find photos
- Use conversation history to understand references to previous searches`

// RecentContext renders the last RecentWindowSize messages as role-tagged lines.
func RecentContext(history []store.Message) string {
	if len(history) <= 1 {
		return ""
	}
	recent := history
	if len(recent) > RecentWindowSize {
		recent = recent[len(recent)-RecentWindowSize:]
	}

	var b strings.Builder
	b.WriteString("RECENT CONVERSATION:\n")
	for _, m := range recent {
		switch m.Kind {
		case store.KindUser:
			fmt.Fprintf(&b, "User: %q\n", m.Text)
		case store.KindAssistant:
			fmt.Fprintf(&b, "AI: %q\n", m.Text)
		case store.KindSearchSummary:
			if m.Search != nil {
				fmt.Fprintf(&b, "Search: %q (%d results)\n", m.Search.Query, m.Search.TotalResults)
			}
		}
	}
	return b.String()
}

// BuildPrompts assembles the system and user prompts for a compose call.
func BuildPrompts(req ComposeRequest) (systemPrompt, userPrompt string) {
	searchStyle := req.Styles.SearchStyle
	if !searchStyle.Valid() {
		searchStyle = store.SearchBalanced
	}
	responseStyle := req.Styles.ResponseStyle
	if !responseStyle.Valid() {
		responseStyle = store.ResponseConversational
	}
	hasContext := req.ProjectContext != nil && strings.TrimSpace(*req.ProjectContext) != ""

	var sys strings.Builder
	sys.WriteString("You are an AI assistant that helps users find photos by converting their natural language requests into search queries and providing helpful responses.\n\n")

	if summary := SummarizeConversation(req.History); summary != "" {
		sys.WriteString(summary + "\n")
	}
	if recent := RecentContext(req.History); recent != "" {
		sys.WriteString(recent + "\n")
	}

	fmt.Fprintf(&sys, "SEARCH INTENT (%s):\n%s\n\n", strings.ToUpper(string(searchStyle)), searchStyleRules[searchStyle])
	fmt.Fprintf(&sys, "RESPONSE STYLE (%s):\n%s\n\n", strings.ToUpper(string(responseStyle)), responseStyleRules[responseStyle])

	sys.WriteString("CONTEXT HANDLING:\n")
	if hasContext {
		fmt.Fprintf(&sys, "Project Context: %q\n", *req.ProjectContext)
		sys.WriteString("- Use this context to inform search keywords when relevant\n")
		sys.WriteString("- When users ask for \"inspirational photos based on context\", extract visual themes from the context rather than using literal request words\n")
		sys.WriteString("- Focus on mood, style, subjects, and visual elements that would support this project\n\n")
	} else {
		sys.WriteString("- No project context provided\n\n")
	}

	sys.WriteString(memoryRules + "\n\n" + outputRules)

	var user strings.Builder
	fmt.Fprintf(&user, "User message: %q", req.CurrentText)

	for _, rule := range matchIntents(req.CurrentText, hasContext) {
		switch rule.target {
		case targetSystem:
			sys.WriteString("\n\n" + rule.instruction)
		case targetUser:
			user.WriteString("\n\n" + rule.instruction)
		}
	}
	user.WriteString("\n\nPlease provide a JSON response with searchQuery, response, suggestions, and filters.")

	return sys.String(), user.String()
}

// Compose never fails: any model or parse problem yields the literal-search
// fallback directive for req.CurrentText.
func (s *ComposeService) Compose(ctx context.Context, req ComposeRequest) Directive {
	systemPrompt, userPrompt := BuildPrompts(req)
	logger := config.Logger.WithFields(logrus.Fields{
		"search_style":   req.Styles.SearchStyle,
		"response_style": req.Styles.ResponseStyle,
	})

	text, err := s.llm.GenerateText(ctx, systemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, ErrNoModel) {
			logger.Debug("No language model configured, composing literal search")
		} else {
			logger.WithError(err).Warn("Compose model call failed, composing literal search")
		}
		return fallbackDirective(req.CurrentText, FallbackModelError)
	}

	directive, reason := parseDirective(text, req.CurrentText)
	if reason != FallbackNone {
		logger.WithField("reason", reason).Warn("Could not parse compose output, composing literal search")
	}
	return directive
}

func fallbackDirective(currentText string, reason FallbackReason) Directive {
	suggestions := make([]string, len(fallbackSuggestions))
	copy(suggestions, fallbackSuggestions)
	return Directive{
		SearchQuery:  currentText,
		ResponseText: fallbackResponseText,
		Suggestions:  suggestions,
		Filters:      store.DefaultFilters(),
		Fallback:     reason,
	}
}

type rawDirective struct {
	SearchQuery  string         `json:"searchQuery"`
	Response     string         `json:"response"`
	ResponseText string         `json:"responseText"`
	Suggestions  []any          `json:"suggestions"`
	Filters      map[string]any `json:"filters"`
}

// parseDirective reads the first top-level JSON object out of raw model text.
func parseDirective(text, currentText string) (Directive, FallbackReason) {
	if strings.TrimSpace(text) == "" {
		return fallbackDirective(currentText, FallbackEmptyOutput), FallbackEmptyOutput
	}
	obj, ok := extractJSONObject(text)
	if !ok {
		return fallbackDirective(currentText, FallbackUnparsable), FallbackUnparsable
	}

	var raw rawDirective
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return fallbackDirective(currentText, FallbackUnparsable), FallbackUnparsable
	}

	d := Directive{
		SearchQuery:  strings.TrimSpace(raw.SearchQuery),
		ResponseText: strings.TrimSpace(raw.Response),
		Suggestions:  []string{},
		Filters:      store.DefaultFilters(),
	}
	if d.SearchQuery == "" {
		d.SearchQuery = currentText
	}
	if d.ResponseText == "" {
		d.ResponseText = strings.TrimSpace(raw.ResponseText)
	}
	if d.ResponseText == "" {
		d.ResponseText = fallbackResponseText
	}

	for _, s := range raw.Suggestions {
		str, ok := s.(string)
		if !ok || strings.TrimSpace(str) == "" {
			continue
		}
		d.Suggestions = append(d.Suggestions, strings.TrimSpace(str))
		if len(d.Suggestions) == MaxSuggestions {
			break
		}
	}

	for k, v := range raw.Filters {
		var value string
		switch tv := v.(type) {
		case nil:
			continue
		case string:
			value = strings.TrimSpace(tv)
		default:
			value = fmt.Sprint(tv)
		}
		if value == "" {
			continue
		}
		d.Filters[store.CanonicalFilterKey(k)] = value
	}
	return d, FallbackNone
}

// extractJSONObject returns the first balanced top-level {...} in text that
// is valid JSON, ignoring braces inside JSON strings.
func extractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start != -1; {
		end, ok := matchingBrace(text, start)
		if !ok {
			return "", false // unbalanced, e.g. truncated output
		}
		if candidate := text[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate, true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			return "", false
		}
		start += next + 1
	}
	return "", false
}

func matchingBrace(text string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
