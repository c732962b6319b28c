package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/store"
	"gwi.com/photo-search-assistant/internal/utils"
)

const (
	composeFailureText      = "Sorry, I had trouble processing that. Let me search for what you mentioned anyway!"
	contextSavedText        = "Context saved! Let me show you some inspirations based on your project."
	contextClearedText      = "Context cleared. I'll now search without any project-specific bias."
	inspirationRequestText  = "Show me some inspirational photos based on my project context"
	inspirationFallbackText = "Here are some inspirational photos based on your project context!"
	inspirationFallbackTerm = "creative inspiration"
)

var ErrNoLastSearch = errors.New("no previous search in this conversation")

// TurnResult is everything one conversational turn produced.
type TurnResult struct {
	UserMessage     *store.Message         `json:"userMessage,omitempty"`
	Messages        []store.Message        `json:"messages"`
	Directive       Directive              `json:"directive"`
	DetectedFilters []utils.DetectedFilter `json:"detectedFilters"`
	Search          SearchResponse         `json:"search"`
	Superseded      bool                   `json:"superseded"`
}

type ChatService struct {
	conversations *store.ConversationStore
	prefs         *store.PreferenceStore
	composer      *ComposeService
	search        *SearchService
	keywords      *KeywordService
	minThinking   time.Duration

	genMu       sync.Mutex
	generations map[string]uint64
}

func NewChatService(conversations *store.ConversationStore, prefs *store.PreferenceStore, composer *ComposeService, search *SearchService, keywords *KeywordService, minThinking time.Duration) *ChatService {
	return &ChatService{
		conversations: conversations,
		prefs:         prefs,
		composer:      composer,
		search:        search,
		keywords:      keywords,
		minThinking:   minThinking,
		generations:   make(map[string]uint64),
	}
}

func (s *ChatService) Conversation(sessionID string) (*store.Conversation, error) {
	return s.conversations.Load(sessionID)
}

func (s *ChatService) ClearConversation(sessionID string) (*store.Conversation, error) {
	s.nextGeneration(sessionID) // anything in flight is now stale
	return s.conversations.Clear(sessionID)
}

// LastFilters returns the filters of the last search, or the defaults.
func (s *ChatService) LastFilters(sessionID string) store.FilterSet {
	conv, err := s.conversations.Load(sessionID)
	if err != nil || conv.LastSearch == nil || conv.LastSearch.Filters == nil {
		return store.DefaultFilters()
	}
	return conv.LastSearch.Filters.Clone()
}

func (s *ChatService) nextGeneration(sessionID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[sessionID]++
	return s.generations[sessionID]
}

func (s *ChatService) isCurrent(sessionID string, gen uint64) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[sessionID] == gen
}

// PostMessage runs one turn: store the user message, compose a directive,
// search, and record the thinking, reply and search-summary messages.
func (s *ChatService) PostMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	gen := s.nextGeneration(sessionID)
	start := time.Now()

	stored, err := s.conversations.Append(sessionID, store.Message{Kind: store.KindUser, Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}
	userMsg := stored[0]

	conv, err := s.conversations.Load(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	result, err := s.runTurn(ctx, turnInput{
		sessionID:      sessionID,
		gen:            gen,
		start:          start,
		history:        conv.Messages,
		requestText:    text,
		projectContext: s.projectContext(sessionID),
	})
	if err != nil {
		return nil, err
	}
	result.UserMessage = &userMsg
	return result, nil
}

// ApplyProjectContext saves the context and immediately searches for
// inspiration derived from it.
func (s *ChatService) ApplyProjectContext(ctx context.Context, sessionID, contextText string) (*TurnResult, error) {
	gen := s.nextGeneration(sessionID)
	start := time.Now()

	if err := s.prefs.SetProjectContext(sessionID, contextText); err != nil {
		return nil, fmt.Errorf("failed to save project context: %w", err)
	}
	confirmation, err := s.conversations.Append(sessionID, store.Message{Kind: store.KindAssistant, Text: contextSavedText})
	if err != nil {
		return nil, fmt.Errorf("failed to store confirmation message: %w", err)
	}

	conv, err := s.conversations.Load(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	// The inspiration request is composed but never stored.
	history := append(conv.Messages, store.Message{Kind: store.KindUser, Text: inspirationRequestText, CreatedAt: time.Now()})

	result, err := s.runTurn(ctx, turnInput{
		sessionID:      sessionID,
		gen:            gen,
		start:          start,
		history:        history,
		requestText:    inspirationRequestText,
		projectContext: &contextText,
		inspiration:    true,
	})
	if err != nil {
		return nil, err
	}
	result.Messages = append(confirmation, result.Messages...)
	return result, nil
}

func (s *ChatService) ClearProjectContext(sessionID string) (*store.Message, error) {
	if err := s.prefs.ClearProjectContext(sessionID); err != nil {
		return nil, fmt.Errorf("failed to clear project context: %w", err)
	}
	stored, err := s.conversations.Append(sessionID, store.Message{Kind: store.KindAssistant, Text: contextClearedText})
	if err != nil {
		return nil, fmt.Errorf("failed to store confirmation message: %w", err)
	}
	return &stored[0], nil
}

// RevisitLastSearch re-runs the last search snapshot without touching the transcript.
func (s *ChatService) RevisitLastSearch(ctx context.Context, sessionID string, page int) (*store.SearchPayload, SearchResponse, error) {
	conv, err := s.conversations.Load(sessionID)
	if err != nil {
		return nil, SearchResponse{}, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv.LastSearch == nil {
		return nil, SearchResponse{}, ErrNoLastSearch
	}
	resp := s.search.Search(ctx, conv.LastSearch.Query, conv.LastSearch.Filters, page)
	return conv.LastSearch, resp, nil
}

func (s *ChatService) projectContext(sessionID string) *string {
	text, err := s.prefs.ProjectContext(sessionID)
	if err != nil {
		config.Logger.WithError(err).WithField("session_id", sessionID).Warn("Could not read project context, continuing without it")
		return nil
	}
	return text
}

func (s *ChatService) styles(sessionID string) store.StylePreferences {
	styles, err := s.prefs.Styles(sessionID)
	if err != nil {
		config.Logger.WithError(err).WithField("session_id", sessionID).Warn("Could not read style preferences, using defaults")
		return store.DefaultStyles()
	}
	return styles
}

type turnInput struct {
	sessionID      string
	gen            uint64
	start          time.Time
	history        []store.Message
	requestText    string
	projectContext *string
	inspiration    bool
}

func (s *ChatService) runTurn(ctx context.Context, in turnInput) (*TurnResult, error) {
	logger := config.Logger.WithFields(logrus.Fields{
		"session_id": in.sessionID,
		"generation": in.gen,
	})

	directive := s.composer.Compose(ctx, ComposeRequest{
		History:        in.history,
		CurrentText:    in.requestText,
		Styles:         s.styles(in.sessionID),
		ProjectContext: in.projectContext,
	})
	if in.inspiration && directive.Fallback != FallbackNone {
		directive.SearchQuery = inspirationFallbackTerm
		directive.ResponseText = inspirationFallbackText
	} else if directive.Fallback == FallbackModelError {
		directive.ResponseText = composeFailureText
	}

	detected := utils.DetectFilters(directive.SearchQuery)
	directive.Filters = MergeDetectedFilters(directive.Filters, detected)

	searchResp := s.search.Search(ctx, directive.SearchQuery, directive.Filters, 1)
	s.waitMinimum(ctx, in.start)

	payload := &store.SearchPayload{
		Query:        directive.SearchQuery,
		Results:      searchResp.Results,
		TotalResults: searchResp.Total,
		Filters:      directive.Filters,
	}
	thinking := store.Message{
		Kind:     store.KindThinking,
		Thinking: buildThinking(in, directive.SearchQuery),
	}
	reply := store.Message{Kind: store.KindAssistant, Text: directive.ResponseText}

	result := &TurnResult{
		Directive:       directive,
		DetectedFilters: detected,
		Search:          searchResp,
	}
	err := s.conversations.Update(in.sessionID, func(conv *store.Conversation) error {
		if !s.isCurrent(in.sessionID, in.gen) {
			result.Superseded = true
			return store.ErrSkipSave
		}
		msgs := []store.Message{thinking, reply}
		if len(searchResp.Results) > 0 {
			msgs = append(msgs, store.Message{Kind: store.KindSearchSummary, Search: payload})
		}
		result.Messages = conv.Add(msgs...)
		conv.LastSearch = payload
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store turn: %w", err)
	}

	if result.Superseded {
		logger.Info("Turn superseded by a newer message, discarding its results")
		result.Messages = []store.Message{}
		return result, nil
	}

	if _, err := s.keywords.SyncFromAI(in.sessionID, directive.SearchQuery); err != nil {
		logger.WithError(err).Warn("Could not sync keyword state")
	}

	logger.WithFields(logrus.Fields{
		"query":    directive.SearchQuery,
		"fallback": directive.Fallback,
		"results":  len(searchResp.Results),
	}).Info("Turn complete")
	return result, nil
}

// waitMinimum pads a fast turn up to the configured floor. It never waits
// longer than the floor and returns early when ctx is done.
func (s *ChatService) waitMinimum(ctx context.Context, start time.Time) {
	remaining := s.minThinking - time.Since(start)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func buildThinking(in turnInput, query string) *store.ThinkingPayload {
	seconds := int(math.Round(time.Since(in.start).Seconds()))
	payload := &store.ThinkingPayload{DurationLabel: fmt.Sprintf("%ds", seconds)}

	if in.inspiration && in.projectContext != nil {
		payload.Steps = []store.ThinkingStep{
			{Title: "Analyze project context", Lines: []string{fmt.Sprintf("Extracting visual themes from: %q", *in.projectContext)}},
			{Title: "Generate inspiration keywords", Lines: []string{fmt.Sprintf("→ '%s'", query)}},
		}
		return payload
	}

	payload.Steps = []store.ThinkingStep{
		{Title: "Extract key creative themes", Lines: []string{fmt.Sprintf("%q", query)}},
		{Title: "Map keywords to asset types", Lines: []string{"• Photos → Focus on visual composition and subject matter"}},
		{Title: "Construct tailored search strings", Lines: []string{fmt.Sprintf("→ '%s'", query)}},
	}
	return payload
}

// MergeDetectedFilters fills detected pre-selections into filters. Values
// already set on filters win.
func MergeDetectedFilters(filters store.FilterSet, detected []utils.DetectedFilter) store.FilterSet {
	merged := store.DefaultFilters()
	for k, v := range filters {
		merged[store.CanonicalFilterKey(k)] = v
	}
	for _, d := range detected {
		key := string(d.Kind)
		if d.PreSelected == "" || merged.Active(key) {
			continue
		}
		merged[key] = d.PreSelected
	}
	return merged
}
