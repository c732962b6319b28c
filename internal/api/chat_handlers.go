package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/core"
	"gwi.com/photo-search-assistant/internal/store"
	"gwi.com/photo-search-assistant/internal/utils"
)

const MaxProjectContextLength = 500

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chat.Conversation(sessionID(r))
	if err != nil {
		config.Logger.WithError(err).Error("Error loading conversation")
		http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *APIHandler) ClearConversationHandler(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chat.ClearConversation(sessionID(r))
	if err != nil {
		config.Logger.WithError(err).Error("Error clearing conversation")
		http.Error(w, "Failed to clear conversation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	id := sessionID(r)
	result, err := h.chat.PostMessage(r.Context(), id, req.Content)
	if err != nil {
		config.Logger.WithFields(logrus.Fields{"session_id": id, "error": err}).Error("Error posting message")
		http.Error(w, "Failed to post message", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type RevisitRequest struct {
	Page int `json:"page"`
}

func (h *APIHandler) RevisitSearchHandler(w http.ResponseWriter, r *http.Request) {
	req := RevisitRequest{Page: 1}
	if !decodeOptional(w, r, &req) {
		return
	}

	last, resp, err := h.chat.RevisitLastSearch(r.Context(), sessionID(r), req.Page)
	if err != nil {
		if errors.Is(err, core.ErrNoLastSearch) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		config.Logger.WithError(err).Error("Error revisiting search")
		http.Error(w, "Failed to revisit search", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, searchResponseBody(last.Query, last.Filters, resp))
}

type ProjectContextRequest struct {
	Text string `json:"text"`
}

func validProjectContext(w http.ResponseWriter, text string) bool {
	if len([]rune(text)) > MaxProjectContextLength {
		http.Error(w, "Project context is too long", http.StatusBadRequest)
		return false
	}
	return true
}

// ApplyProjectContextHandler saves the context and runs an inspiration turn.
func (h *APIHandler) ApplyProjectContextHandler(w http.ResponseWriter, r *http.Request) {
	var req ProjectContextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Project context cannot be empty", http.StatusBadRequest)
		return
	}
	if !validProjectContext(w, req.Text) {
		return
	}

	result, err := h.chat.ApplyProjectContext(r.Context(), sessionID(r), req.Text)
	if err != nil {
		config.Logger.WithError(err).Error("Error applying project context")
		http.Error(w, "Failed to apply project context", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) ClearConversationContextHandler(w http.ResponseWriter, r *http.Request) {
	msg, err := h.chat.ClearProjectContext(sessionID(r))
	if err != nil {
		config.Logger.WithError(err).Error("Error clearing project context")
		http.Error(w, "Failed to clear project context", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

type ComposeRequest struct {
	Messages      []store.Message        `json:"messages"`
	Context       *ProjectContextRequest `json:"context"`
	SearchStyle   store.SearchStyle      `json:"searchStyle"`
	ResponseStyle store.ResponseStyle    `json:"responseStyle"`
}

// ComposeHandler composes a directive for an arbitrary transcript without
// touching the session's conversation.
func (h *APIHandler) ComposeHandler(w http.ResponseWriter, r *http.Request) {
	var req ComposeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	styles, err := h.prefs.Styles(sessionID(r))
	if err != nil {
		styles = store.DefaultStyles()
	}
	if req.SearchStyle != "" {
		if !req.SearchStyle.Valid() {
			http.Error(w, "Invalid search style", http.StatusBadRequest)
			return
		}
		styles.SearchStyle = req.SearchStyle
	}
	if req.ResponseStyle != "" {
		if !req.ResponseStyle.Valid() {
			http.Error(w, "Invalid response style", http.StatusBadRequest)
			return
		}
		styles.ResponseStyle = req.ResponseStyle
	}

	var current string
	if n := len(req.Messages); n > 0 {
		current = req.Messages[n-1].Text
	}
	var projectContext *string
	if req.Context != nil && strings.TrimSpace(req.Context.Text) != "" {
		projectContext = &req.Context.Text
	}

	directive := h.composer.Compose(r.Context(), core.ComposeRequest{
		History:        req.Messages,
		CurrentText:    current,
		Styles:         styles,
		ProjectContext: projectContext,
	})
	writeJSON(w, http.StatusOK, directive)
}

type SearchRequest struct {
	Query   string          `json:"query"`
	Filters store.FilterSet `json:"filters"`
	Page    int             `json:"page"`
}

type SearchResponseBody struct {
	core.SearchResponse
	Query   string          `json:"query"`
	Filters store.FilterSet `json:"filters"`
}

func searchResponseBody(query string, filters store.FilterSet, resp core.SearchResponse) SearchResponseBody {
	return SearchResponseBody{SearchResponse: resp, Query: query, Filters: filters}
}

func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Filters == nil {
		req.Filters = store.DefaultFilters()
	}
	resp := h.search.Search(r.Context(), req.Query, req.Filters, req.Page)
	writeJSON(w, http.StatusOK, searchResponseBody(req.Query, req.Filters, resp))
}

type RandomizeRequest struct {
	Keywords string `json:"keywords"`
}

func (h *APIHandler) RandomizeKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	var req RandomizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Keywords) == "" {
		http.Error(w, "Keywords string is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"variations":       h.randomizer.Randomize(r.Context(), req.Keywords),
		"originalKeywords": req.Keywords,
	})
}

type DetectFiltersRequest struct {
	Query string `json:"query"`
}

func (h *APIHandler) DetectFiltersHandler(w http.ResponseWriter, r *http.Request) {
	var req DetectFiltersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"filters": utils.DetectFilters(req.Query)})
}
