package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/core"
	"gwi.com/photo-search-assistant/internal/store"
	"gwi.com/photo-search-assistant/internal/utils"
)

type ParseKeywordsRequest struct {
	Text string `json:"text"`
}

func (h *APIHandler) ParseKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	var req ParseKeywordsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tokens := utils.ParseKeywords(req.Text)
	writeJSON(w, http.StatusOK, map[string]any{
		"keywords":  tokens,
		"formatted": utils.FormatKeywords(tokens),
	})
}

type KeywordEditRequest struct {
	Text    string          `json:"text"`
	Filters store.FilterSet `json:"filters"`
}

// filtersFor falls back to the filters of the session's last search.
func (h *APIHandler) filtersFor(r *http.Request, filters store.FilterSet) store.FilterSet {
	if filters != nil {
		return filters
	}
	return h.chat.LastFilters(sessionID(r))
}

// decodeOptional tolerates an empty body, chunked or not, for endpoints whose
// payload is optional.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *APIHandler) GetKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.keywords.State(sessionID(r))
	if err != nil {
		config.Logger.WithError(err).Error("Error loading keywords")
		http.Error(w, "Failed to load keywords", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) AddKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	var req KeywordEditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Keyword text cannot be empty", http.StatusBadRequest)
		return
	}

	update, err := h.keywords.Add(r.Context(), sessionID(r), req.Text, h.filtersFor(r, req.Filters))
	if err != nil {
		config.Logger.WithError(err).Error("Error adding keywords")
		http.Error(w, "Failed to add keywords", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *APIHandler) RemoveKeywordHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid keyword index", http.StatusBadRequest)
		return
	}
	var req KeywordEditRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	update, err := h.keywords.Remove(r.Context(), sessionID(r), index, h.filtersFor(r, req.Filters))
	if err != nil {
		if errors.Is(err, core.ErrKeywordIndex) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		config.Logger.WithError(err).Error("Error removing keyword")
		http.Error(w, "Failed to remove keyword", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *APIHandler) RestoreKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.keywords.Restore(sessionID(r))
	if err != nil {
		config.Logger.WithError(err).Error("Error restoring keywords")
		http.Error(w, "Failed to restore keywords", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) RandomizeSessionKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	var req KeywordEditRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	update, err := h.keywords.Randomize(r.Context(), sessionID(r), h.filtersFor(r, req.Filters))
	if err != nil {
		config.Logger.WithError(err).Error("Error randomizing keywords")
		http.Error(w, "Failed to randomize keywords", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, update)
}
