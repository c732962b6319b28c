package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/store"
)

func (h *APIHandler) GetStylesHandler(w http.ResponseWriter, r *http.Request) {
	styles, err := h.prefs.Styles(sessionID(r))
	if err != nil {
		config.Logger.WithError(err).Error("Error loading style preferences")
		http.Error(w, "Failed to load style preferences", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, styles)
}

type UpdateStylesRequest struct {
	SearchStyle   *store.SearchStyle   `json:"searchStyle"`
	ResponseStyle *store.ResponseStyle `json:"responseStyle"`
}

func (h *APIHandler) UpdateStylesHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateStylesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SearchStyle != nil && !req.SearchStyle.Valid() {
		http.Error(w, "Invalid search style", http.StatusBadRequest)
		return
	}
	if req.ResponseStyle != nil && !req.ResponseStyle.Valid() {
		http.Error(w, "Invalid response style", http.StatusBadRequest)
		return
	}

	id := sessionID(r)
	if req.SearchStyle != nil {
		if err := h.prefs.SetSearchStyle(id, *req.SearchStyle); err != nil {
			config.Logger.WithError(err).Error("Error saving search style")
			http.Error(w, "Failed to save search style", http.StatusInternalServerError)
			return
		}
	}
	if req.ResponseStyle != nil {
		if err := h.prefs.SetResponseStyle(id, *req.ResponseStyle); err != nil {
			config.Logger.WithError(err).Error("Error saving response style")
			http.Error(w, "Failed to save response style", http.StatusInternalServerError)
			return
		}
	}
	h.GetStylesHandler(w, r)
}

func (h *APIHandler) GetProjectContextHandler(w http.ResponseWriter, r *http.Request) {
	text, err := h.prefs.ProjectContext(sessionID(r))
	if err != nil {
		config.Logger.WithError(err).Error("Error loading project context")
		http.Error(w, "Failed to load project context", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*string{"text": text})
}

// SetProjectContextHandler stores the context without starting a turn. Blank text clears it.
func (h *APIHandler) SetProjectContextHandler(w http.ResponseWriter, r *http.Request) {
	var req ProjectContextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validProjectContext(w, req.Text) {
		return
	}
	if err := h.prefs.SetProjectContext(sessionID(r), req.Text); err != nil {
		config.Logger.WithError(err).Error("Error saving project context")
		http.Error(w, "Failed to save project context", http.StatusInternalServerError)
		return
	}
	h.GetProjectContextHandler(w, r)
}

func (h *APIHandler) DeleteProjectContextHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.prefs.ClearProjectContext(sessionID(r)); err != nil {
		config.Logger.WithError(err).Error("Error clearing project context")
		http.Error(w, "Failed to clear project context", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListSavedItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.prefs.SavedItems(sessionID(r))
	if err != nil {
		config.Logger.WithError(err).Error("Error loading saved items")
		http.Error(w, "Failed to load saved items", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *APIHandler) SaveItemHandler(w http.ResponseWriter, r *http.Request) {
	var item store.SavedItem
	if !decodeBody(w, r, &item) {
		return
	}
	if strings.TrimSpace(item.ID) == "" {
		http.Error(w, "Item id is required", http.StatusBadRequest)
		return
	}
	items, err := h.prefs.SaveItem(sessionID(r), item)
	if err != nil {
		config.Logger.WithError(err).Error("Error saving item")
		http.Error(w, "Failed to save item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *APIHandler) RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	items, err := h.prefs.RemoveItem(sessionID(r), itemID)
	if err != nil {
		config.Logger.WithError(err).Error("Error removing saved item")
		http.Error(w, "Failed to remove item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
