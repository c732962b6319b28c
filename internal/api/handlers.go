package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"gwi.com/photo-search-assistant/internal/auth"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/core"
	"gwi.com/photo-search-assistant/internal/store"
)

type ctxKey string

const sessionIDKey ctxKey = "sessionID"

// SessionStore is the slice of the database the API needs for session lifecycle.
type SessionStore interface {
	CreateSession() (*store.Session, error)
	GetSession(sessionID string) (*store.Session, error)
	ClearSession(sessionID string) error
}

type Services struct {
	Sessions   SessionStore
	Prefs      *store.PreferenceStore
	Chat       *core.ChatService
	Composer   *core.ComposeService
	Search     *core.SearchService
	Randomizer *core.RandomizeService
	Keywords   *core.KeywordService
}

type APIHandler struct {
	sessions   SessionStore
	prefs      *store.PreferenceStore
	chat       *core.ChatService
	composer   *core.ComposeService
	search     *core.SearchService
	randomizer *core.RandomizeService
	keywords   *core.KeywordService
}

func NewAPIHandler(s Services) *APIHandler {
	return &APIHandler{
		sessions:   s.Sessions,
		prefs:      s.Prefs,
		chat:       s.Chat,
		composer:   s.Composer,
		search:     s.Search,
		randomizer: s.Randomizer,
		keywords:   s.Keywords,
	}
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		config.Logger.WithError(err).Warn("Failed to encode response")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *APIHandler) SessionAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		id, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		session, err := h.sessions.GetSession(id)
		if err != nil {
			config.Logger.WithError(err).WithField("session_id", id).Error("Session lookup failed")
			http.Error(w, "Failed to process session", http.StatusInternalServerError)
			return
		}
		if session == nil {
			http.Error(w, "Session not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, session.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type CreateSessionResponse struct {
	*store.Session
	Token string `json:"token"`
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.CreateSession()
	if err != nil {
		config.Logger.WithError(err).Error("Error creating session")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateJWT(session.ID)
	if err != nil {
		config.Logger.WithError(err).WithField("session_id", session.ID).Error("Error generating session token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{Session: session, Token: token})
}

func (h *APIHandler) ClearSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := h.sessions.ClearSession(id); err != nil {
		config.Logger.WithFields(logrus.Fields{"session_id": id, "error": err}).Error("Error clearing session")
		http.Error(w, "Failed to clear session", http.StatusInternalServerError)
		return
	}
	// Reseeds the welcome message and supersedes any turn still in flight.
	if _, err := h.chat.ClearConversation(id); err != nil {
		config.Logger.WithError(err).Warn("Failed to reset conversation after session clear")
	}
	w.WriteHeader(http.StatusNoContent)
}
