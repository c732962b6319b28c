package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/sessions", apiHandler.CreateSessionHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Session-scoped routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.SessionAuthMiddleware)

			r.Delete("/session", apiHandler.ClearSessionHandler)

			// Conversation
			r.Get("/conversation", apiHandler.GetConversationHandler)
			r.Delete("/conversation", apiHandler.ClearConversationHandler)
			r.Post("/conversation/messages", apiHandler.PostMessageHandler)
			r.Post("/conversation/revisit", apiHandler.RevisitSearchHandler)
			r.Put("/conversation/project-context", apiHandler.ApplyProjectContextHandler)
			r.Delete("/conversation/project-context", apiHandler.ClearConversationContextHandler)

			// Stateless pipeline stages
			r.Post("/compose", apiHandler.ComposeHandler)
			r.Post("/search", apiHandler.SearchHandler)
			r.Post("/randomize-keywords", apiHandler.RandomizeKeywordsHandler)
			r.Post("/filters/detect", apiHandler.DetectFiltersHandler)
			r.Post("/keywords/parse", apiHandler.ParseKeywordsHandler)

			// Preferences
			r.Get("/preferences/styles", apiHandler.GetStylesHandler)
			r.Put("/preferences/styles", apiHandler.UpdateStylesHandler)
			r.Get("/preferences/project-context", apiHandler.GetProjectContextHandler)
			r.Put("/preferences/project-context", apiHandler.SetProjectContextHandler)
			r.Delete("/preferences/project-context", apiHandler.DeleteProjectContextHandler)
			r.Get("/saved-items", apiHandler.ListSavedItemsHandler)
			r.Post("/saved-items", apiHandler.SaveItemHandler)
			r.Delete("/saved-items/{itemID}", apiHandler.RemoveItemHandler)

			// Keyword surface
			r.Get("/keywords", apiHandler.GetKeywordsHandler)
			r.Post("/keywords", apiHandler.AddKeywordsHandler)
			r.Delete("/keywords/{index}", apiHandler.RemoveKeywordHandler)
			r.Post("/keywords/restore", apiHandler.RestoreKeywordsHandler)
			r.Post("/keywords/randomize", apiHandler.RandomizeSessionKeywordsHandler)
		})
	})

	return r
}
