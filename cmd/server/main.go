package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gwi.com/photo-search-assistant/internal/api"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/core"
	"gwi.com/photo-search-assistant/internal/store"
)

func main() {
	// Load configuration and logger
	config.LoadConfig()
	log := config.Logger

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM service
	llmService := core.NewLLMService()
	defer llmService.Close()

	conversations := store.NewConversationStore(dbStore)
	prefs := store.NewPreferenceStore(dbStore)

	composer := core.NewComposeService(llmService)
	searchService := core.NewSearchService(core.SearchConfigFromApp())
	randomizer := core.NewRandomizeService(llmService)
	keywordService := core.NewKeywordService(prefs, searchService, randomizer)

	minThinking := time.Duration(config.AppConfig.MinThinkingMillis) * time.Millisecond
	chatService := core.NewChatService(conversations, prefs, composer, searchService, keywordService, minThinking)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(api.Services{
		Sessions:   dbStore,
		Prefs:      prefs,
		Chat:       chatService,
		Composer:   composer,
		Search:     searchService,
		Randomizer: randomizer,
		Keywords:   keywordService,
	})
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // model call plus catalog search
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exiting gracefully")
}
