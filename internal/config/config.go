package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string
	SessionTTL   int // hours

	// External catalog. An empty endpoint means placeholder results only.
	CatalogEndpoint      string
	CatalogClientID      string
	CatalogClientSecret  string
	CatalogAuthUser      string
	CatalogAuthPassword  string
	SearchTimeoutSeconds int
	MinThinkingMillis    int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		Logger.Info("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		DatabaseURL:          getEnv("DATABASE_URL", "photo_search.db"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		SessionTTL:           getEnvAsInt("SESSION_TTL_HOURS", 24),
		CatalogEndpoint:      getEnv("CATALOG_SEARCH_ENDPOINT", ""),
		CatalogClientID:      getEnv("CF_ACCESS_CLIENT_ID", ""),
		CatalogClientSecret:  getEnv("CF_ACCESS_CLIENT_SECRET", ""),
		CatalogAuthUser:      getEnv("CATALOG_AUTH_USER", ""),
		CatalogAuthPassword:  getEnv("CATALOG_AUTH_PASSWORD", ""),
		SearchTimeoutSeconds: getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 15),
		MinThinkingMillis:    getEnvAsInt("MIN_THINKING_MS", 800),
	}

	InitLogger(AppConfig.LogLevel)

	if AppConfig.GeminiAPIKey == "" {
		Logger.Warn("GEMINI_API_KEY is not set, composition and randomization will use fallbacks")
	}

	if AppConfig.JWTSecret == "" {
		Logger.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
