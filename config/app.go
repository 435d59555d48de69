package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGeminiREST = "gemini"
	ProviderVertex     = "vertex"
)

// LLMConfig selects and configures the text-generation endpoint.
type LLMConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	VertexProject  string
	VertexLocation string
}

// LoadLLM reads the text-generation settings.
// GEMINI_API_KEY is required for the REST provider, VERTEX_PROJECT for the Vertex one.
func LoadLLM() (LLMConfig, error) {
	cfg := LLMConfig{
		Provider:       strings.ToLower(getEnv("LLM_PROVIDER", ProviderGeminiREST)),
		APIKey:         os.Getenv("GEMINI_API_KEY"),
		BaseURL:        os.Getenv("GEMINI_BASE_URL"),
		Model:          os.Getenv("GEMINI_MODEL"),
		Timeout:        time.Duration(getEnvInt("GEMINI_TIMEOUT_SECONDS", 60)) * time.Second,
		VertexProject:  os.Getenv("VERTEX_PROJECT"),
		VertexLocation: getEnv("VERTEX_LOCATION", "us-central1"),
	}

	switch cfg.Provider {
	case ProviderGeminiREST:
		if cfg.APIKey == "" {
			return cfg, errors.New("GEMINI_API_KEY environment variable is not set")
		}
	case ProviderVertex:
		if cfg.VertexProject == "" {
			return cfg, errors.New("VERTEX_PROJECT environment variable is not set")
		}
	default:
		return cfg, errors.New("LLM_PROVIDER must be \"gemini\" or \"vertex\"")
	}
	return cfg, nil
}

// AppConfig holds server-level settings.
type AppConfig struct {
	Port              string
	IdeaCacheTTL      time.Duration
	GenerationWorkers int
	GenerationLogTTL  time.Duration
	Stores            StoreConfig
}

// StoreConfig locates the backing stores. An empty RedisAddr means Redis is not used.
type StoreConfig struct {
	PostgresURI         string
	PostgresAutoMigrate bool
	PostgresMaxOpen     int

	MongoURI         string
	MongoDB          string
	MongoPinTLS12    bool
	MongoInsecureTLS bool

	RedisAddr string
}

func LoadApp() AppConfig {
	return AppConfig{
		Port:              getEnv("PORT", "8080"),
		IdeaCacheTTL:      time.Duration(getEnvInt("IDEA_CACHE_TTL_SECONDS", 300)) * time.Second,
		GenerationWorkers: getEnvInt("GENERATION_WORKERS", 2),
		GenerationLogTTL:  time.Duration(getEnvInt("GENERATION_LOG_TTL_HOURS", 24*30)) * time.Hour,
		Stores: StoreConfig{
			PostgresURI:         os.Getenv("POSTGRES_URI"),
			PostgresAutoMigrate: getEnvBool("POSTGRES_AUTO_MIGRATE", true),
			PostgresMaxOpen:     getEnvInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MongoURI:            os.Getenv("MONGO_URI"),
			MongoDB:             getEnv("MONGO_DB", "buildmate"),
			MongoPinTLS12:       getEnvBool("MONGO_FORCE_TLS_CONFIG", false) || os.Getenv("GO_ENV") == "development",
			MongoInsecureTLS:    getEnvBool("MONGO_INSECURE_TLS", false),
			RedisAddr:           firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
