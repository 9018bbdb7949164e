package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	// Postgres DSN. Empty disables the user registry and the pgvector
	// index backend.
	Connection string
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider       string // "gemini" or "ollama"
	LLMModel          string // e.g. "gemini-1.5-flash", "llama3"
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	OllamaBaseURL     string
}

// PipelineConfig bounds the conversational retrieval pipeline.
type PipelineConfig struct {
	IndexBackend     string // "memory" or "pgvector"
	IndexPath        string // snapshot file for the memory backend
	HistoryWindow    int    // max prior turns included in a prompt
	RetrievalK       int    // snippets fetched per query
	MaxQueryChars    int    // retrieval input limit
	MaxMessageChars  int    // inbound message limit
	PromptCharBudget int
	RetryCount       int
	BackoffBase      time.Duration
	Debug            bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", "gemini-1.5-flash"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Pipeline: PipelineConfig{
			IndexBackend:     getEnv("INDEX_BACKEND", "memory"),
			IndexPath:        getEnv("INDEX_SNAPSHOT_PATH", "data/index.json"),
			HistoryWindow:    getEnvAsInt("HISTORY_WINDOW", 6),
			RetrievalK:       getEnvAsInt("RETRIEVAL_K", 4),
			MaxQueryChars:    getEnvAsInt("MAX_QUERY_CHARS", 2000),
			MaxMessageChars:  getEnvAsInt("MAX_MESSAGE_CHARS", 2000),
			PromptCharBudget: getEnvAsInt("PROMPT_CHAR_BUDGET", 12000),
			RetryCount:       getEnvAsInt("GENERATION_RETRY_COUNT", 3),
			BackoffBase:      getEnvAsDuration("GENERATION_BACKOFF_BASE", 500*time.Millisecond),
			Debug:            getEnv("PIPELINE_DEBUG", "false") == "true",
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
