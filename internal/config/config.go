package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Completion CompletionConfig
	Model      ModelConfig
	Retrieval  RetrievalConfig
	Rewriter   RewriterConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

// CompletionConfig holds the SiliconFlow endpoint settings shared by the
// generation and rewrite calls.
type CompletionConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

type ModelConfig struct {
	ModelName   string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

type RetrievalConfig struct {
	URL            string
	TimeoutSeconds int
	TopK           int
	UseRerank      bool
	RerankMode     string // "cross" or "bi"
	RerankTopK     int    // 0 means unset, falls back to the effective top_k
}

type RewriterConfig struct {
	Enabled     bool
	ModelName   string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8080"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Completion: CompletionConfig{
			APIKey:         strings.TrimSpace(getEnv("SILICONFLOW_API_KEY", "")),
			BaseURL:        getEnv("SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1/chat/completions"),
			TimeoutSeconds: getEnvAsInt("SILICONFLOW_TIMEOUT_SECONDS", 30),
		},
		Model: ModelConfig{
			ModelName:   getEnv("MODEL_NAME", "Qwen/Qwen2.5-7B-Instruct"),
			Temperature: getEnvAsFloat("MODEL_TEMPERATURE", 0.7),
			TopP:        getEnvAsFloat("MODEL_TOP_P", 0.9),
			MaxTokens:   getEnvAsInt("MODEL_MAX_TOKENS", 1024),
		},
		Retrieval: RetrievalConfig{
			URL:            getEnv("RAG_API_URL", "http://localhost:8000/search/docs"),
			TimeoutSeconds: getEnvAsInt("RAG_TIMEOUT_SECONDS", 15),
			TopK:           getEnvAsInt("RAG_TOP_K", 5),
			UseRerank:      getEnvAsBool("RAG_USE_RERANK", true),
			RerankMode:     getEnv("RAG_RERANK_MODE", "cross"),
			RerankTopK:     getEnvAsInt("RAG_RERANK_TOP_K", 0),
		},
		Rewriter: RewriterConfig{
			Enabled:     getEnvAsBool("REWRITER_ENABLED", true),
			ModelName:   getEnv("REWRITER_MODEL_NAME", "Qwen/Qwen2.5-7B-Instruct"),
			Temperature: getEnvAsFloat("REWRITER_TEMPERATURE", 0.1),
			TopP:        getEnvAsFloat("REWRITER_TOP_P", 0.9),
			MaxTokens:   getEnvAsInt("REWRITER_MAX_TOKENS", 128),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
