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
	Retry    RetryConfig
	Dialogue DialogueConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	JwtSecret    string
}

type AIConfig struct {
	LLMProvider        string // "gemini" or "ollama"
	LLMModel           string
	TranscriptionModel string
	TTSProvider        string // "gemini" or "polly"
	TTSModel           string
	TTSVoice           string
	OllamaBaseURL      string
	PollyRegion        string
	PollyEngine        string
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type DialogueConfig struct {
	MaxLoops           int
	AssignmentCacheTTL time.Duration
	SweepInterval      time.Duration
	UsageTopic         string
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
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm_dialogue.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			JwtSecret:    getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:        getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:           getEnv("LLM_MODEL", "gemini-2.5-flash"),
			TranscriptionModel: getEnv("STT_MODEL", "gemini-2.5-flash"),
			TTSProvider:        getEnv("TTS_PROVIDER", "gemini"),
			TTSModel:           getEnv("TTS_MODEL", "gemini-2.5-flash-preview-tts"),
			TTSVoice:           getEnv("TTS_VOICE", ""),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			PollyRegion:        getEnv("POLLY_REGION", "us-east-1"),
			PollyEngine:        getEnv("POLLY_ENGINE", "neural"),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvAsInt("MODEL_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvAsDuration("MODEL_RETRY_BASE_DELAY", 100*time.Millisecond),
		},
		Dialogue: DialogueConfig{
			MaxLoops:           getEnvAsInt("DIALOGUE_MAX_LOOPS", 3),
			AssignmentCacheTTL: getEnvAsDuration("ASSIGNMENT_CACHE_TTL", 5*time.Minute),
			SweepInterval:      getEnvAsDuration("SUBMISSION_SWEEP_INTERVAL", time.Minute),
			UsageTopic:         getEnv("USAGE_TOPIC_NAME", "TURN_USAGE"),
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
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
