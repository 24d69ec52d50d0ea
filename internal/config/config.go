package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	SMTP         SMTPConfig
	Keys         APIKeys
	Ai           AIConfig
	Conversation ConversationConfig
	Calendar     CalendarConfig
	Research     ResearchConfig
	Telemetry    TelemetryConfig
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
	Connection string
}

type SMTPConfig struct {
	Host        string
	Port        int
	Email       string
	Password    string
	SenderEmail string
}

type APIKeys struct {
	JwtSecret    string
	GoogleGemini string
	HuggingFace  string
}

type AIConfig struct {
	LLMProvider   string // "ollama", "gemini" or "huggingface"
	LLMModel      string // e.g. "llama3", "gemini-2.5-flash"
	OllamaBaseURL string
	HFBaseURL     string
}

// ConversationConfig tunes history caching, classification caching and flow expiry.
type ConversationConfig struct {
	HistoryWindow  int
	LocalCacheSize int
	RemoteCacheTTL time.Duration
	IntentCacheTTL time.Duration
	FlowTTL        time.Duration
}

type CalendarConfig struct {
	CredentialsFile string // OAuth token JSON; calendar integration is disabled when empty
	CalendarID      string
	Timezone        string
	EventDuration   time.Duration
}

type ResearchConfig struct {
	WikipediaBaseURL string
	ArxivBaseURL     string
	HTTPTimeout      time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvAsInt("SMTP_PORT", 587),
			Email:       getEnv("SMTP_EMAIL", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			SenderEmail: getEnv("SMTP_SENDER_EMAIL", ""),
		},
		Keys: APIKeys{
			JwtSecret:    getEnv("JWT_SECRET", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HFBaseURL:     getEnv("HUGGINGFACE_BASE_URL", ""),
		},
		Conversation: ConversationConfig{
			HistoryWindow:  getEnvAsInt("HISTORY_WINDOW", 20),
			LocalCacheSize: getEnvAsInt("HISTORY_LOCAL_CACHE_SIZE", 1000),
			RemoteCacheTTL: getEnvAsDuration("HISTORY_REDIS_TTL", 30*time.Minute),
			IntentCacheTTL: getEnvAsDuration("INTENT_CACHE_TTL", time.Hour),
			FlowTTL:        getEnvAsDuration("FLOW_TTL", 30*time.Minute),
		},
		Calendar: CalendarConfig{
			CredentialsFile: getEnv("GOOGLE_CALENDAR_CREDENTIALS_FILE", ""),
			CalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),
			Timezone:        getEnv("CALENDAR_TIMEZONE", "UTC"),
			EventDuration:   getEnvAsDuration("CALENDAR_EVENT_DURATION", time.Hour),
		},
		Research: ResearchConfig{
			WikipediaBaseURL: getEnv("WIKIPEDIA_BASE_URL", "https://en.wikipedia.org/api/rest_v1"),
			ArxivBaseURL:     getEnv("ARXIV_BASE_URL", "https://export.arxiv.org/api/query"),
			HTTPTimeout:      getEnvAsDuration("RESEARCH_HTTP_TIMEOUT", 15*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnv("OTEL_ENABLED", "false") == "true",
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "twinai-backend"),
		},
	}
}

// LLMEndpoint returns the base URL and API key for the selected provider.
func (c *Config) LLMEndpoint() (baseURL, apiKey string) {
	switch c.Ai.LLMProvider {
	case "gemini":
		return "", c.Keys.GoogleGemini
	case "huggingface":
		return c.Ai.HFBaseURL, c.Keys.HuggingFace
	default:
		return c.Ai.OllamaBaseURL, ""
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

// getEnvAsDuration accepts Go duration strings ("30m", "1h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
