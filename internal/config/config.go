package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Speech    SpeechConfig
	Knowledge KnowledgeConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	ChatLogFilePath    string
	CorsAllowedOrigins string
	WorkerPoolSize     int
	AdminJwtRequired   bool
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3", "gemini-2.5-flash-lite"
	GoogleGeminiKey   string
	TurnTimeoutSec    int
}

type SpeechConfig struct {
	WhisperURL  string // whisper.cpp compatible server
	TTSBaseURL  string
	TTSSpeed    float64
	FFmpegPath  string
	AudioDir    string
	AudioTTLMin int
}

type KnowledgeConfig struct {
	Backend string // "chromem" or "postgres"
	DataDir string
	TopK    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			ChatLogFilePath:    getEnv("CHAT_LOG_FILE_PATH", "logs/chat.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			WorkerPoolSize:     getEnvAsInt("WORKER_POOL_SIZE", 8),
			AdminJwtRequired:   getEnv("ADMIN_JWT_REQUIRED", "false") == "true",
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			GoogleGeminiKey:   getEnv("GOOGLE_GEMINI_API_KEY", ""),
			TurnTimeoutSec:    getEnvAsInt("TURN_TIMEOUT_SEC", 60),
		},
		Speech: SpeechConfig{
			WhisperURL:  getEnv("WHISPER_SERVER_URL", "http://localhost:8080/inference"),
			TTSBaseURL:  getEnv("TTS_BASE_URL", "https://translate.google.com/translate_tts"),
			TTSSpeed:    getEnvAsFloat("TTS_SPEED", 1.2),
			FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
			AudioDir:    getEnv("AUDIO_OUTPUT_DIR", "static_audio"),
			AudioTTLMin: getEnvAsInt("AUDIO_TTL_MINUTES", 60),
		},
		Knowledge: KnowledgeConfig{
			Backend: getEnv("KNOWLEDGE_BACKEND", "chromem"),
			DataDir: getEnv("KNOWLEDGE_DATA_DIR", "data"),
			TopK:    getEnvAsInt("KNOWLEDGE_TOP_K", 4),
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
