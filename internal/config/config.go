package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OCR backends selectable through OCR_BACKEND.
const (
	OCRBackendOCRSpace  = "ocrspace"
	OCRBackendTesseract = "tesseract"
	OCRBackendOpenAI    = "openai"
	OCRBackendGemini    = "gemini"
)

// YouTube authentication modes selectable through YOUTUBE_AUTH_MODE.
const (
	YouTubeAuthAPIKey = "apikey"
	YouTubeAuthOAuth  = "oauth"
)

type Config struct {
	Discord DiscordConfig
	YouTube YouTubeConfig
	OCR     OCRConfig
	OpenAI  OpenAIConfig
	Gemini  GeminiConfig
	Redis   RedisConfig
	Server  ServerConfig
	Logging LoggingConfig
}

type DiscordConfig struct {
	Token              string
	GuildID            string
	MaxAttachmentBytes int64
	DownloadTimeout    time.Duration
	InteractionTimeout time.Duration
}

type YouTubeConfig struct {
	APIKey          string
	AuthMode        string
	CredentialsFile string
	TokenFile       string
	Timeout         time.Duration
}

type OCRConfig struct {
	Backend  string
	APIKey   string
	Endpoint string
	Language string
	Timeout  time.Duration
	TempDir  string
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	VisionModel string
}

type GeminiConfig struct {
	APIKey      string
	VisionModel string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether the description cache should be wired.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type ServerConfig struct {
	Port int
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Discord: DiscordConfig{
			Token:              getEnv("DISCORD_BOT_TOKEN", ""),
			GuildID:            getEnv("DISCORD_GUILD_ID", ""),
			MaxAttachmentBytes: int64(getEnvInt("MAX_ATTACHMENT_BYTES", 10<<20)),
			DownloadTimeout:    time.Duration(getEnvInt("ATTACHMENT_TIMEOUT_SECONDS", 10)) * time.Second,
			InteractionTimeout: time.Duration(getEnvInt("INTERACTION_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		YouTube: loadYouTube(),
		OCR: OCRConfig{
			Backend:  strings.ToLower(getEnv("OCR_BACKEND", OCRBackendOCRSpace)),
			APIKey:   getEnv("OCR_API_KEY", ""),
			Endpoint: getEnv("OCR_SPACE_ENDPOINT", "https://api.ocr.space/parse/image"),
			Language: getEnv("OCR_LANGUAGE", "eng"),
			Timeout:  time.Duration(getEnvInt("OCR_TIMEOUT_SECONDS", 30)) * time.Second,
			TempDir:  getEnv("OCR_TEMP_DIR", os.TempDir()),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			VisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o-mini"),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			VisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("DESCRIPTION_CACHE_TTL_MINUTES", 360)) * time.Minute,
		},
		Server: ServerConfig{
			Port: getEnvInt("PORT", 10000),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadYouTube reads only the YouTube settings, unvalidated. The OAuth
// authorization command uses it before any key exists.
func LoadYouTube() YouTubeConfig {
	_ = godotenv.Load()
	return loadYouTube()
}

func loadYouTube() YouTubeConfig {
	return YouTubeConfig{
		APIKey:          getEnv("YOUTUBE_API_KEY", ""),
		AuthMode:        strings.ToLower(getEnv("YOUTUBE_AUTH_MODE", YouTubeAuthAPIKey)),
		CredentialsFile: getEnv("YOUTUBE_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:       getEnv("YOUTUBE_TOKEN_FILE", "token.json"),
		Timeout:         time.Duration(getEnvInt("YOUTUBE_TIMEOUT_SECONDS", 15)) * time.Second,
	}
}

// Validate checks everything except the Discord token, which only the gateway
// needs; the offline CLI commands run without it.
func (c *Config) Validate() error {
	switch c.YouTube.AuthMode {
	case YouTubeAuthAPIKey:
		if c.YouTube.APIKey == "" {
			return fmt.Errorf("YOUTUBE_API_KEY is required")
		}
	case YouTubeAuthOAuth:
		if c.YouTube.CredentialsFile == "" {
			return fmt.Errorf("YOUTUBE_CREDENTIALS_FILE is required in oauth mode")
		}
	default:
		return fmt.Errorf("unknown YOUTUBE_AUTH_MODE %q", c.YouTube.AuthMode)
	}

	switch c.OCR.Backend {
	case OCRBackendOCRSpace:
		if c.OCR.APIKey == "" {
			return fmt.Errorf("OCR_API_KEY is required for the ocrspace backend")
		}
	case OCRBackendTesseract:
	case OCRBackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
		}
	case OCRBackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	default:
		return fmt.Errorf("unknown OCR_BACKEND %q", c.OCR.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Discord.MaxAttachmentBytes <= 0 {
		return fmt.Errorf("MAX_ATTACHMENT_BYTES must be positive")
	}
	return nil
}

// ValidateGateway checks the settings only the Discord gateway needs.
func (c *Config) ValidateGateway() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
