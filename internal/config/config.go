package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`
	DatabaseURL string `env:"DATABASE_URL"`

	ElevenLabsAPIKey      string        `env:"ELEVENLABS_API_KEY"`
	ElevenLabsModel       string        `env:"ELEVENLABS_MODEL" envDefault:"scribe_v1"`
	ElevenLabsLanguage    string        `env:"ELEVENLABS_LANGUAGE" envDefault:"en"`
	ElevenLabsNumSpeakers int           `env:"ELEVENLABS_NUM_SPEAKERS" envDefault:"10"`
	TranscribeTimeout     time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"10m"`

	GPTZeroAPIKey      string        `env:"GPTZERO_API_KEY"`
	GPTZeroURL         string        `env:"GPTZERO_URL"`
	GPTZeroTimeout     time.Duration `env:"GPTZERO_TIMEOUT" envDefault:"30s"`
	AnalyzeConcurrency int           `env:"ANALYZE_CONCURRENCY" envDefault:"1"`
	AnalyzeRetries     int           `env:"ANALYZE_RETRIES" envDefault:"0"`
	AnalyzeRatePerMin  int           `env:"ANALYZE_RATE_PER_MIN" envDefault:"0"`

	YtDlpPath         string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath        string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	ChromePath        string        `env:"CHROME_PATH"`
	ScreenshotTimeout time.Duration `env:"SCREENSHOT_TIMEOUT" envDefault:"60s"`

	S3   S3Config
	MQTT MQTTConfig

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// S3Config configures optional artifact archiving to an S3-compatible store.
type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Prefix    string `env:"S3_PREFIX"`
}

// Enabled reports whether an archive bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// MQTTConfig configures optional run lifecycle notifications.
type MQTTConfig struct {
	BrokerURL   string `env:"MQTT_BROKER_URL"`
	ClientID    string `env:"MQTT_CLIENT_ID" envDefault:"speechscope"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"speechscope"`
	Username    string `env:"MQTT_USERNAME"`
	Password    string `env:"MQTT_PASSWORD"`
}

// Enabled reports whether a broker is configured.
func (c MQTTConfig) Enabled() bool { return c.BrokerURL != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	DataDir     string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.DataDir != "" {
		cfg.DataDir = overrides.DataDir
	}

	return cfg, nil
}

// ResultsDir holds {id}.json run records for the file result store.
func (c *Config) ResultsDir() string { return filepath.Join(c.DataDir, "results") }
