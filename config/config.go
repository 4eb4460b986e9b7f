// Package config manages application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dubforge/objectstore"
)

// Config holds all application configuration for the dubforge service.
type Config struct {
	// HTTPAddr is the listen address for the API server (default ":8080")
	HTTPAddr string `json:"http_addr"`

	// DataFile is the path of the JSON data store
	DataFile string `json:"data_file"`
	// UploadDir is the local object store directory
	UploadDir string `json:"upload_dir"`
	// ObjectStore selects the blob backend ("local" or "minio")
	ObjectStore string `json:"object_store"`
	// Minio holds S3-compatible storage settings when ObjectStore is "minio"
	Minio objectstore.MinioConfig `json:"minio"`

	// MaxUploadBytes is the largest accepted upload
	MaxUploadBytes int64 `json:"max_upload_bytes"`
	// AllowedUploadTypes lists accepted MIME type prefixes
	AllowedUploadTypes []string `json:"allowed_upload_types"`

	// YtdlpPath is the path to the yt-dlp executable (default: "yt-dlp")
	YtdlpPath string `json:"ytdlp_path"`
	// YtdlpTimeout is the maximum time to wait for yt-dlp operations
	YtdlpTimeout time.Duration `json:"ytdlp_timeout"`
	// YouTubeAPIKey enables the Data API strategy when set
	YouTubeAPIKey string `json:"youtube_api_key"`

	// MaxRetries is the maximum number of retries for failed operations
	MaxRetries int `json:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `json:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `json:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `json:"backoff_multiplier"`

	// AMQPURL enables the RabbitMQ job queue when set; empty uses the
	// in-memory queue
	AMQPURL string `json:"amqp_url"`
	// Workers is the dub pipeline worker count
	Workers int `json:"workers"`

	// FfmpegPath is the path to the ffmpeg executable (default: "ffmpeg")
	FfmpegPath string `json:"ffmpeg_path"`

	// TTSEndpoint is the fal synthesis endpoint; empty uses the provider default
	TTSEndpoint string `json:"tts_endpoint"`
	// TTSAPIKey authorizes fal requests
	TTSAPIKey string `json:"tts_api_key"`
	// TTSCostPer1kChars is the fal price per 1000 characters
	TTSCostPer1kChars float64 `json:"tts_cost_per_1k_chars"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:           ":8080",
		DataFile:           "dubforge.json.db",
		UploadDir:          "uploads",
		ObjectStore:        "local",
		MaxUploadBytes:     100 << 20,
		AllowedUploadTypes: []string{"video/", "audio/", "application/pdf", "image/"},
		YtdlpPath:          "yt-dlp",
		YtdlpTimeout:       2 * time.Minute,
		MaxRetries:         5,
		InitialBackoff:     1 * time.Second,
		MaxBackoff:         30 * time.Second,
		BackoffMultiplier:  2.0,
		Workers:            2,
		FfmpegPath:         "ffmpeg",
		TTSCostPer1kChars:  0.06,
	}
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults. A .env file in the working
// directory is loaded into the environment first.
func Load() (*Config, error) {
	// Missing .env is fine
	godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from dubforge.json in current directory or home directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"dubforge.json",
		filepath.Join(os.Getenv("HOME"), ".config", "dubforge", "dubforge.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("DUBFORGE_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("DUBFORGE_DATA_FILE"); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv("DUBFORGE_UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv("DUBFORGE_OBJECT_STORE"); v != "" {
		c.ObjectStore = v
	}
	if v := os.Getenv("DUBFORGE_MINIO_ENDPOINT"); v != "" {
		c.Minio.Endpoint = v
	}
	if v := os.Getenv("DUBFORGE_MINIO_ACCESS_KEY"); v != "" {
		c.Minio.AccessKey = v
	}
	if v := os.Getenv("DUBFORGE_MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("DUBFORGE_MINIO_BUCKET"); v != "" {
		c.Minio.Bucket = v
	}
	if v := os.Getenv("DUBFORGE_MINIO_SSL"); v != "" {
		c.Minio.UseSSL = v == "true" || v == "1"
	}
	if v := os.Getenv("DUBFORGE_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("DUBFORGE_ALLOWED_UPLOAD_TYPES"); v != "" {
		c.AllowedUploadTypes = splitAndTrim(v)
	}
	if v := os.Getenv("DUBFORGE_YTDLP_PATH"); v != "" {
		c.YtdlpPath = v
	}
	if v := os.Getenv("DUBFORGE_YTDLP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.YtdlpTimeout = d
		}
	}
	if v := os.Getenv("DUBFORGE_YOUTUBE_API_KEY"); v != "" {
		c.YouTubeAPIKey = v
	}
	if v := os.Getenv("DUBFORGE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("DUBFORGE_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := os.Getenv("DUBFORGE_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
	if v := os.Getenv("DUBFORGE_AMQP_URL"); v != "" {
		c.AMQPURL = v
	}
	if v := os.Getenv("DUBFORGE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("DUBFORGE_FFMPEG_PATH"); v != "" {
		c.FfmpegPath = v
	}
	if v := os.Getenv("DUBFORGE_TTS_ENDPOINT"); v != "" {
		c.TTSEndpoint = v
	}
	if v := os.Getenv("DUBFORGE_TTS_API_KEY"); v != "" {
		c.TTSAPIKey = v
	}
	if v := os.Getenv("DUBFORGE_TTS_COST_PER_1K_CHARS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.TTSCostPer1kChars = f
		}
	}
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	if c.DataFile == "" {
		return fmt.Errorf("data_file must not be empty")
	}
	if c.ObjectStore != "local" && c.ObjectStore != "minio" {
		return fmt.Errorf("object_store must be \"local\" or \"minio\"")
	}
	if c.ObjectStore == "minio" && c.Minio.Endpoint == "" {
		return fmt.Errorf("minio endpoint required for object_store minio")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.YtdlpTimeout <= 0 {
		return fmt.Errorf("ytdlp_timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
