package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DUBFORGE_HTTP_ADDR", ":9090")
	t.Setenv("DUBFORGE_DATA_FILE", "/tmp/data.json")
	t.Setenv("DUBFORGE_OBJECT_STORE", "minio")
	t.Setenv("DUBFORGE_MINIO_ENDPOINT", "minio.local:9000")
	t.Setenv("DUBFORGE_MINIO_SSL", "true")
	t.Setenv("DUBFORGE_MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("DUBFORGE_ALLOWED_UPLOAD_TYPES", "video/, audio/")
	t.Setenv("DUBFORGE_YTDLP_TIMEOUT", "45s")
	t.Setenv("DUBFORGE_MAX_RETRIES", "3")
	t.Setenv("DUBFORGE_WORKERS", "4")
	t.Setenv("DUBFORGE_TTS_COST_PER_1K_CHARS", "0.09")

	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.DataFile != "/tmp/data.json" {
		t.Errorf("DataFile = %q, want /tmp/data.json", cfg.DataFile)
	}
	if cfg.ObjectStore != "minio" || cfg.Minio.Endpoint != "minio.local:9000" {
		t.Errorf("minio settings not applied: %+v", cfg)
	}
	if !cfg.Minio.UseSSL {
		t.Error("UseSSL not applied")
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Errorf("MaxUploadBytes = %d, want 1048576", cfg.MaxUploadBytes)
	}
	if len(cfg.AllowedUploadTypes) != 2 || cfg.AllowedUploadTypes[1] != "audio/" {
		t.Errorf("AllowedUploadTypes = %v", cfg.AllowedUploadTypes)
	}
	if cfg.YtdlpTimeout != 45*time.Second {
		t.Errorf("YtdlpTimeout = %v, want 45s", cfg.YtdlpTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.TTSCostPer1kChars != 0.09 {
		t.Errorf("TTSCostPer1kChars = %v, want 0.09", cfg.TTSCostPer1kChars)
	}
}

func TestEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DUBFORGE_WORKERS", "many")
	t.Setenv("DUBFORGE_YTDLP_TIMEOUT", "soon")

	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.Workers != DefaultConfig().Workers {
		t.Errorf("Workers = %d, want default", cfg.Workers)
	}
	if cfg.YtdlpTimeout != DefaultConfig().YtdlpTimeout {
		t.Errorf("YtdlpTimeout = %v, want default", cfg.YtdlpTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty addr", func(c *Config) { c.HTTPAddr = "" }, true},
		{"empty data file", func(c *Config) { c.DataFile = "" }, true},
		{"unknown object store", func(c *Config) { c.ObjectStore = "s3" }, true},
		{"minio without endpoint", func(c *Config) { c.ObjectStore = "minio" }, true},
		{"minio with endpoint", func(c *Config) {
			c.ObjectStore = "minio"
			c.Minio.Endpoint = "localhost:9000"
		}, false},
		{"zero upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"backoff inversion", func(c *Config) {
			c.InitialBackoff = time.Minute
			c.MaxBackoff = time.Second
		}, true},
		{"multiplier too small", func(c *Config) { c.BackoffMultiplier = 1 }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
