package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	ArtifactDir     string        `yaml:"artifact_dir" validate:"required"`
	StagingDir      string        `yaml:"staging_dir" validate:"required"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	StrictSchema    bool          `yaml:"strict_schema"`
	APIKey          string        `yaml:"api_key"`
	CORSOrigins     []string      `yaml:"cors_origins" validate:"dive,required"`
	GinMode         string        `yaml:"gin_mode" validate:"omitempty,oneof=debug release test"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	LogFile         string        `yaml:"log_file"`
	LogLevel        string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

func Default() Config {
	return Config{
		Port:            "8080",
		ArtifactDir:     "artifacts",
		StagingDir:      "uploads",
		MaxUploadBytes:  10 << 20,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// Load starts from Default, overlays CONFIG_FILE when set and finally the
// environment. A .env file in the working directory is read if present.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.ArtifactDir = getEnv("ARTIFACT_DIR", cfg.ArtifactDir)
	cfg.StagingDir = getEnv("STAGING_DIR", cfg.StagingDir)
	cfg.APIKey = getEnv("API_KEY", cfg.APIKey)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}
	if v := os.Getenv("STRICT_SCHEMA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRICT_SCHEMA: %w", err)
		}
		cfg.StrictSchema = b
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

func (c Config) Addr() string { return ":" + c.Port }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
