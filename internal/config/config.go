// Package config handles service configuration. Defaults are layered under
// an optional TOML file (CONFIG_FILE) and per-key environment overrides.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	HTTPAddr           string
	DataBackend        string // "json" or "sqlite"
	DataPath           string
	UploadDir          string
	MatchThreshold     int // default Hamming threshold for matching
	DuplicateThreshold int // threshold for the near-duplicate guard on URL adds
	FetchTimeout       time.Duration
	MaxUploadBytes     int64
}

// fileConfig mirrors Config for TOML decoding; absent keys keep defaults.
type fileConfig struct {
	HTTPAddr           *string  `toml:"http_addr"`
	DataBackend        *string  `toml:"data_backend"`
	DataPath           *string  `toml:"data_path"`
	UploadDir          *string  `toml:"upload_dir"`
	MatchThreshold     *int     `toml:"match_threshold"`
	DuplicateThreshold *int     `toml:"duplicate_threshold"`
	FetchTimeoutSec    *float64 `toml:"fetch_timeout_seconds"`
	MaxUploadBytes     *int64   `toml:"max_upload_bytes"`
}

func Load() *Config {
	cfg := &Config{
		HTTPAddr:           ":8080",
		DataBackend:        "json",
		DataPath:           "data/templates.json",
		UploadDir:          "data/uploads",
		MatchThreshold:     5,
		DuplicateThreshold: 2,
		FetchTimeout:       30 * time.Second,
		MaxUploadBytes:     20 << 20,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		applyFile(cfg, path)
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.DataPath = getEnv("DATA_PATH", cfg.DataPath)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.MatchThreshold = getEnvInt("MATCH_THRESHOLD", cfg.MatchThreshold)
	cfg.DuplicateThreshold = getEnvInt("DUPLICATE_THRESHOLD", cfg.DuplicateThreshold)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	return cfg
}

func applyFile(cfg *Config, path string) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		slog.Warn("ignoring unreadable config file", "path", path, "error", err)
		return
	}
	if fc.HTTPAddr != nil {
		cfg.HTTPAddr = *fc.HTTPAddr
	}
	if fc.DataBackend != nil {
		cfg.DataBackend = *fc.DataBackend
	}
	if fc.DataPath != nil {
		cfg.DataPath = *fc.DataPath
	}
	if fc.UploadDir != nil {
		cfg.UploadDir = *fc.UploadDir
	}
	if fc.MatchThreshold != nil {
		cfg.MatchThreshold = *fc.MatchThreshold
	}
	if fc.DuplicateThreshold != nil {
		cfg.DuplicateThreshold = *fc.DuplicateThreshold
	}
	if fc.FetchTimeoutSec != nil {
		cfg.FetchTimeout = time.Duration(*fc.FetchTimeoutSec * float64(time.Second))
	}
	if fc.MaxUploadBytes != nil {
		cfg.MaxUploadBytes = *fc.MaxUploadBytes
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
