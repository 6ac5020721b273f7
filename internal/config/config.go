// Package config loads runtime settings from an optional YAML file with
// environment overrides. Tuning constants ship as defaults, not hardcoded
// behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	StoragePath string

	Classifier struct {
		BaseURL           string
		Model             string
		MaxTokens         int
		KnownProjectLimit int
		APIKey            string
	}

	Categorize struct {
		ReviewThreshold float64
		OfflineDiscount float64
	}

	Cache struct {
		RetentionDays int
		Capacity      int
		PruneTarget   float64
	}

	Insight struct {
		WindowDays int
	}

	Track struct {
		IntervalSeconds int
	}
}

// Load reads config.yaml from dir (defaults apply when the file is absent)
// and lets FOCAL_API_KEY override the stored key.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("storage.path", "")
	v.SetDefault("classifier.base_url", "https://api.anthropic.com/v1/messages")
	v.SetDefault("classifier.model", "claude-3-5-haiku-latest")
	v.SetDefault("classifier.max_tokens", 1024)
	v.SetDefault("classifier.known_project_limit", 20)
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("categorize.review_threshold", 0.7)
	v.SetDefault("categorize.offline_discount", 0.8)
	v.SetDefault("cache.retention_days", 30)
	v.SetDefault("cache.capacity", 1000)
	v.SetDefault("cache.prune_target", 0.8)
	v.SetDefault("insight.window_days", 7)
	v.SetDefault("track.interval_seconds", 60)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	cfg.StoragePath = v.GetString("storage.path")
	cfg.Classifier.BaseURL = v.GetString("classifier.base_url")
	cfg.Classifier.Model = v.GetString("classifier.model")
	cfg.Classifier.MaxTokens = v.GetInt("classifier.max_tokens")
	cfg.Classifier.KnownProjectLimit = v.GetInt("classifier.known_project_limit")
	cfg.Classifier.APIKey = v.GetString("classifier.api_key")
	cfg.Categorize.ReviewThreshold = v.GetFloat64("categorize.review_threshold")
	cfg.Categorize.OfflineDiscount = v.GetFloat64("categorize.offline_discount")
	cfg.Cache.RetentionDays = v.GetInt("cache.retention_days")
	cfg.Cache.Capacity = v.GetInt("cache.capacity")
	cfg.Cache.PruneTarget = v.GetFloat64("cache.prune_target")
	cfg.Insight.WindowDays = v.GetInt("insight.window_days")
	cfg.Track.IntervalSeconds = v.GetInt("track.interval_seconds")

	if key := os.Getenv("FOCAL_API_KEY"); key != "" {
		cfg.Classifier.APIKey = key
	}
	return cfg, nil
}

// DefaultDir returns ~/.config/focal.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "focal"), nil
}
