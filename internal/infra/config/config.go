// Package config provides application-wide configuration loaded from an
// optional YAML file plus environment variables. Env vars win over file
// values; all fields have safe defaults so the binary runs locally without
// any setup (except the API key, which the provider will reject as empty).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the rentwise service.
type Config struct {
	// HTTP
	HTTPHost string `yaml:"http_host"` // HTTP_HOST (default "0.0.0.0")
	HTTPPort int    `yaml:"http_port"` // HTTP_PORT (default 8080)

	// Storage
	DBPath string `yaml:"db_path"` // DB_PATH (default "./rentwise.db")

	// LLM: one OpenAI-compatible endpoint, three logical models.
	OpenAIBaseURL string `yaml:"openai_base_url"` // OPENAI_BASE_URL (default "https://api.openai.com")
	OpenAIAPIKey  string `yaml:"openai_api_key"`  // OPENAI_API_KEY (no default)
	RouterModel   string `yaml:"router_model"`    // ROUTER_MODEL (default "gpt-4o")
	VisionModel   string `yaml:"vision_model"`    // VISION_MODEL (default "gpt-4o")
	FAQModel      string `yaml:"faq_model"`       // FAQ_MODEL (default "gpt-4o")

	// LLMTimeout bounds every completion call; a call that exceeds it is
	// treated as failed, never left pending.
	LLMTimeout time.Duration `yaml:"-"` // LLM_TIMEOUT_SECONDS (default 30)
}

const (
	envKeyHTTPHost      = "HTTP_HOST"
	envKeyHTTPPort      = "HTTP_PORT"
	envKeyDBPath        = "DB_PATH"
	envKeyOpenAIBaseURL = "OPENAI_BASE_URL"
	envKeyOpenAIAPIKey  = "OPENAI_API_KEY"
	envKeyRouterModel   = "ROUTER_MODEL"
	envKeyVisionModel   = "VISION_MODEL"
	envKeyFAQModel      = "FAQ_MODEL"
	envKeyLLMTimeout    = "LLM_TIMEOUT_SECONDS"
	envKeyConfigFile    = "RENTWISE_CONFIG"
)

// fileConfig mirrors Config for YAML decoding, with the timeout in seconds.
type fileConfig struct {
	Config         `yaml:",inline"`
	TimeoutSeconds int `yaml:"llm_timeout_seconds"`
}

// Load builds the configuration in three layers: defaults, then the YAML
// file named by RENTWISE_CONFIG (if set and readable), then env overrides.
func Load() Config {
	cfg := defaults()

	if path := os.Getenv(envKeyConfigFile); path != "" {
		if fileCfg, err := loadFile(path); err == nil {
			cfg = mergeFile(cfg, fileCfg)
		}
	}

	return applyEnv(cfg)
}

func defaults() Config {
	return Config{
		HTTPHost:      "0.0.0.0",
		HTTPPort:      8080,
		DBPath:        "./rentwise.db",
		OpenAIBaseURL: "https://api.openai.com",
		RouterModel:   "gpt-4o",
		VisionModel:   "gpt-4o",
		FAQModel:      "gpt-4o",
		LLMTimeout:    30 * time.Second,
	}
}

// loadFile reads and parses a YAML config file.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fc, nil
}

// mergeFile overlays non-zero file values onto the defaults.
func mergeFile(cfg Config, fc fileConfig) Config {
	cfg = mergeFileStrings(cfg, fc)
	if fc.HTTPPort != 0 {
		cfg.HTTPPort = fc.HTTPPort
	}
	if fc.TimeoutSeconds > 0 {
		cfg.LLMTimeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	return cfg
}

func mergeFileStrings(cfg Config, fc fileConfig) Config {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&cfg.HTTPHost, fc.HTTPHost},
		{&cfg.DBPath, fc.DBPath},
		{&cfg.OpenAIBaseURL, fc.OpenAIBaseURL},
		{&cfg.OpenAIAPIKey, fc.OpenAIAPIKey},
		{&cfg.RouterModel, fc.RouterModel},
		{&cfg.VisionModel, fc.VisionModel},
		{&cfg.FAQModel, fc.FAQModel},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	return cfg
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg Config) Config {
	cfg.HTTPHost = envOr(envKeyHTTPHost, cfg.HTTPHost)
	cfg.HTTPPort = envIntOr(envKeyHTTPPort, cfg.HTTPPort)
	cfg.DBPath = envOr(envKeyDBPath, cfg.DBPath)
	cfg.OpenAIBaseURL = envOr(envKeyOpenAIBaseURL, cfg.OpenAIBaseURL)
	cfg.OpenAIAPIKey = envOr(envKeyOpenAIAPIKey, cfg.OpenAIAPIKey)
	cfg.RouterModel = envOr(envKeyRouterModel, cfg.RouterModel)
	cfg.VisionModel = envOr(envKeyVisionModel, cfg.VisionModel)
	cfg.FAQModel = envOr(envKeyFAQModel, cfg.FAQModel)
	if secs := envIntOr(envKeyLLMTimeout, 0); secs > 0 {
		cfg.LLMTimeout = time.Duration(secs) * time.Second
	}
	return cfg
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr returns the integer value of the environment variable key,
// or fallback if unset or not a valid positive integer.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
