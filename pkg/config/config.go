package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds environment-driven settings for the gateway.
type Config struct {
	Port string

	// Database
	DBPath string

	// Market data
	PolygonBaseURL string
	PolygonAPIKey  string

	// Risk pipeline
	RiskPluginsPath string // optional yaml file overriding plugin order

	// Internalization cancel-wait
	CancelWaitInterval time.Duration
	CancelWaitAttempts int

	// Session routing
	SessionQueueSize int
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "./data/gateway.db"),
		PolygonBaseURL:     getEnv("POLYGON_BASE_URL", ""),
		PolygonAPIKey:      os.Getenv("POLYGON_API_KEY"),
		RiskPluginsPath:    getEnv("RISK_PLUGINS_PATH", ""),
		CancelWaitInterval: time.Duration(getEnvInt("CANCEL_WAIT_INTERVAL_MS", 500)) * time.Millisecond,
		CancelWaitAttempts: getEnvInt("CANCEL_WAIT_ATTEMPTS", 10),
		SessionQueueSize:   getEnvInt("SESSION_QUEUE_SIZE", 256),
	}, nil
}

// pluginsFile is the yaml shape of the optional plugin-order override.
type pluginsFile struct {
	Plugins []string `yaml:"plugins"`
}

// LoadPluginOrder reads the enabled-plugin list from path. An empty
// path returns (nil, nil) so callers fall back to the canonical order.
func LoadPluginOrder(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plugin config: %w", err)
	}
	var file pluginsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse plugin config: %w", err)
	}
	return file.Plugins, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
