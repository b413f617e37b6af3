// Package config reads the appraiser's settings from the environment and
// the optional env file in the user's config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "listing-appraiser"
	EnvFileName = "config.env"
)

// Scrape sources.
const (
	SourceBrowser = "browser"
	SourceStatic  = "static"
)

const defaultImageWorkers = 1

// Config holds the settings shared by the bot, the panel server and the CLI.
type Config struct {
	GeminiAPIKey  string
	GeminiModel   string
	AssessTimeout time.Duration // Zero means no timeout

	BotToken   string
	AdminID    int64
	AllowedIDs []int64

	PanelAddr           string
	PanelAllowedOrigins []string

	ScrapeSource    string
	ChromeRemoteURL string
	ChromeHeadless  bool

	ImageWorkers int
	ImageTimeout time.Duration
}

// ConfigDir returns the application's config directory path.
// Creates the directory if it doesn't exist.
func ConfigDir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ConfigFilePath returns the full path to the env file without creating
// anything.
func ConfigFilePath() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configBase, AppName, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment win.
func LoadEnvFile() {
	configPath, err := ConfigFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// WriteEnvFile writes values to the config file with 0600 permissions,
// keys in the given order. It returns the path written.
func WriteEnvFile(values map[string]string, order []string) (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	configPath := filepath.Join(configDir, EnvFileName)

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	for _, key := range order {
		if val, ok := values[key]; ok {
			if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
				return "", fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
	}

	return configPath, nil
}

// CheckRequired returns the names of missing required variables. The Gemini
// key is always required; the bot settings are required unless only the
// panel server is configured.
func CheckRequired() []string {
	var missing []string
	if os.Getenv("GEMINI_API_KEY") == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" && os.Getenv("PANEL_ADDR") == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if (botToken != "" || os.Getenv("PANEL_ADDR") == "") && os.Getenv("ADMIN_TELEGRAM_ID") == "" {
		missing = append(missing, "ADMIN_TELEGRAM_ID")
	}
	return missing
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         os.Getenv("GEMINI_MODEL"),
		BotToken:            os.Getenv("BOT_TOKEN"),
		PanelAddr:           os.Getenv("PANEL_ADDR"),
		PanelAllowedOrigins: splitList(os.Getenv("PANEL_ALLOWED_ORIGINS")),
		ChromeRemoteURL:     os.Getenv("CHROME_REMOTE_URL"),
		ScrapeSource:        strings.ToLower(os.Getenv("SCRAPE_SOURCE")),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	var err error
	if cfg.AssessTimeout, err = durationEnv("ASSESS_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.ImageTimeout, err = durationEnv("IMAGE_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.ImageWorkers, err = intEnv("IMAGE_WORKERS", defaultImageWorkers); err != nil {
		return nil, err
	}
	if cfg.ChromeHeadless, err = ChromeHeadless(); err != nil {
		return nil, err
	}

	if s := os.Getenv("ADMIN_TELEGRAM_ID"); s != "" {
		cfg.AdminID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be a valid integer: %w", err)
		}
	}
	if cfg.AllowedIDs, err = parseIDs(os.Getenv("ALLOWED_TELEGRAM_IDS")); err != nil {
		return nil, fmt.Errorf("ALLOWED_TELEGRAM_IDS: %w", err)
	}
	if cfg.BotToken != "" && cfg.AdminID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}

	switch cfg.ScrapeSource {
	case "":
		cfg.ScrapeSource = SourceBrowser
	case SourceBrowser, SourceStatic:
	default:
		return nil, fmt.Errorf("SCRAPE_SOURCE must be %q or %q, got %q", SourceBrowser, SourceStatic, cfg.ScrapeSource)
	}

	return cfg, nil
}

// ChromeHeadless reads CHROME_HEADLESS, defaulting to true. Commands that
// need no Gemini key use it instead of Load.
func ChromeHeadless() (bool, error) {
	return boolEnv("CHROME_HEADLESS", true)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}
