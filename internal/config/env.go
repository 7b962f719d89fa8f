package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// PathsConfig locates input, output and the external blank page.
type PathsConfig struct {
	InputDir     string
	OutputDir    string
	OutputSuffix string
	BlankFile    string
	TempMaxAge   time.Duration
}

// OutputConfig controls optional publishing of the finished booklet.
type OutputConfig struct {
	S3Bucket string
	S3Prefix string
}

// MetricsConfig controls the prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Paths   PathsConfig
	Output  OutputConfig
	Metrics MetricsConfig
}

// Load reads an optional .env file from the working directory and then
// builds the configuration from the environment. Variables already set in
// the environment win over .env entries.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/booklet.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_booklet",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Paths = PathsConfig{
		InputDir:     getEnv("INPUT_DIR", "input"),
		OutputDir:    getEnv("OUTPUT_DIR", "output"),
		OutputSuffix: getEnv("OUTPUT_SUFFIX", "_booklet"),
		BlankFile:    getEnv("BLANK_FILE", "blank.pdf"),
		TempMaxAge:   parseDuration(getEnv("TEMP_MAX_AGE", "24h"), 24*time.Hour),
	}

	cfg.Output = OutputConfig{
		S3Bucket: getEnv("OUTPUT_S3_BUCKET", ""),
		S3Prefix: strings.Trim(getEnv("OUTPUT_S3_PREFIX", ""), "/"),
	}

	cfg.Metrics = MetricsConfig{
		Textfile: getEnv("METRICS_TEXTFILE", ""),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	switch strings.ToLower(os.Getenv("ENVIRONMENT")) {
	case "dev", "development", "local":
		return "true"
	}
	return "false"
}
