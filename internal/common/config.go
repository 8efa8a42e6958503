package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/flashback/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Scoring     ScoringConfig   `toml:"scoring"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Ingest      IngestConfig    `toml:"ingest"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	Neo4j  Neo4jConfig  `toml:"neo4j"`
}

// BadgerConfig represents the local key/value store configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// Neo4jConfig represents the article graph store connection
type Neo4jConfig struct {
	URI      string `toml:"uri"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"` // Empty uses the server default database
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// GeminiConfig contains Google Gemini API settings
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API settings
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// LLMConfig contains provider-agnostic generation settings
type LLMConfig struct {
	DefaultProvider   string  `toml:"default_provider"`    // "gemini" or "claude"
	MaxAttempts       int     `toml:"max_attempts"`        // Total attempts per operation before fallback
	InitialBackoff    string  `toml:"initial_backoff"`     // e.g. "2s" - backoff before the second attempt
	BackoffMultiplier float64 `toml:"backoff_multiplier"`  // Applied to backoff on each retry
	RequestsPerMinute int     `toml:"requests_per_minute"` // Client-side rate limit across all operations
}

// ScoringConfig holds the category scorer thresholds.
//
// SubcategoryMinWeight interacts with taxonomy size: a category with more
// than 1/SubcategoryMinWeight subcategories can never qualify any of its
// subcategories. Review this value whenever the taxonomy is edited.
type ScoringConfig struct {
	SubcategoryMinWeight float64 `toml:"subcategory_min_weight"` // Subcategory weight must exceed this (default: 0.05)
	CategoryMinScore     float64 `toml:"category_min_score"`     // Category total must reach this (default: 0.1)
}

// RetrievalConfig controls candidate retrieval from the graph store
type RetrievalConfig struct {
	CandidateLimit int  `toml:"candidate_limit"` // Max articles fetched per subcategory (default: 10)
	AllPairs       bool `toml:"all_pairs"`       // Fetch candidates for every selected pair instead of the first only
}

// IngestConfig controls CSV ingestion of pre-scraped articles
type IngestConfig struct {
	Dir      string `toml:"dir"`      // Directory scanned for article CSV files
	Schedule string `toml:"schedule"` // Cron schedule for periodic ingestion; empty disables
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/flashback",
				ResetOnStartup: false,
			},
			Neo4j: Neo4jConfig{
				URI:      "neo4j://localhost:7687",
				Username: "neo4j",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		LLM: LLMConfig{
			DefaultProvider:   "gemini",
			MaxAttempts:       3,
			InitialBackoff:    "2s",
			BackoffMultiplier: 2.0,
			RequestsPerMinute: 30,
		},
		Scoring: ScoringConfig{
			SubcategoryMinWeight: 0.05,
			CategoryMinScore:     0.1,
		},
		Retrieval: RetrievalConfig{
			CandidateLimit: 10,
			AllPairs:       false,
		},
		Ingest: IngestConfig{
			Dir:      "./data/incoming",
			Schedule: "",
		},
	}
}

// LoadFromFile loads configuration from a single file path.
// An empty path loads defaults plus environment overrides only.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FLASHBACK_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("FLASHBACK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FLASHBACK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("FLASHBACK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Storage.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Storage.Neo4j.Username = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		config.Storage.Neo4j.Password = password
	}

	// API keys
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("FLASHBACK_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}

	// Logging configuration
	if level := os.Getenv("FLASHBACK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FLASHBACK_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Ingest configuration
	if dir := os.Getenv("FLASHBACK_INGEST_DIR"); dir != "" {
		config.Ingest.Dir = dir
	}
	if schedule := os.Getenv("FLASHBACK_INGEST_SCHEDULE"); schedule != "" {
		config.Ingest.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateIngestSchedule validates a cron schedule expression
func ValidateIngestSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid ingest schedule %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true when running with a production environment setting
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables → KV store → config fallback → error.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"GEMINI_API_KEY", "FLASHBACK_GEMINI_API_KEY"},
		"anthropic_api_key": {"ANTHROPIC_API_KEY", "FLASHBACK_CLAUDE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}
