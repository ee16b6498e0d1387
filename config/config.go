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

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort     string
	ServerHost     string
	CORSOrigins    []string
	MaxUploadBytes int64

	// Local ensemble
	ModelsDir      string
	ModelServerURL string
	ModelS3Bucket  string
	ModelS3Prefix  string
	AWSRegion      string

	// Oracle
	GeminiAPIKey     string
	GeminiModel      string
	OracleTimeout    time.Duration
	OracleMaxRetries int
	OracleBackoff    time.Duration

	// Reconciliation
	ReconcilePolicy  string
	ConfidenceLow    float64
	ConfidenceVerify float64

	// Redis backs the rate limiter and the analysis cache. Both are off when empty.
	RedisURL         string
	AnalysisCacheTTL time.Duration
	RateLimitPerHour int

	ScoringRulesFile string
	LogLevel         string
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Load reads the configuration from a .env file, the environment and
// secret files, without validating it. Values already in the environment
// win over the .env file.
func Load() (*Config, error) {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	} else if _, err := os.Stat(".env"); err == nil && GetEnvironment() != Production {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	var errs []string
	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		ServerHost:       getEnv("SERVER_HOST", ""),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
		ModelsDir:        getEnv("MODELS_DIR", "./models"),
		ModelServerURL:   getEnv("MODEL_SERVER_URL", ""),
		ModelS3Bucket:    getEnv("MODEL_S3_BUCKET", ""),
		ModelS3Prefix:    getEnv("MODEL_S3_PREFIX", ""),
		AWSRegion:        getEnv("AWS_REGION", ""),
		GeminiAPIKey:     secret("GEMINI_API_KEY", "gemini_api_key"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ReconcilePolicy:  NormalizePolicy(getEnv("RECONCILE_POLICY", "local-first")),
		RedisURL:         secret("REDIS_URL", "redis_url"),
		ScoringRulesFile: getEnv("SCORING_RULES_FILE", ""),
		LogLevel:         getEnv("LOG_LEVEL", defaultLogLevel()),
	}

	cfg.MaxUploadBytes = getInt64("MAX_UPLOAD_BYTES", 16<<20, &errs)
	cfg.OracleTimeout = getDuration("ORACLE_TIMEOUT", 30*time.Second, &errs)
	cfg.OracleMaxRetries = int(getInt64("ORACLE_MAX_RETRIES", 3, &errs))
	cfg.OracleBackoff = getDuration("ORACLE_BACKOFF", time.Second, &errs)
	cfg.ConfidenceLow = getFloat("CONFIDENCE_LOW", 0.7, &errs)
	cfg.ConfidenceVerify = getFloat("CONFIDENCE_VERIFY", 0.85, &errs)
	cfg.AnalysisCacheTTL = getDuration("ANALYSIS_CACHE_TTL", 24*time.Hour, &errs)
	cfg.RateLimitPerHour = int(getInt64("RATE_LIMIT_PER_HOUR", 60, &errs))

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// NormalizePolicy lower-cases and trims a reconcile policy name.
func NormalizePolicy(policy string) string {
	return strings.ToLower(strings.TrimSpace(policy))
}

func defaultLogLevel() string {
	if IsProduction() {
		return "info"
	}
	return "debug"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// secret resolves a sensitive value from KEY, then the file named by
// KEY_FILE, then the secrets directory.
func secret(key, name string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return readSecret(name)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func getInt64(key string, fallback int64, errs *[]string) int64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer, got %q", key, v))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]string) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a number, got %q", key, v))
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration, errs *[]string) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a duration like 30s, got %q", key, v))
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
