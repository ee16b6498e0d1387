package config

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "\n")
}

var policies = map[string]bool{"local-first": true, "oracle-first": true}

// ValidateConfig checks the whole configuration and reports all problems at once.
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port < 1 || port > 65535 {
		add("SERVER_PORT", "must be a port number, got %q", cfg.ServerPort)
	}
	if cfg.GeminiAPIKey == "" {
		add("GEMINI_API_KEY", "is required (or GEMINI_API_KEY_FILE, or the gemini_api_key secret)")
	}
	if !policies[cfg.ReconcilePolicy] {
		add("RECONCILE_POLICY", "must be local-first or oracle-first, got %q", cfg.ReconcilePolicy)
	}
	if cfg.ConfidenceLow <= 0 || cfg.ConfidenceLow > 1 {
		add("CONFIDENCE_LOW", "must be in (0, 1], got %v", cfg.ConfidenceLow)
	}
	if cfg.ConfidenceVerify < cfg.ConfidenceLow || cfg.ConfidenceVerify > 1 {
		add("CONFIDENCE_VERIFY", "must be between CONFIDENCE_LOW and 1, got %v", cfg.ConfidenceVerify)
	}
	if cfg.OracleTimeout <= 0 {
		add("ORACLE_TIMEOUT", "must be positive")
	}
	if cfg.OracleMaxRetries < 1 {
		add("ORACLE_MAX_RETRIES", "must be at least 1")
	}
	if cfg.OracleBackoff < 0 {
		add("ORACLE_BACKOFF", "must not be negative")
	}
	if cfg.RateLimitPerHour < 0 {
		add("RATE_LIMIT_PER_HOUR", "must not be negative")
	}
	if cfg.MaxUploadBytes <= 0 {
		add("MAX_UPLOAD_BYTES", "must be positive")
	}
	if cfg.ModelS3Bucket != "" && cfg.AWSRegion == "" {
		add("AWS_REGION", "is required when MODEL_S3_BUCKET is set")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		add("LOG_LEVEL", "unknown level %q", cfg.LogLevel)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
