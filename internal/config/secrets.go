package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"

	"imob-crm/internal/logging"

	"go.uber.org/zap"
)

// Environment constants
const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// MinJWTSecretLength is the shortest Supabase JWT secret accepted in production.
const MinJWTSecretLength = 32

// ValidationError collects configuration problems found at startup
type ValidationError struct {
	Missing  []string
	Invalid  []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing settings: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid settings: %s", strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}

// HasErrors reports whether any setting is missing or invalid.
func (e *ValidationError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Invalid) > 0
}

// Validate checks the loaded configuration. Missing AI provider keys are
// warnings only: a provider without a key is simply disabled.
// In production, missing database or JWT settings are errors.
func (c *Config) Validate() *ValidationError {
	v := &ValidationError{}
	production := c.Environment == EnvProduction || c.Environment == "prod"

	if c.SupabaseJWTSecret == "" {
		if production {
			v.Missing = append(v.Missing, "SUPABASE_JWT_SECRET")
		} else {
			v.Warnings = append(v.Warnings, "SUPABASE_JWT_SECRET not set - authenticated routes will reject every request")
		}
	} else if err := validateJWTSecret(c.SupabaseJWTSecret); err != nil {
		if production {
			v.Invalid = append(v.Invalid, "SUPABASE_JWT_SECRET: "+err.Error())
		} else {
			v.Warnings = append(v.Warnings, "SUPABASE_JWT_SECRET: "+err.Error())
		}
	}

	if production && os.Getenv("DATABASE_URL") == "" && os.Getenv("DB_HOST") == "" {
		v.Missing = append(v.Missing, "DATABASE_URL")
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		if err := validateDatabaseURL(raw); err != nil {
			v.Invalid = append(v.Invalid, "DATABASE_URL: "+err.Error())
		}
	}

	if c.Database != nil {
		switch c.Database.Driver {
		case "postgres", "":
		case "sqlite":
			if production {
				v.Invalid = append(v.Invalid, "DB_DRIVER=sqlite is for local development only")
			}
		default:
			v.Invalid = append(v.Invalid, fmt.Sprintf("DB_DRIVER: unknown driver %q", c.Database.Driver))
		}
	}

	if c.GeminiAPIKey == "" {
		v.Warnings = append(v.Warnings, "GEMINI_API_KEY not set - free provider disabled")
	}
	if c.OpenAIAPIKey == "" {
		v.Warnings = append(v.Warnings, "OPENAI_API_KEY not set - paid fallback disabled")
	}
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		v.Warnings = append(v.Warnings, "no AI provider configured - assistant features will return fallback answers")
	}

	switch c.SpendStore {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			v.Invalid = append(v.Invalid, "SPEND_STORE=redis requires REDIS_URL")
		}
	default:
		v.Invalid = append(v.Invalid, fmt.Sprintf("SPEND_STORE: unknown backend %q", c.SpendStore))
	}

	if c.RateLimitRPM <= 0 {
		v.Invalid = append(v.Invalid, "RATE_LIMIT_RPM must be positive")
	}

	return v
}

// LogStatus prints which settings are configured, never their values.
func (c *Config) LogStatus() {
	log := logging.L()
	log.Info("configuration loaded",
		zap.String("environment", c.Environment),
		zap.String("port", c.Port),
		zap.Bool("gemini", c.GeminiAPIKey != ""),
		zap.Bool("openai", c.OpenAIAPIKey != ""),
		zap.Float64("monthly_spend_limit", c.MonthlySpendLimit),
		zap.String("spend_store", c.SpendStore),
		zap.Bool("storage", c.Storage.Enabled()),
		zap.Bool("metrics", c.EnableMetrics),
	)
}

// GetEnvironment returns the current environment
func GetEnvironment() string {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env == "" {
		env = EnvDevelopment
	}
	return strings.ToLower(env)
}

// IsProductionEnvironment returns true if running in production
func IsProductionEnvironment() bool {
	env := GetEnvironment()
	return env == EnvProduction || env == "prod"
}

// validateJWTSecret rejects short, placeholder or low-entropy secrets.
func validateJWTSecret(secret string) error {
	if len(secret) < MinJWTSecretLength {
		return fmt.Errorf("too short (min %d characters)", MinJWTSecretLength)
	}

	lower := strings.ToLower(secret)
	for _, weak := range []string{"secret", "changeme", "password", "example", "placeholder", "super-secret"} {
		if strings.Contains(lower, weak) {
			return fmt.Errorf("contains weak/placeholder value %q", weak)
		}
	}

	if entropy := shannonEntropy(secret); entropy < 3.0 {
		return fmt.Errorf("entropy too low (%.1f bits/char, need >= 3.0)", entropy)
	}
	if hasRepeatingPattern(secret) {
		return errors.New("appears to contain a repeating pattern")
	}
	return nil
}

func validateDatabaseURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q (expected postgres)", u.Scheme)
	}
	if u.Hostname() == "" {
		return errors.New("missing host")
	}
	return nil
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]float64)
	for _, c := range s {
		freq[c]++
	}
	length := float64(len([]rune(s)))
	entropy := 0.0
	for _, count := range freq {
		p := count / length
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

func hasRepeatingPattern(s string) bool {
	n := len(s)
	if n < 6 {
		return false
	}
	for patLen := 1; patLen <= n/2; patLen++ {
		pattern := s[:patLen]
		isRepeat := true
		for i := patLen; i < n; i++ {
			if s[i] != pattern[i%patLen] {
				isRepeat = false
				break
			}
		}
		if isRepeat {
			return true
		}
	}
	return false
}
