package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"imob-crm/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DefaultMonthlySpendLimit is the paid-provider ceiling in USD when
// OPENAI_MONTHLY_LIMIT is unset or unparsable.
const DefaultMonthlySpendLimit = 5.00

// Config holds the application configuration resolved at startup
type Config struct {
	Environment string
	Port        string

	Database *DatabaseConfig

	// AI providers. An empty key disables the provider.
	GeminiAPIKey       string
	GeminiModel        string
	OpenAIAPIKey       string
	OpenAIDefaultModel string
	MonthlySpendLimit  float64

	// SpendStore selects the spend counter backend: "memory" or "redis".
	SpendStore string
	RedisURL   string

	SupabaseJWTSecret string
	CORSOrigins       []string
	RateLimitRPM      int
	EnableMetrics     bool

	Storage StorageConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Driver is "postgres" (default) or "sqlite" for local development.
	Driver     string
	SQLitePath string

	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

// DSN renders the settings as a libpq keyword/value string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode, d.TimeZone,
	)
}

// StorageConfig configures the S3-compatible bucket used for property photos.
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	UploadTimeout   time.Duration
}

// Enabled reports whether enough settings are present to upload photos.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// LoadEnvFiles loads .env from the working directory or its parent.
func LoadEnvFiles() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			logging.L().Info("no .env file found, using environment variables")
		}
	}
}

// Load reads configuration from environment variables
func Load() *Config {
	dbConfig := ParseDatabaseURL(os.Getenv("DATABASE_URL"))
	if dbConfig == nil {
		dbConfig = &DatabaseConfig{
			Driver:   "postgres",
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "imob_crm"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		}
	}
	if driver := strings.ToLower(getEnv("DB_DRIVER", "")); driver != "" {
		dbConfig.Driver = driver
	}
	dbConfig.SQLitePath = getEnv("SQLITE_PATH", "imob-crm.db")

	return &Config{
		Environment:        GetEnvironment(),
		Port:               getEnv("PORT", "8080"),
		Database:           dbConfig,
		GeminiAPIKey:       getEnvAny([]string{"GEMINI_API_KEY", "GOOGLE_AI_API_KEY", "GOOGLE_GEMINI_API_KEY"}, ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIDefaultModel: getEnv("OPENAI_DEFAULT_MODEL", "gpt-4o-mini"),
		MonthlySpendLimit:  getEnvFloat("OPENAI_MONTHLY_LIMIT", DefaultMonthlySpendLimit),
		SpendStore:         strings.ToLower(getEnv("SPEND_STORE", "memory")),
		RedisURL:           getEnv("REDIS_URL", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", 30),
		EnableMetrics:      getEnv("ENABLE_METRICS", "true") == "true",
		Storage: StorageConfig{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
			UploadTimeout:   time.Duration(getEnvInt("S3_UPLOAD_TIMEOUT_SECONDS", 30)) * time.Second,
		},
	}
}

// ParseDatabaseURL converts a postgres:// URL into a DatabaseConfig.
// Returns nil when the URL is empty or unparsable.
func ParseDatabaseURL(databaseURL string) *DatabaseConfig {
	if databaseURL == "" {
		return nil
	}

	u, err := url.Parse(databaseURL)
	if err != nil || u.Hostname() == "" {
		logging.L().Warn("failed to parse DATABASE_URL, falling back to DB_* variables", zap.Error(err))
		return nil
	}

	password, _ := u.User.Password()

	port := 5432
	if u.Port() != "" {
		if p, err := strconv.Atoi(u.Port()); err == nil {
			port = p
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return &DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
		TimeZone: "UTC",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAny(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
