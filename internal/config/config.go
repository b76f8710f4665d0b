package config

import (
	"fmt"
	"strings"
	"time"

	"leavedesk/internal/database"
	"leavedesk/internal/leave"
	"leavedesk/internal/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const devJWTSecret = "fallback-secret-key-for-dev-only"

// Receipt storage backends.
const (
	StorageDrive = "drive"
	StorageGCS   = "gcs"
	StorageNone  = "none"
)

// Config holds application configuration
type Config struct {
	// Server
	Env      string
	Port     string
	LogLevel string

	Database database.Config

	// JWT
	JWTSecret            string
	JWTExpirationDur     time.Duration
	RefreshExpirationDur time.Duration

	Policy leave.Policy

	// Google
	GoogleCredentialsFile string
	GoogleCalendarID      string
	ReceiptStorage        string
	DriveFolderID         string
	GCSBucket             string
	ExternalTimeout       time.Duration
	MaxUploadBytes        int64

	// Ops endpoints are open when OpsAPIKey is empty.
	OpsAPIKey string

	// CORSAllowedOrigins is required in production; elsewhere all origins
	// are allowed when it is empty.
	CORSAllowedOrigins []string

	// Bootstrap administrator used by cmd/seed-admin.
	AdminUsername string
	AdminPassword string
}

// envKeys binds viper keys to the environment variables that set them.
var envKeys = map[string]string{
	"env":                            "ENV",
	"port":                           "PORT",
	"log_level":                      "LOG_LEVEL",
	"db.driver":                      "DB_DRIVER",
	"db.host":                        "DB_HOST",
	"db.port":                        "DB_PORT",
	"db.user":                        "DB_USER",
	"db.password":                    "DB_PASSWORD",
	"db.name":                        "DB_NAME",
	"db.sslmode":                     "DB_SSLMODE",
	"db.sqlite_path":                 "SQLITE_PATH",
	"jwt.secret":                     "JWT_SECRET",
	"jwt.expires_in":                 "JWT_EXPIRES_IN",
	"jwt.refresh_expires_in":         "REFRESH_EXPIRES_IN",
	"max_leave_days":                 "MAX_LEAVE_DAYS",
	"max_future_days":                "MAX_FUTURE_DAYS",
	"default_balances.vacation":      "DEFAULT_ANNUAL_LEAVE",
	"default_balances.sick":          "DEFAULT_SICK_LEAVE",
	"default_balances.personal":      "DEFAULT_PERSONAL_LEAVE",
	"default_balances.menstrual":     "DEFAULT_MENSTRUAL_LEAVE",
	"default_balances.family_care":   "DEFAULT_FAMILY_CARE_LEAVE",
	"default_balances.compassionate": "DEFAULT_COMPASSIONATE_LEAVE",
	"google.credentials_file":        "GOOGLE_CREDENTIALS_FILE",
	"google.calendar_id":             "GOOGLE_CALENDAR_ID",
	"receipts.storage":               "RECEIPT_STORAGE",
	"receipts.drive_folder_id":       "DRIVE_FOLDER_ID",
	"receipts.gcs_bucket":            "GCS_BUCKET",
	"receipts.max_upload_bytes":      "MAX_UPLOAD_BYTES",
	"external_timeout":               "EXTERNAL_TIMEOUT",
	"ops_api_key":                    "OPS_API_KEY",
	"cors.allowed_origins":           "CORS_ALLOWED_ORIGINS",
	"admin.username":                 "ADMIN_USERNAME",
	"admin.password":                 "ADMIN_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	policy := leave.DefaultPolicy()

	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "")

	v.SetDefault("db.driver", database.DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "leavedesk")
	v.SetDefault("db.password", "leavedesk")
	v.SetDefault("db.name", "leavedesk")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "leavedesk.db")

	v.SetDefault("jwt.secret", devJWTSecret)
	v.SetDefault("jwt.expires_in", "24h")
	v.SetDefault("jwt.refresh_expires_in", "168h")

	v.SetDefault("max_leave_days", policy.MaxLeaveDays.String())
	v.SetDefault("max_future_days", policy.MaxFutureDays)
	for c, days := range policy.Defaults.Map() {
		v.SetDefault("default_balances."+string(c), days.String())
	}

	v.SetDefault("receipts.storage", StorageNone)
	v.SetDefault("receipts.max_upload_bytes", 16<<20)
	v.SetDefault("external_timeout", "10s")
	v.SetDefault("admin.username", "admin")
}

// Load reads configuration from a .env file (if present), the environment and
// the optional YAML policy file named by LEAVE_POLICY_FILE.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Get().Debug(".env file not found, using environment only")
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.BindEnv("policy_file", "LEAVE_POLICY_FILE"); err != nil {
		return nil, fmt.Errorf("failed to bind LEAVE_POLICY_FILE: %w", err)
	}
	if path := v.GetString("policy_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:      v.GetString("env"),
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log_level"),

		Database: database.Config{
			Driver:     strings.ToLower(v.GetString("db.driver")),
			Host:       v.GetString("db.host"),
			Port:       v.GetString("db.port"),
			User:       v.GetString("db.user"),
			Password:   v.GetString("db.password"),
			DBName:     v.GetString("db.name"),
			SSLMode:    v.GetString("db.sslmode"),
			SQLitePath: v.GetString("db.sqlite_path"),
		},

		JWTSecret:            v.GetString("jwt.secret"),
		JWTExpirationDur:     durationOr(v, "jwt.expires_in", 24*time.Hour),
		RefreshExpirationDur: durationOr(v, "jwt.refresh_expires_in", 7*24*time.Hour),

		GoogleCredentialsFile: v.GetString("google.credentials_file"),
		GoogleCalendarID:      v.GetString("google.calendar_id"),
		ReceiptStorage:        strings.ToLower(v.GetString("receipts.storage")),
		DriveFolderID:         v.GetString("receipts.drive_folder_id"),
		GCSBucket:             v.GetString("receipts.gcs_bucket"),
		ExternalTimeout:       durationOr(v, "external_timeout", 10*time.Second),
		MaxUploadBytes:        v.GetInt64("receipts.max_upload_bytes"),

		OpsAPIKey:          v.GetString("ops_api_key"),
		CORSAllowedOrigins: splitAndTrim(v.GetString("cors.allowed_origins")),

		AdminUsername: v.GetString("admin.username"),
		AdminPassword: v.GetString("admin.password"),
	}

	policy, err := policyFromViper(v)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func policyFromViper(v *viper.Viper) (leave.Policy, error) {
	policy := leave.DefaultPolicy()

	maxDays, err := decimal.NewFromString(v.GetString("max_leave_days"))
	if err != nil {
		return policy, fmt.Errorf("invalid MAX_LEAVE_DAYS %q: %w", v.GetString("max_leave_days"), err)
	}
	if !leave.IsHalfStep(maxDays) {
		return policy, fmt.Errorf("MAX_LEAVE_DAYS must be a positive multiple of 0.5, got %s", maxDays)
	}
	policy.MaxLeaveDays = maxDays

	policy.MaxFutureDays = v.GetInt("max_future_days")
	if policy.MaxFutureDays < 0 {
		return policy, fmt.Errorf("MAX_FUTURE_DAYS must not be negative, got %d", policy.MaxFutureDays)
	}

	for _, c := range leave.Categories {
		key := "default_balances." + string(c)
		days, err := decimal.NewFromString(v.GetString(key))
		if err != nil {
			return policy, fmt.Errorf("invalid default balance for %s: %w", c, err)
		}
		if days.IsNegative() {
			return policy, fmt.Errorf("default balance for %s must not be negative", c)
		}
		_ = policy.Defaults.Set(c, days)
	}

	for label, code := range v.GetStringMapString("leave_types") {
		c := leave.Category(strings.ToLower(strings.TrimSpace(code)))
		if !c.Valid() {
			return policy, fmt.Errorf("leave type %q maps to unknown category %q", label, code)
		}
		policy.Labels[label] = c
	}

	return policy, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}

	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (use postgres or sqlite)", c.Database.Driver)
	}

	switch c.ReceiptStorage {
	case StorageNone:
	case StorageDrive:
		if c.GoogleCredentialsFile == "" {
			return fmt.Errorf("RECEIPT_STORAGE=drive requires GOOGLE_CREDENTIALS_FILE")
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("RECEIPT_STORAGE=gcs requires GCS_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported RECEIPT_STORAGE %q (use drive, gcs or none)", c.ReceiptStorage)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CalendarEnabled reports whether granted leave is mirrored to a calendar.
func (c *Config) CalendarEnabled() bool {
	return c.GoogleCalendarID != "" && c.GoogleCredentialsFile != ""
}

// durationOr parses a duration setting, falling back to def when it is invalid.
func durationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Get().Warnf("invalid %s value '%s', falling back to %s", envKeys[key], raw, def)
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
