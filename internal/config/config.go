package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers understood by the storage layer.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// Config holds runtime configuration values for the companion service and CLI.
type Config struct {
	AppName  string
	AppEnv   string
	AppPort  string
	LogLevel string

	RemoteBaseURL          string
	RemoteTimeout          time.Duration
	ClaimEndpoint          string
	ClaimFallbackEndpoints []string
	ProfileEndpoints       []string
	UploadEndpoints        []string
	AdminPrefix            string

	StoreDriver     string
	StoreNamespace  string
	SQLitePath      string
	DatabaseURL     string
	RedisURL        string
	EvidenceMaxMB   int
	MaxReplays      int
	RetryRateLimit  int
	RetryRateWindow time.Duration

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	NATSURL     string
	NATSSubject string

	ExportDir       string
	ExportRecipient string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether direct evidence storage credentials are present.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// ApplyDefaults registers default values on the provided viper instance.
func ApplyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "SKP Companion")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8090")
	v.SetDefault("log.level", "info")
	v.SetDefault("remote.base_url", "http://localhost:8080")
	v.SetDefault("remote.timeout", "15s")
	v.SetDefault("remote.claim_endpoint", "/api/student/submissions")
	v.SetDefault("remote.claim_fallbacks", "/api/submissions,/api/student/activities,/api/activities/submit")
	v.SetDefault("remote.profile_endpoints", "/api/student/profile,/api/profile,/api/auth/me")
	v.SetDefault("remote.upload_endpoints", "/api/upload,/api/files/upload,/api/student/upload")
	v.SetDefault("remote.admin_prefix", "/api/admin")
	v.SetDefault("store.driver", StoreDriverSQLite)
	v.SetDefault("store.namespace", "skp")
	v.SetDefault("store.sqlite_path", "skp-companion.db")
	v.SetDefault("evidence.max_mb", 10)
	v.SetDefault("pending.max_replays", 10)
	v.SetDefault("pending.retry_rate_limit", 5)
	v.SetDefault("pending.retry_rate_window", "1m")
	v.SetDefault("cloudinary.folder", "skp/evidence")
	v.SetDefault("nats.subject", "skp.pending")
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.recipient", "admin.skp@kampus.ac.id")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration from a caller supplied viper instance, which lets the CLI
// bind its flags before resolution.
func LoadFrom(v *viper.Viper) (Config, error) {
	_ = godotenv.Load()

	v.SetEnvPrefix("SKP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	ApplyDefaults(v)

	timeout, err := parseDuration(v.GetString("remote.timeout"), 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid remote timeout: %w", err)
	}

	window, err := parseDuration(v.GetString("pending.retry_rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid retry rate window: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		RemoteBaseURL:          strings.TrimRight(strings.TrimSpace(v.GetString("remote.base_url")), "/"),
		RemoteTimeout:          timeout,
		ClaimEndpoint:          strings.TrimSpace(v.GetString("remote.claim_endpoint")),
		ClaimFallbackEndpoints: splitList(v.GetString("remote.claim_fallbacks")),
		ProfileEndpoints:       splitList(v.GetString("remote.profile_endpoints")),
		UploadEndpoints:        splitList(v.GetString("remote.upload_endpoints")),
		AdminPrefix:            strings.TrimRight(v.GetString("remote.admin_prefix"), "/"),
		StoreDriver:            strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
		StoreNamespace:         v.GetString("store.namespace"),
		SQLitePath:             v.GetString("store.sqlite_path"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		EvidenceMaxMB:          v.GetInt("evidence.max_mb"),
		MaxReplays:             v.GetInt("pending.max_replays"),
		RetryRateLimit:         v.GetInt("pending.retry_rate_limit"),
		RetryRateWindow:        window,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		ExportDir:              v.GetString("export.dir"),
		ExportRecipient:        v.GetString("export.recipient"),
	}

	if cfg.RemoteBaseURL == "" {
		return Config{}, fmt.Errorf("remote base url must be provided")
	}

	if cfg.ClaimEndpoint == "" {
		return Config{}, fmt.Errorf("remote claim endpoint must be provided")
	}

	switch cfg.StoreDriver {
	case StoreDriverSQLite, StoreDriverMemory:
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("database url is required for the postgres store")
		}
	case StoreDriverRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("redis url is required for the redis store")
		}
	default:
		return Config{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if cfg.EvidenceMaxMB <= 0 {
		cfg.EvidenceMaxMB = 10
	}

	if cfg.MaxReplays < 0 {
		cfg.MaxReplays = 0
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
