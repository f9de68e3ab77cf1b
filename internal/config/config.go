// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Loaded once at startup,
// validated, then treated as immutable and injected explicitly.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Plant         PlantConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SecurityConfig holds the access policy: toggles, role maps, and route
// patterns consumed by the authorization engine.
type SecurityConfig struct {
	Enabled               bool
	PlantFilteringEnabled bool
	MethodSecurityEnabled bool
	StrictRoleValidation  bool
	PlantCodeValidation   bool
	RoleHierarchyEnabled  bool

	DefaultRole         string
	MaxFailedAttempts   int
	FailedAttemptWindow time.Duration

	// BypassPatterns are checked before any role or plant rule.
	BypassPatterns []string

	// Per-role maps. Keys are role names; unknown keys survive loading and
	// are reported as validation warnings.
	SessionTimeouts       map[string]time.Duration
	MaxConcurrentSessions map[string]int
	URLPatterns           map[string][]string
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	Enabled           bool
	LogSuccess        bool
	LogFailed         bool
	ScreenAccess      bool
	DataAccess        bool
	PlantAccess       bool
	SuccessSampleRate int
	RetentionDays     int
	BatchSize         int
	QueueSize         int
	FlushInterval     time.Duration
	FlushTimeout      time.Duration
	Sink              string
}

// PlantConfig holds plant entitlement configuration
type PlantConfig struct {
	MaxPerUser  int
	DefaultCode string
}

// CacheConfig holds decision cache configuration
type CacheConfig struct {
	Enabled    bool
	TTL        time.Duration
	RoleSize   int
	PlantSize  int
	ScreenSize int
}

// ObservabilityConfig holds logging, tracing and metrics configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	MetricsEnabled bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Observed policy defaults. Overridable per environment; the validator
// warns when overrides drift from the expected shape.
const (
	defaultBypassPatterns = "/health,/metrics,/login,/logout,/static/**,/favicon.ico"

	defaultSessionTimeouts = "ADMIN:7200;TECH:3600;JVC:1800;CQS:1800;PLANT:1800;VIEWER:900"

	defaultMaxSessions = "ADMIN:5;TECH:3;JVC:2;CQS:2;PLANT:2;VIEWER:1"

	// ADMIN carries the catch-all explicitly. Pattern sets are declared per
	// role and are not derived from the privilege hierarchy.
	defaultURLPatterns = "ADMIN:/**;" +
		"TECH:/api/v1/documents/**,/api/v1/queries/**,/api/v1/questionnaires/**,/api/v1/plants/**,/api/v1/access/**;" +
		"JVC:/api/v1/documents/**,/api/v1/queries/**,/api/v1/access/**;" +
		"CQS:/api/v1/documents/**,/api/v1/questionnaires/**,/api/v1/access/**;" +
		"PLANT:/api/v1/documents/**,/api/v1/access/**;" +
		"VIEWER:/api/v1/documents/**,/api/v1/access/summary"
)

// Load loads configuration from environment variables and .env file,
// validates it, and fails on any fatal policy violation. Warnings are
// logged but do not stop startup.
func Load() (*Config, error) {
	cfg := New()

	result := cfg.Validate()
	result.LogWarnings()
	if err := result.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// New builds the configuration from the environment without validating it.
// Most callers want Load; this exists for diagnostics that need to inspect
// an invalid policy.
func New() *Config {
	loadDotEnv()

	return &Config{
		Server: ServerConfig{
			Host:         env.GetString("SERVER_HOST", "0.0.0.0"),
			Port:         env.GetString("SERVER_PORT", "8080"),
			ReadTimeout:  env.GetDuration("SERVER_READ_TIMEOUT_SECONDS", 15, time.Second),
			WriteTimeout: env.GetDuration("SERVER_WRITE_TIMEOUT_SECONDS", 15, time.Second),
			IdleTimeout:  env.GetDuration("SERVER_IDLE_TIMEOUT_SECONDS", 60, time.Second),
		},
		Database: DatabaseConfig{
			Host:            env.GetString("DB_HOST", "localhost"),
			Port:            env.GetString("DB_PORT", "5432"),
			User:            env.GetString("DB_USER", "plantgate"),
			Password:        env.GetString("DB_PASSWORD", ""),
			Database:        env.GetString("DB_NAME", "plantgate"),
			SSLMode:         env.GetString("DB_SSLMODE", "disable"),
			MaxOpenConns:    env.GetInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.GetInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.GetDuration("DB_CONN_MAX_LIFETIME_SECONDS", 300, time.Second),
		},
		Security: SecurityConfig{
			Enabled:               env.GetBool("SECURITY_ENABLED", true),
			PlantFilteringEnabled: env.GetBool("SECURITY_PLANT_FILTERING_ENABLED", true),
			MethodSecurityEnabled: env.GetBool("SECURITY_METHOD_SECURITY_ENABLED", true),
			StrictRoleValidation:  env.GetBool("SECURITY_STRICT_ROLE_VALIDATION", true),
			PlantCodeValidation:   env.GetBool("SECURITY_PLANT_CODE_VALIDATION", true),
			RoleHierarchyEnabled:  env.GetBool("SECURITY_ROLE_HIERARCHY_ENABLED", true),
			DefaultRole:           env.GetString("SECURITY_DEFAULT_ROLE", "VIEWER"),
			MaxFailedAttempts:     env.GetInt("SECURITY_MAX_FAILED_ATTEMPTS", 10),
			FailedAttemptWindow:   env.GetDuration("SECURITY_FAILED_ATTEMPT_WINDOW_SECONDS", 900, time.Second),
			BypassPatterns:        splitList(env.GetString("SECURITY_BYPASS_PATTERNS", defaultBypassPatterns)),
			SessionTimeouts:       parseRoleDurations(env.GetString("SECURITY_SESSION_TIMEOUTS", defaultSessionTimeouts)),
			MaxConcurrentSessions: parseRoleInts(env.GetString("SECURITY_MAX_CONCURRENT_SESSIONS", defaultMaxSessions)),
			URLPatterns:           parseRolePatterns(env.GetString("SECURITY_URL_PATTERNS", defaultURLPatterns)),
		},
		Audit: AuditConfig{
			Enabled:           env.GetBool("SECURITY_AUDIT_ENABLED", true),
			LogSuccess:        env.GetBool("AUDIT_LOG_SUCCESS", false),
			LogFailed:         env.GetBool("AUDIT_LOG_FAILED", true),
			ScreenAccess:      env.GetBool("AUDIT_SCREEN_ACCESS", true),
			DataAccess:        env.GetBool("AUDIT_DATA_ACCESS", true),
			PlantAccess:       env.GetBool("AUDIT_PLANT_ACCESS", true),
			SuccessSampleRate: env.GetInt("AUDIT_SUCCESS_SAMPLE_EVERY", 1),
			RetentionDays:     env.GetInt("AUDIT_RETENTION_DAYS", 365),
			BatchSize:         env.GetInt("AUDIT_BATCH_SIZE", 64),
			QueueSize:         env.GetInt("AUDIT_QUEUE_SIZE", 1024),
			FlushInterval:     env.GetDuration("AUDIT_FLUSH_INTERVAL_SECONDS", 2, time.Second),
			FlushTimeout:      env.GetDuration("AUDIT_FLUSH_TIMEOUT_SECONDS", 5, time.Second),
			Sink:              env.GetString("AUDIT_SINK", "slog"),
		},
		Plant: PlantConfig{
			MaxPerUser:  env.GetInt("PLANT_MAX_PER_USER", 20),
			DefaultCode: env.GetString("PLANT_DEFAULT_CODE", ""),
		},
		Cache: CacheConfig{
			Enabled:    env.GetBool("CACHE_ENABLED", true),
			TTL:        env.GetDuration("CACHE_TTL_SECONDS", 300, time.Second),
			RoleSize:   env.GetInt("CACHE_ROLE_SIZE", 1024),
			PlantSize:  env.GetInt("CACHE_PLANT_SIZE", 1024),
			ScreenSize: env.GetInt("CACHE_SCREEN_SIZE", 1024),
		},
		Observability: ObservabilityConfig{
			LogLevel:       env.GetString("LOG_LEVEL", "info"),
			LogFormat:      env.GetString("LOG_FORMAT", "json"),
			OTELEnabled:    env.GetBool("OTEL_ENABLED", false),
			MetricsEnabled: env.GetBool("METRICS_ENABLED", true),
			ServiceName:    env.GetString("OTEL_SERVICE_NAME", "plantgate"),
			ServiceVersion: env.GetString("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: env.GetFloat64("RATELIMIT_RPS", 10),
			Burst:             env.GetInt("RATELIMIT_BURST", 20),
		},
	}
}

// loadDotEnv walks up from the working directory looking for a .env file.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseRoleEntries splits "ROLE:value;ROLE:value" into pairs.
func parseRoleEntries(raw string) map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		role, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(role))] = strings.TrimSpace(value)
	}
	return out
}

// parseRoleDurations parses "ROLE:seconds;..." into per-role durations.
func parseRoleDurations(raw string) map[string]time.Duration {
	out := make(map[string]time.Duration)
	for role, value := range parseRoleEntries(raw) {
		secs, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		out[role] = time.Duration(secs) * time.Second
	}
	return out
}

// parseRoleInts parses "ROLE:n;..." into per-role integers.
func parseRoleInts(raw string) map[string]int {
	out := make(map[string]int)
	for role, value := range parseRoleEntries(raw) {
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		out[role] = n
	}
	return out
}

// parseRolePatterns parses "ROLE:/a/**,/b/**;..." into per-role pattern lists.
func parseRolePatterns(raw string) map[string][]string {
	out := make(map[string][]string)
	for role, value := range parseRoleEntries(raw) {
		if patterns := splitList(value); len(patterns) > 0 {
			out[role] = patterns
		}
	}
	return out
}
