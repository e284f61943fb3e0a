package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// Simulator backends.
const (
	SimulatorNone   = "none"
	SimulatorHypoPG = "hypopg"
	SimulatorHTTP   = "http"
)

// Calibration store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	// Database connection.
	DatabaseURL  string
	Dialect      domain.Dialect // inferred from the URL scheme when unset
	QueryTimeout time.Duration

	// Schema filtering.
	Schemas    []string // empty means all non-system schemas
	PolicyFile string   // optional path to policy YAML

	// Logging.
	LogLevel slog.Level

	// Transport.
	Transport       string // "stdio" (default) or "http"
	HTTPAddr        string // listen address for HTTP transport (default ":8080")
	HTTPBearerToken string // required when transport=http
	// HTTPAllowedOrigins enables CORS for browser-based MCP clients.
	HTTPAllowedOrigins []string

	// Connection pool.
	PoolMaxConns        int32         // default: 5
	PoolMinConns        int32         // default: 1
	PoolMaxConnLifetime time.Duration // default: 30m
	PoolMaxConnIdleTime time.Duration // default: 5m

	// Scoring calibration persistence.
	CalibrationStore string // memory (default), file, sqlite or redis
	CalibrationPath  string // file or sqlite path
	RedisURL         string

	// What-if simulation.
	Simulator             string // none (default), hypopg or http
	SimulatorURL          string
	SimulatorToken        string
	SimulationConcurrency int // 0 means unlimited
	SimulationQueryLimit  int // recorded statements replayed per index

	// Observability.
	OTelEnabled bool // enable OpenTelemetry tracing and metrics

	// CLI-only fields (not settable via env vars).
	AuditLog string // path to NDJSON simulation audit log
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	DatabaseURL           *string
	Dialect               *string
	LogLevel              *string
	QueryTimeout          *time.Duration
	PolicyFile            *string
	Transport             *string
	HTTPAddr              *string
	HTTPBearerToken       *string
	HTTPAllowedOrigins    []string
	CalibrationStore      *string
	CalibrationPath       *string
	RedisURL              *string
	Simulator             *string
	SimulatorURL          *string
	SimulationConcurrency *int
	OTelEnabled           bool
	AuditLog              string

	// Connection pool overrides.
	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := resolveDialect(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		QueryTimeout:         10 * time.Second,
		Transport:            "stdio",
		HTTPAddr:             ":8080",
		PoolMaxConns:         5,
		PoolMinConns:         1,
		PoolMaxConnLifetime:  30 * time.Minute,
		PoolMaxConnIdleTime:  5 * time.Minute,
		CalibrationStore:     StoreMemory,
		Simulator:            SimulatorNone,
		SimulationQueryLimit: 50,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("DIALECT"); v != "" {
		d, err := domain.ParseDialect(v)
		if err != nil {
			return fmt.Errorf("invalid DIALECT value: %w", err)
		}
		cfg.Dialect = d
	}

	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT value %q: %w", v, err)
		}
		cfg.QueryTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("SCHEMAS"); v != "" {
		cfg.Schemas = splitList(v)
	}

	cfg.PolicyFile = os.Getenv("POLICY_FILE")
	cfg.AuditLog = os.Getenv("AUDIT_LOG")

	if v := os.Getenv("TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.HTTPBearerToken = os.Getenv("HTTP_BEARER_TOKEN")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTPAllowedOrigins = splitList(v)
	}

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	if v := os.Getenv("CALIBRATION_STORE"); v != "" {
		cfg.CalibrationStore = strings.ToLower(v)
	}
	cfg.CalibrationPath = os.Getenv("CALIBRATION_PATH")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	if err := loadPoolEnvVars(cfg); err != nil {
		return err
	}
	return loadSimulationEnvVars(cfg)
}

// loadPoolEnvVars reads connection pool environment variables.
func loadPoolEnvVars(cfg *Config) error {
	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid POOL_MAX_CONNS value %q: must be a positive integer", v)
		}
		cfg.PoolMaxConns = int32(n)
	}
	if v := os.Getenv("POOL_MIN_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid POOL_MIN_CONNS value %q: must be a non-negative integer", v)
		}
		cfg.PoolMinConns = int32(n)
	}
	if v := os.Getenv("POOL_MAX_CONN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POOL_MAX_CONN_LIFETIME value %q: %w", v, err)
		}
		cfg.PoolMaxConnLifetime = d
	}
	if v := os.Getenv("POOL_MAX_CONN_IDLE_TIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POOL_MAX_CONN_IDLE_TIME value %q: %w", v, err)
		}
		cfg.PoolMaxConnIdleTime = d
	}
	return nil
}

// loadSimulationEnvVars reads what-if simulation environment variables.
func loadSimulationEnvVars(cfg *Config) error {
	if v := os.Getenv("SIMULATOR"); v != "" {
		cfg.Simulator = strings.ToLower(v)
	}
	cfg.SimulatorURL = os.Getenv("SIMULATOR_URL")
	cfg.SimulatorToken = os.Getenv("SIMULATOR_TOKEN")

	if v := os.Getenv("SIMULATION_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid SIMULATION_CONCURRENCY value %q: must be a non-negative integer", v)
		}
		cfg.SimulationConcurrency = n
	}
	if v := os.Getenv("SIMULATION_QUERY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid SIMULATION_QUERY_LIMIT value %q: must be a positive integer", v)
		}
		cfg.SimulationQueryLimit = n
	}
	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.Dialect != nil {
		d, err := domain.ParseDialect(*o.Dialect)
		if err != nil {
			return fmt.Errorf("invalid --dialect value: %w", err)
		}
		cfg.Dialect = d
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.PolicyFile != nil {
		cfg.PolicyFile = *o.PolicyFile
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearerToken != nil {
		cfg.HTTPBearerToken = *o.HTTPBearerToken
	}
	if o.HTTPAllowedOrigins != nil {
		cfg.HTTPAllowedOrigins = o.HTTPAllowedOrigins
	}
	if o.CalibrationStore != nil {
		cfg.CalibrationStore = strings.ToLower(*o.CalibrationStore)
	}
	if o.CalibrationPath != nil {
		cfg.CalibrationPath = *o.CalibrationPath
	}
	if o.RedisURL != nil {
		cfg.RedisURL = *o.RedisURL
	}
	if o.Simulator != nil {
		cfg.Simulator = strings.ToLower(*o.Simulator)
	}
	if o.SimulatorURL != nil {
		cfg.SimulatorURL = *o.SimulatorURL
	}
	if o.SimulationConcurrency != nil {
		if *o.SimulationConcurrency < 0 {
			return fmt.Errorf("invalid --simulation-concurrency value: must be a non-negative integer")
		}
		cfg.SimulationConcurrency = *o.SimulationConcurrency
	}

	if err := applyPoolOverrides(cfg, o); err != nil {
		return err
	}

	if o.AuditLog != "" {
		cfg.AuditLog = o.AuditLog
	}
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.PoolMaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.PoolMinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.PoolMaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

// resolveDialect infers the dialect from the DATABASE_URL scheme when it
// was not set explicitly.
func resolveDialect(cfg *Config) error {
	if cfg.Dialect != "" || cfg.DatabaseURL == "" {
		return nil
	}
	d, err := DialectFromURL(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("cannot infer DIALECT from DATABASE_URL (set DIALECT explicitly): %w", err)
	}
	cfg.Dialect = d
	return nil
}

// DialectFromURL maps a connection URL scheme to a dialect.
func DialectFromURL(raw string) (domain.Dialect, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("%w: DATABASE_URL has no scheme", domain.ErrUnsupportedDialect)
	}
	return domain.ParseDialect(u.Scheme)
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required (set via env var or --database-url flag)")
	}

	switch cfg.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid TRANSPORT value %q: must be \"stdio\" or \"http\"", cfg.Transport)
	}

	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("HTTP_BEARER_TOKEN is required when transport is \"http\" (set via env var or --http-bearer-token flag)")
	}

	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}

	switch cfg.CalibrationStore {
	case StoreMemory:
	case StoreFile, StoreSQLite:
		if cfg.CalibrationPath == "" {
			return fmt.Errorf("CALIBRATION_PATH is required when CALIBRATION_STORE is %q", cfg.CalibrationStore)
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CALIBRATION_STORE is \"redis\"")
		}
	default:
		return fmt.Errorf("invalid CALIBRATION_STORE value %q: must be memory, file, sqlite or redis", cfg.CalibrationStore)
	}

	switch cfg.Simulator {
	case SimulatorNone:
	case SimulatorHypoPG:
		if cfg.Dialect != domain.DialectPostgres {
			return fmt.Errorf("SIMULATOR \"hypopg\" requires the postgres dialect, got %q", cfg.Dialect)
		}
	case SimulatorHTTP:
		if cfg.SimulatorURL == "" {
			return fmt.Errorf("SIMULATOR_URL is required when SIMULATOR is \"http\"")
		}
	default:
		return fmt.Errorf("invalid SIMULATOR value %q: must be none, hypopg or http", cfg.Simulator)
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
