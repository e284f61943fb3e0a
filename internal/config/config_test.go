package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestLoad_Valid(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, domain.DialectPostgres, cfg.Dialect)
	assert.Equal(t, StoreMemory, cfg.CalibrationStore)
	assert.Equal(t, SimulatorNone, cfg.Simulator)
	assert.Equal(t, 50, cfg.SimulationQueryLimit)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://root@localhost:3306/shop")
	t.Setenv("QUERY_TIMEOUT", "30s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SCHEMAS", "shop, billing")
	t.Setenv("POLICY_FILE", "/tmp/policy.yaml")
	t.Setenv("CALIBRATION_STORE", "SQLite")
	t.Setenv("CALIBRATION_PATH", "/tmp/calibration.db")
	t.Setenv("SIMULATOR", "http")
	t.Setenv("SIMULATOR_URL", "http://whatif:9000")
	t.Setenv("SIMULATION_CONCURRENCY", "4")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, domain.DialectMySQL, cfg.Dialect)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"shop", "billing"}, cfg.Schemas)
	assert.Equal(t, "/tmp/policy.yaml", cfg.PolicyFile)
	assert.Equal(t, StoreSQLite, cfg.CalibrationStore)
	assert.Equal(t, SimulatorHTTP, cfg.Simulator)
	assert.Equal(t, 4, cfg.SimulationConcurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTPAllowedOrigins)
}

func TestLoad_ExplicitDialectWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "tcp://db:3306/shop")
	t.Setenv("DIALECT", "mariadb")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, domain.DialectMySQL, cfg.Dialect)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("LOG_LEVEL", "info")

	cfg, err := Load(Overrides{
		DatabaseURL:           ptr("postgresql://other/db"),
		LogLevel:              ptr("warn"),
		Simulator:             ptr("hypopg"),
		SimulationConcurrency: ptr(2),
		PoolMaxConns:          ptr(int32(10)),
		AuditLog:              "/tmp/audit.jsonl",
		OTelEnabled:           true,
	})
	require.NoError(t, err)

	assert.Equal(t, "postgresql://other/db", cfg.DatabaseURL)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, SimulatorHypoPG, cfg.Simulator)
	assert.Equal(t, 2, cfg.SimulationConcurrency)
	assert.Equal(t, int32(10), cfg.PoolMaxConns)
	assert.Equal(t, "/tmp/audit.jsonl", cfg.AuditLog)
	assert.True(t, cfg.OTelEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		o    Overrides
		want string
	}{
		{
			name: "query timeout",
			env:  map[string]string{"QUERY_TIMEOUT": "not-a-duration"},
			want: "QUERY_TIMEOUT",
		},
		{
			name: "log level",
			env:  map[string]string{"LOG_LEVEL": "invalid"},
			want: "LOG_LEVEL",
		},
		{
			name: "dialect",
			env:  map[string]string{"DIALECT": "oracle"},
			want: "DIALECT",
		},
		{
			name: "dialect not inferable",
			env:  map[string]string{"DATABASE_URL": "sqlserver://db/x"},
			want: "cannot infer DIALECT",
		},
		{
			name: "transport",
			env:  map[string]string{"TRANSPORT": "grpc"},
			want: "TRANSPORT",
		},
		{
			name: "http without token",
			env:  map[string]string{"TRANSPORT": "http"},
			want: "HTTP_BEARER_TOKEN",
		},
		{
			name: "pool bounds",
			env:  map[string]string{"POOL_MIN_CONNS": "8", "POOL_MAX_CONNS": "2"},
			want: "POOL_MIN_CONNS",
		},
		{
			name: "file store without path",
			env:  map[string]string{"CALIBRATION_STORE": "file"},
			want: "CALIBRATION_PATH",
		},
		{
			name: "redis store without url",
			env:  map[string]string{"CALIBRATION_STORE": "redis"},
			want: "REDIS_URL",
		},
		{
			name: "unknown store",
			env:  map[string]string{"CALIBRATION_STORE": "etcd"},
			want: "CALIBRATION_STORE",
		},
		{
			name: "hypopg on mysql",
			env:  map[string]string{"DATABASE_URL": "mysql://root@db/shop", "SIMULATOR": "hypopg"},
			want: "requires the postgres dialect",
		},
		{
			name: "http simulator without url",
			env:  map[string]string{"SIMULATOR": "http"},
			want: "SIMULATOR_URL",
		},
		{
			name: "negative concurrency",
			env:  map[string]string{"SIMULATION_CONCURRENCY": "-1"},
			want: "SIMULATION_CONCURRENCY",
		},
		{
			name: "negative concurrency flag",
			o:    Overrides{SimulationConcurrency: ptr(-3)},
			want: "--simulation-concurrency",
		},
		{
			name: "bad dialect flag",
			o:    Overrides{Dialect: ptr("db2")},
			want: "--dialect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(tt.o)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDialectFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    domain.Dialect
		wantErr bool
	}{
		{"postgres://u@h/db", domain.DialectPostgres, false},
		{"postgresql://u@h/db", domain.DialectPostgres, false},
		{"mysql://u@h/db", domain.DialectMySQL, false},
		{"user:pass@tcp(localhost)/db", "", true},
		{"sqlite:///tmp/x", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := DialectFromURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnsupportedDialect)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
