package main

import (
	"io"

	"github.com/guillermoBallester/indexlens/internal/config"
	"github.com/spf13/pflag"
)

// registerFlags declares every configuration flag. Flags left unset fall back
// to environment variables, so defaults here are zero values.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "database connection URL (postgres:// or mysql://)")
	fs.String("dialect", "", "database dialect: postgres or mysql (inferred from the URL when unset)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.Duration("query-timeout", 0, "timeout for catalog and plan queries")
	fs.String("policy-file", "", "path to a YAML index policy")

	fs.String("transport", "", "MCP transport: stdio or http")
	fs.String("http-addr", "", "listen address for the http transport")
	fs.String("http-bearer-token", "", "bearer token required by the http transport")
	fs.StringSlice("http-allowed-origins", nil, "CORS origins allowed on the http transport")

	fs.String("calibration-store", "", "scoring weight store: memory, file, sqlite or redis")
	fs.String("calibration-path", "", "file or sqlite path for the calibration store")
	fs.String("redis-url", "", "redis URL for the calibration store")

	fs.String("simulator", "", "what-if simulator: none, hypopg or http")
	fs.String("simulator-url", "", "base URL of the http what-if service")
	fs.Int("simulation-concurrency", 0, "maximum concurrent simulations (0 means unlimited)")

	fs.Int32("pool-max-conns", 0, "maximum database connections")
	fs.Int32("pool-min-conns", 0, "minimum idle database connections")
	fs.Duration("pool-max-conn-lifetime", 0, "maximum connection lifetime")

	fs.Bool("otel", false, "enable OpenTelemetry tracing and metrics")
	fs.String("audit-log", "", "path to an NDJSON simulation audit log")
}

// parseFlags parses args into config overrides. Only flags given explicitly
// become overrides.
func parseFlags(args []string) (config.Overrides, error) {
	fs := pflag.NewFlagSet("indexlens", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, err
	}
	return overridesFromFlags(fs)
}

func overridesFromFlags(fs *pflag.FlagSet) (config.Overrides, error) {
	var (
		o   config.Overrides
		err error
	)

	strFlags := []struct {
		name string
		dst  **string
	}{
		{"database-url", &o.DatabaseURL},
		{"dialect", &o.Dialect},
		{"log-level", &o.LogLevel},
		{"policy-file", &o.PolicyFile},
		{"transport", &o.Transport},
		{"http-addr", &o.HTTPAddr},
		{"http-bearer-token", &o.HTTPBearerToken},
		{"calibration-store", &o.CalibrationStore},
		{"calibration-path", &o.CalibrationPath},
		{"redis-url", &o.RedisURL},
		{"simulator", &o.Simulator},
		{"simulator-url", &o.SimulatorURL},
	}
	for _, f := range strFlags {
		if !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetString(f.name)
		if err != nil {
			return o, err
		}
		*f.dst = &v
	}

	if fs.Changed("query-timeout") {
		v, err := fs.GetDuration("query-timeout")
		if err != nil {
			return o, err
		}
		o.QueryTimeout = &v
	}
	if fs.Changed("pool-max-conn-lifetime") {
		v, err := fs.GetDuration("pool-max-conn-lifetime")
		if err != nil {
			return o, err
		}
		o.PoolMaxConnLifetime = &v
	}
	if fs.Changed("pool-max-conns") {
		v, err := fs.GetInt32("pool-max-conns")
		if err != nil {
			return o, err
		}
		o.PoolMaxConns = &v
	}
	if fs.Changed("pool-min-conns") {
		v, err := fs.GetInt32("pool-min-conns")
		if err != nil {
			return o, err
		}
		o.PoolMinConns = &v
	}
	if fs.Changed("simulation-concurrency") {
		v, err := fs.GetInt("simulation-concurrency")
		if err != nil {
			return o, err
		}
		o.SimulationConcurrency = &v
	}
	if fs.Changed("http-allowed-origins") {
		if o.HTTPAllowedOrigins, err = fs.GetStringSlice("http-allowed-origins"); err != nil {
			return o, err
		}
	}

	if o.OTelEnabled, err = fs.GetBool("otel"); err != nil {
		return o, err
	}
	if o.AuditLog, err = fs.GetString("audit-log"); err != nil {
		return o, err
	}
	return o, nil
}
