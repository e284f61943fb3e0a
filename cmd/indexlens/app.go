package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/guillermoBallester/indexlens/internal/adapter/kvstore"
	"github.com/guillermoBallester/indexlens/internal/adapter/mysql"
	"github.com/guillermoBallester/indexlens/internal/adapter/policy"
	"github.com/guillermoBallester/indexlens/internal/adapter/postgres"
	"github.com/guillermoBallester/indexlens/internal/adapter/whatif"
	"github.com/guillermoBallester/indexlens/internal/audit"
	"github.com/guillermoBallester/indexlens/internal/config"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/guillermoBallester/indexlens/internal/core/service"
	"github.com/guillermoBallester/indexlens/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
)

// app is the wired dependency graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     port.Instrumentation
	analysis *service.AnalysisService
	sim      *service.SimulationOrchestrator // nil when no simulator is configured

	closers []func() error
}

// newLogger writes JSON to stderr; stdout is reserved for the MCP stdio
// transport and for console reports.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	if err := a.initTelemetry(ctx); err != nil {
		return nil, err
	}

	var (
		provider port.IndexMetadataProvider
		resolver port.SchemaResolver
		pool     *pgxpool.Pool
		err      error
	)
	switch cfg.Dialect {
	case domain.DialectMySQL:
		db, err := mysql.Open(ctx, cfg.DatabaseURL, mysql.PoolOptions{
			MaxOpenConns:    int(cfg.PoolMaxConns),
			MaxIdleConns:    int(cfg.PoolMinConns),
			ConnMaxLifetime: cfg.PoolMaxConnLifetime,
			ConnMaxIdleTime: cfg.PoolMaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		meta := mysql.NewMetadataProvider(db)
		provider, resolver = meta, meta
		logger.Info("database connected", slog.String("db.system", "mysql"))
	default:
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
			MaxConnIdleTime: cfg.PoolMaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		meta := postgres.NewMetadataProvider(pool, cfg.Schemas)
		provider, resolver = meta, meta
		logger.Info("database pool connected", slog.String("db.system", "postgresql"))
	}

	if cfg.PolicyFile != "" {
		pol, err := policy.LoadFromFile(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("loading policy: %w", err)
		}
		provider = policy.NewMetadataProvider(provider, pol)
		logger.Info("policy loaded", slog.String("file", cfg.PolicyFile))
	}

	kv, err := kvstore.Open(ctx, kvstore.Options{
		Backend:  cfg.CalibrationStore,
		Path:     cfg.CalibrationPath,
		RedisURL: cfg.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening calibration store: %w", err)
	}
	a.closers = append(a.closers, kv.Close)

	calibration := service.NewCalibrationStore(kv, logger)
	a.analysis = service.NewAnalysisService(provider, resolver, calibration, logger, a.tracer, a.inst)

	if err := a.initSimulation(pool); err != nil {
		return nil, err
	}
	ready = true
	return a, nil
}

// initSimulation leaves a.sim nil when no simulator is configured.
func (a *app) initSimulation(pool *pgxpool.Pool) error {
	cfg := a.cfg
	simulator, err := a.newSimulator(pool)
	if err != nil || simulator == nil {
		return err
	}

	var auditor port.SimulationAuditor = port.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return err
		}
		auditor = fa
		a.logger.Info("audit logging enabled", slog.String("path", cfg.AuditLog))
	}
	a.closers = append(a.closers, auditor.Close)

	a.sim = service.NewSimulationOrchestrator(simulator, auditor, a.logger, a.tracer, a.inst, cfg.SimulationConcurrency)
	a.logger.Info("simulation enabled",
		slog.String("simulator", cfg.Simulator),
		slog.Int("concurrency", cfg.SimulationConcurrency),
	)
	return nil
}

func (a *app) initTelemetry(ctx context.Context) error {
	a.tracer = telemetry.NoopTracer()
	a.inst = telemetry.NoopInstruments()
	if !a.cfg.OTelEnabled {
		return nil
	}

	tp, err := telemetry.Init(ctx, "indexlens", version)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error {
		return tp.Shutdown(context.Background())
	})
	a.tracer = tp.Tracer()
	a.inst = tp.Instruments()
	a.logger.Info("opentelemetry enabled")
	return nil
}

// newSimulator returns nil when simulation is disabled.
func (a *app) newSimulator(pool *pgxpool.Pool) (port.SimulationProvider, error) {
	cfg := a.cfg
	switch cfg.Simulator {
	case config.SimulatorHypoPG:
		if pool == nil {
			return nil, fmt.Errorf("hypopg simulator requires a postgres database")
		}
		return postgres.NewHypoPGSimulator(pool, domain.NewWorkloadFilter(), cfg.SimulationQueryLimit, cfg.QueryTimeout, a.logger), nil
	case config.SimulatorHTTP:
		return whatif.NewClient(cfg.SimulatorURL, cfg.SimulatorToken, cfg.Dialect, cfg.QueryTimeout), nil
	default:
		return nil, nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("closing resource failed", slog.String("error.message", err.Error()))
		}
	}
	a.closers = nil
}

// redactDSN masks the password in a connection URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
