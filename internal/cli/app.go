// Package cli holds the wiring shared by the vignette commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/vignette"
	"github.com/aretw0/vignette/internal/config"
	"github.com/aretw0/vignette/internal/logging"
	"github.com/aretw0/vignette/pkg/observability"
	"github.com/aretw0/vignette/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Options are the global command-line flags. Empty fields leave the
// configuration untouched.
type Options struct {
	ConfigPath string
	StorePath  string
	Backend    string
	LogLevel   string

	// LogOutput receives log lines; stderr when nil.
	LogOutput io.Writer
}

// App is an opened engine together with the configuration it was built from.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Engine   *vignette.Engine
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
}

// ResolveConfig loads the configuration file and environment, then applies flags.
func ResolveConfig(opts Options) (config.Config, error) {
	path, required := opts.ConfigPath, true
	if path == "" {
		path, required = config.DefaultFile, false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return config.Config{}, err
	}

	if opts.Backend != "" {
		cfg.Store.Backend = opts.Backend
	}
	if opts.StorePath != "" {
		// --store points at whatever the selected backend reads from.
		switch cfg.Store.Backend {
		case config.BackendSQLite:
			cfg.Store.SQLite.Path = opts.StorePath
		case config.BackendRedis:
			cfg.Store.Redis.Addr = opts.StorePath
		default:
			cfg.Store.Path = opts.StorePath
		}
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Open resolves the configuration and builds the engine over the selected backend.
func Open(opts Options) (*App, error) {
	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := logging.NewWithWriter(out, level)

	backend, err := cfg.Store.Open()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	backend = middleware.Chain(backend,
		middleware.NewLoggingMiddleware(logger),
		middleware.NewInstrumentMiddleware(metrics),
	)

	engine := vignette.New(backend,
		vignette.WithLogger(logger),
		vignette.WithMetrics(metrics),
	)
	logger.Debug("engine ready", "store", cfg.Store.Describe())

	return &App{
		Config:   cfg,
		Logger:   logger,
		Engine:   engine,
		Registry: reg,
		Metrics:  metrics,
	}, nil
}

// Close releases the backend.
func (a *App) Close() error {
	if err := a.Engine.Close(); err != nil {
		return fmt.Errorf("failed to close engine: %w", err)
	}
	return nil
}
