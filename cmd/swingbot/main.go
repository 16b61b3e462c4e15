package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/swingbot/config"
	"github.com/alejandrodnm/swingbot/internal/adapters/notify"
	"github.com/alejandrodnm/swingbot/internal/adapters/remote"
	"github.com/alejandrodnm/swingbot/internal/adapters/storage"
	"github.com/alejandrodnm/swingbot/internal/application/engine"
	"github.com/alejandrodnm/swingbot/internal/application/funnel"
	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

// breakerCooldown es el tiempo que un colaborador queda cortado tras abrir el breaker.
const breakerCooldown = 2 * time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one engine invocation and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	output := flag.String("output", "compact", "decision output: compact|table|json")
	report := flag.Bool("report", false, "print performance and trade history, then exit")
	limit := flag.Int("limit", 20, "number of trades shown by -report (0 = all)")
	importPath := flag.String("import", "", "load a market snapshot from a JSON file, then exit")
	mode := flag.String("mode", "", "persist operating mode paper|live, then continue")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN, cfg.Storage.Mode)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := notify.NewConsole(notify.ParseFormat(*output))

	if *mode != "" {
		m := domain.ParseMode(*mode)
		if err := store.SetMode(ctx, m); err != nil {
			slog.Error("failed to set mode", "err", err)
			os.Exit(1)
		}
		slog.Info("operating mode set", "mode", m)
	}

	switch {
	case *importPath != "":
		if err := importSnapshot(ctx, store, *importPath, time.Now().UTC()); err != nil {
			slog.Error("import failed", "err", err, "path", *importPath)
			os.Exit(1)
		}
		return
	case *report:
		if err := printReport(ctx, store, notifier, *limit); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	whales, reranker, refresher := collaborators(cfg)
	f := funnel.New(cfg.FunnelConfig(), whales)
	eng := engine.New(cfg.EngineConfig(), store, store, f,
		engine.WithReranker(reranker),
		engine.WithRefresher(refresher),
	)
	runner := engine.NewRunner(eng, notifier, cfg.Interval())

	slog.Info("swingbot starting",
		"config", *configPath,
		"dsn", cfg.Storage.DSN,
		"interval", cfg.Interval(),
		"once", *once,
		"whales", cfg.API.WhaleBase != "",
		"reranker", cfg.API.RerankerBase != "",
	)

	if *once {
		if _, err := runner.RunOnce(ctx); err != nil {
			slog.Error("engine invocation failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := runner.Run(ctx); err != nil {
		slog.Error("runner exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("swingbot stopped cleanly")
}

// collaborators construye los adaptadores HTTP opcionales; un base URL vacío
// deja el colaborador deshabilitado.
func collaborators(cfg *config.Config) (ports.WhaleIntel, ports.Reranker, ports.SnapshotRefresher) {
	opts := []remote.Option{
		remote.WithTimeout(cfg.APITimeout()),
		remote.WithRateLimit(cfg.API.RatePerSecond, 1),
	}

	var whales ports.WhaleIntel = remote.DisabledWhales{}
	if cfg.API.WhaleBase != "" {
		whales = remote.NewWhales(remote.NewClient(cfg.API.WhaleBase, opts...), breakerCooldown)
	}

	var reranker ports.Reranker = remote.NoopReranker{}
	if cfg.API.RerankerBase != "" {
		ropts := append(append([]remote.Option(nil), opts...), remote.WithAPIKey(cfg.API.RerankerAPIKey))
		reranker = remote.NewReranker(remote.NewClient(cfg.API.RerankerBase, ropts...), breakerCooldown)
	}

	var refresher ports.SnapshotRefresher = remote.NoopRefresher{}
	if cfg.API.IngestionBase != "" {
		refresher = remote.NewIngestion(remote.NewClient(cfg.API.IngestionBase, opts...))
	}
	return whales, reranker, refresher
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// stderr: stdout queda para las decisiones (-output json se puede parsear)
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
