package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ndmitriev/shotvalue/internal/pkg/config"
	"github.com/ndmitriev/shotvalue/internal/pkg/fetch"
	"github.com/ndmitriev/shotvalue/internal/pkg/health"
	"github.com/ndmitriev/shotvalue/internal/pkg/ingest"
	"github.com/ndmitriev/shotvalue/internal/pkg/logging"
	"github.com/ndmitriev/shotvalue/internal/pkg/notify"
	"github.com/ndmitriev/shotvalue/internal/pkg/proxy"
	"github.com/ndmitriev/shotvalue/internal/pkg/storage"
)

const defaultConfigPath = "configs/production.yaml"

type flags struct {
	configPath string
	mode       string
}

func main() {
	if err := run(); err != nil {
		slog.Error("Pipeline failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", defaultConfigPath, "Path to YAML config")
	flag.StringVar(&f.mode, "mode", "full", "Pipeline stage: discover | ingest | bridge | full")
	flag.Parse()
	return f
}

func run() error {
	// .env before config so env overrides see the values.
	_ = godotenv.Load()

	f := parseFlags()
	appConfig, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.SetupLogger(&appConfig.Logging, "pipeline")
	slog.Info("Config loaded", "path", f.configPath, "mode", f.mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPostgresStore(&appConfig.Postgres)
	if err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	defer store.Close()

	cache, err := storage.NewCache(&appConfig.Redis)
	if err != nil {
		// A dead cache only costs refetches.
		slog.Warn("Redis cache unavailable, continuing without it", "error", err)
		cache = nil
	}
	if cache != nil {
		defer cache.Close()
	}

	pool := proxy.NewPool(proxy.Sources{
		ListFile: appConfig.Proxy.ListFile,
		ListURL:  appConfig.Proxy.ListURL,
		URL:      appConfig.Proxy.URL,
	})
	pool.Load(ctx)

	if appConfig.Health.Enabled {
		go health.Run(ctx, appConfig.Health.Addr, appConfig.Health.ReadHeaderTimeout, pool)
	}

	httpFetcher := fetch.NewClient(pool, appConfig.Provider.UserAgent, appConfig.Provider.Timeout)
	browserFetcher := fetch.NewBrowserFetcher(appConfig.Provider.UserAgent, appConfig.Pipeline.BrowserTimeout)

	orchestrator := ingest.NewOrchestrator(
		store, cache, httpFetcher, browserFetcher,
		appConfig.Provider.BaseURL, appConfig.Pipeline)

	notifier := notify.NewTelegramNotifier(appConfig.Notify.TelegramBotToken, appConfig.Notify.TelegramChatID)

	if err := runMode(ctx, orchestrator, f.mode); err != nil {
		notifier.Failure(f.mode, err)
		return err
	}

	notifier.RunSummary(f.mode, health.CurrentSnapshot())
	slog.Info("Pipeline run complete", "mode", f.mode)
	return nil
}

func runMode(ctx context.Context, o *ingest.Orchestrator, mode string) error {
	switch mode {
	case "discover":
		return o.Discover(ctx)
	case "ingest":
		return o.Ingest(ctx)
	case "bridge":
		return o.Bridge(ctx)
	case "full":
		return o.Full(ctx)
	default:
		return fmt.Errorf("unknown mode %q (want discover, ingest, bridge or full)", mode)
	}
}
