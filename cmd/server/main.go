package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-products/api"
	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/driver"
	"github.com/aluiziolira/go-scrape-products/driver/htmldriver"
	"github.com/aluiziolira/go-scrape-products/scraper"
	"github.com/aluiziolira/go-scrape-products/store"
)

func main() {
	defaultCfg := config.DefaultConfig()
	addrDefault := defaultCfg.Addr
	if value, ok := config.EnvString("SCRAPER_ADDR"); ok {
		addrDefault = value
	}
	dataDirDefault := defaultCfg.DataDir
	if value, ok := config.EnvString("SCRAPER_DATA_DIR"); ok {
		dataDirDefault = value
	}
	intervalDefault := defaultCfg.ScrapeInterval
	if value, ok, err := config.EnvDuration("SCRAPER_INTERVAL"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_INTERVAL: %v\n", err)
		os.Exit(1)
	} else if ok {
		intervalDefault = value
	}
	driverDefault := defaultCfg.DriverKind
	if value, ok := config.EnvString("SCRAPER_DRIVER"); ok {
		driverDefault = value
	}
	envDefault := defaultCfg.Environment
	if value, ok := config.EnvString("SCRAPER_ENV"); ok {
		envDefault = value
	}

	addr := flag.String("addr", addrDefault, "HTTP listen address")
	dataDir := flag.String("data-dir", dataDirDefault, "Directory for JSON collections")
	websitesFile := flag.String("websites", "", "Optional JSON file with website configurations")
	interval := flag.Duration("interval", intervalDefault, "Scheduled scrape interval (0 disables)")
	driverKind := flag.String("driver", driverDefault, "Page driver: rod or html")
	environment := flag.String("env", envDefault, "Deployment environment name")
	headless := flag.Bool("headless", defaultCfg.Headless, "Run the browser headless (rod driver)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.Addr = *addr
	cfg.DataDir = *dataDir
	cfg.ScrapeInterval = *interval
	cfg.DriverKind = *driverKind
	cfg.Environment = *environment
	cfg.Headless = *headless
	cfg.Verbose = *verbose

	if *websitesFile != "" {
		if err := cfg.LoadWebsites(*websitesFile); err != nil {
			slog.Error("loading website configuration", slog.Any("error", err))
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	st := store.New(cfg.DataDir)
	if err := st.Initialize(); err != nil {
		slog.Error("initialising store", slog.Any("error", err))
		os.Exit(1)
	}
	if pruned, err := st.PruneLogsOlderThan(cfg.LogRetention); err != nil {
		slog.Error("pruning scrape logs", slog.Any("error", err))
	} else if pruned > 0 {
		slog.Info("pruned scrape logs", slog.Int("removed", pruned))
	}

	drv, err := newDriver(cfg)
	if err != nil {
		slog.Error("initialising driver", slog.Any("error", err))
		os.Exit(1)
	}

	orch := scraper.New(cfg, drv, st)
	server := api.New(cfg, st, orch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ScrapeInterval > 0 {
		go orch.RunScheduled(ctx, cfg.ScrapeInterval)
		slog.Info("scheduler enabled", slog.Duration("interval", cfg.ScrapeInterval))
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}
	go func() {
		slog.Info("http server listening",
			slog.String("addr", cfg.Addr),
			slog.String("driver", cfg.DriverKind),
			slog.String("env", cfg.Environment),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.Any("error", err))
	}
}

func newDriver(cfg *config.Config) (driver.Driver, error) {
	switch cfg.DriverKind {
	case "rod":
		return driver.NewRodDriver(driver.RodOptions{
			Headless:  cfg.Headless,
			UserAgent: cfg.UserAgent,
		})
	case "html":
		return htmldriver.New(htmldriver.WithUserAgent(cfg.UserAgent)), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.DriverKind)
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
