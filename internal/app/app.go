// Package app wires configuration, storage, clients, and the risk service
// into a single application core shared by cmd/argus-server and tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/argus/internal/clients/eodhd"
	"github.com/bobmcallan/argus/internal/clients/gemini"
	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/risk"
	"github.com/bobmcallan/argus/internal/storage/badger"
)

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Market      interfaces.MarketDataClient
	Oracle      interfaces.OracleClient
	RiskService interfaces.RiskService
	BatchHub    *risk.BatchWSHub
	StartupTime time.Time

	schedulerCancel context.CancelFunc
}

// NewApp initializes storage, clients, and the risk service from config.
// configPath may be empty, in which case ARGUS_CONFIG and then a config file
// next to the binary are tried before falling back to defaults.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("ARGUS_CONFIG")
	}
	if configPath == "" {
		candidate := filepath.Join(binaryDir(), "argus.toml")
		if _, err := os.Stat(candidate); err == nil {
			configPath = candidate
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	// Resolve relative storage path to the binary directory so the server is
	// self-contained regardless of the working directory.
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binaryDir(), config.Storage.Path)
	}

	storageManager, err := badger.NewManager(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var market interfaces.MarketDataClient
	if config.Clients.EODHD.APIKey != "" {
		market = eodhd.NewClient(config.Clients.EODHD.APIKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
	} else {
		storageManager.Close()
		return nil, fmt.Errorf("EODHD API key not configured (set ARGUS_EODHD_API_KEY)")
	}

	var oracle interfaces.OracleClient
	if config.Clients.Gemini.Enabled && config.Clients.Gemini.APIKey != "" {
		client, err := gemini.NewClient(context.Background(), config.Clients.Gemini.APIKey,
			gemini.WithModel(config.Clients.Gemini.Model),
			gemini.WithLogger(logger),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Gemini client unavailable, sentiment will run from cache only")
		} else {
			oracle = client
		}
	} else {
		logger.Warn().Msg("Gemini not configured, sentiment will run from cache only")
	}

	hub := risk.NewBatchWSHub(logger)
	go hub.Run()

	riskService := risk.NewService(
		storageManager,
		market,
		oracle,
		config.Risk.GetBenchmarkTicker(),
		logger,
		risk.WithBatchNotifier(hub),
		risk.WithStreamDelay(config.Risk.GetStreamDelay()),
		risk.WithDefaultLookback(config.Risk.GetLookbackDays()),
	)

	return &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Market:      market,
		Oracle:      oracle,
		RiskService: riskService,
		BatchHub:    hub,
		StartupTime: time.Now(),
	}, nil
}

// StartScheduler launches the background re-score loop when a refresh
// interval is configured. A zero interval disables it.
func (a *App) StartScheduler() {
	interval := a.Config.Risk.GetRefreshInterval()
	if interval <= 0 {
		a.Logger.Info().Msg("Risk refresh scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel

	a.Logger.Info().Dur("interval", interval).Msg("Starting risk refresh scheduler")
	go startRiskScheduler(ctx, a.RiskService, a.Logger, interval)
}

// Close stops background work and releases storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
	}
	if a.BatchHub != nil {
		a.BatchHub.Stop()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}

func binaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
