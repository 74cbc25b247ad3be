package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/strategia/internal/config"
	"github.com/rewired-gh/strategia/internal/feed"
	"github.com/rewired-gh/strategia/internal/logger"
	"github.com/rewired-gh/strategia/internal/models"
	"github.com/rewired-gh/strategia/internal/monitor"
	"github.com/rewired-gh/strategia/internal/storage"
	"github.com/rewired-gh/strategia/internal/strategia"
	"github.com/rewired-gh/strategia/internal/telegram"
)

var (
	configPath   = flag.String("config", "configs/config.yaml", "Path to configuration file")
	snapshotPath = flag.String("snapshot", "", "Derive scenarios for one snapshot file, print them as JSON and exit")
)

func main() {
	flag.Parse()
	logger.Init("info", "text")

	cfg, err := config.Load(*configPath)
	if *snapshotPath != "" {
		if err != nil {
			logger.Warn("Using engine defaults: %v", err)
			cfg = nil
		}
		if err := runSnapshot(cfg, *snapshotPath); err != nil {
			logger.Fatal("Snapshot derivation failed: %v", err)
		}
		return
	}
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	if cfg.Feed.SnapshotPath != "" {
		if err := runSnapshot(cfg, cfg.Feed.SnapshotPath); err != nil {
			logger.Fatal("Snapshot derivation failed: %v", err)
		}
		return
	}

	store, err := storage.New(cfg.Storage.MaxDerivations, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	feedClient := feed.NewClient(
		cfg.Feed.BaseURL,
		cfg.Feed.Timeout,
		feed.ClientConfig{
			MaxRetries:     cfg.Feed.MaxRetries,
			RetryDelayBase: cfg.Feed.RetryDelayBase,
		},
	)

	mon := monitor.New(newEngine(cfg), store, feedClient, monitor.Config{
		Symbols:        cfg.Feed.Symbols,
		Cooldown:       cfg.Monitor.Cooldown,
		MinSignalScore: cfg.Monitor.MinSignalScore,
		MaxConcurrent:  cfg.Feed.MaxConcurrent,
	})

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting derivation service (interval: %v, symbols: %v, min_score: %d, cooldown: %v)",
		cfg.Feed.PollInterval,
		cfg.Feed.Symbols,
		cfg.Monitor.MinSignalScore,
		cfg.Monitor.Cooldown,
	)

	ticker := time.NewTicker(cfg.Feed.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Derivation cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	logger.Debug("Running initial derivation cycle")
	handleCycleResult(runCycle(ctx, mon, telegramClient))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled derivation cycle")
			handleCycleResult(runCycle(ctx, mon, telegramClient))
			if err := store.RotateDerivations(); err != nil {
				logger.Warn("Failed to rotate derivations: %v", err)
			}
		}
	}
}

// newEngine builds the engine with every pipeline stage traced at debug level.
func newEngine(cfg *config.Config) *strategia.Engine {
	ec := strategia.DefaultConfig()
	if cfg != nil {
		ec = cfg.StrategiaConfig()
	}
	log := logger.Component("engine")
	return strategia.New(ec, strategia.WithTrace(func(stage string, scenarios []models.Scenario) {
		ev := log.Debug().Str("stage", stage).Int("count", len(scenarios))
		for i, s := range scenarios {
			ev = ev.Str(fmt.Sprintf("s%d", i), fmt.Sprintf("%s %v/%v %s", s.Direction, s.Entry, s.Stop, s.Status))
		}
		ev.Msg("pipeline stage")
	}))
}

func runSnapshot(cfg *config.Config, path string) error {
	snap, err := feed.LoadFile(path)
	if err != nil {
		return err
	}
	res := newEngine(cfg).Derive(feed.Input(snap))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func runCycle(ctx context.Context, mon *monitor.Monitor, telegramClient *telegram.Client) error {
	startTime := time.Now()
	logger.Info("Starting derivation cycle")

	alerts, err := mon.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("failed to run cycle: %w", err)
	}

	if len(alerts) > 0 {
		logger.Info("%d symbols with new or refreshed scenarios", len(alerts))
		if telegramClient != nil {
			if err := telegramClient.Send(alerts); err != nil {
				logger.Error("Failed to send Telegram notification: %v", err)
			} else {
				logger.Info("Sent Telegram notification for %d symbols", len(alerts))
				if err := mon.RecordNotified(alerts); err != nil {
					logger.Warn("Failed to persist notification state: %v", err)
				}
			}
		} else {
			logger.Debug("Alerts derived but Telegram notifications disabled")
		}
	} else {
		logger.Info("No scenarios above quality bar this cycle")
	}

	logger.Info("Derivation cycle completed in %v", time.Since(startTime))
	return nil
}
