package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rewired-gh/trafficsurvey/internal/aggregator"
	"github.com/rewired-gh/trafficsurvey/internal/chart"
	"github.com/rewired-gh/trafficsurvey/internal/config"
	"github.com/rewired-gh/trafficsurvey/internal/logger"
	"github.com/rewired-gh/trafficsurvey/internal/metrics"
	"github.com/rewired-gh/trafficsurvey/internal/source"
	"github.com/rewired-gh/trafficsurvey/internal/storage"
	"github.com/rewired-gh/trafficsurvey/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file (empty for defaults)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logCfg := cfg.GetLoggingConfig()
	logger.Init(logCfg.Level, logCfg.Format)
	defer logger.Sync()
	logger.Info("Configuration loaded from %s", *configPath)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	survey := cfg.GetSurveyConfig()
	s := &session{
		lines: readLines(ctx, os.Stdin),
		out:   os.Stdout,
		source: source.NewCSV(
			survey.DataDir,
			survey.FilePattern,
			survey.KnownJunctions,
		),
		aggregator: aggregator.New(aggregator.Options{
			JunctionA: survey.JunctionA,
			JunctionB: survey.JunctionB,
		}),
		results: storage.NewResultsFile(cfg.Results.FilePath, 0644),
		minYear: survey.MinYear,
		maxYear: survey.MaxYear,
	}

	// Initialize report history
	if cfg.History.Enabled {
		history, err := storage.Open(cfg.History.DBPath, cfg.History.MaxReports)
		if err != nil {
			logger.Fatal("Failed to initialize report history: %v", err)
		}
		defer func() {
			if err := history.Close(); err != nil {
				logger.Error("Failed to close report history: %v", err)
			}
		}()
		s.history = history
		logger.Info("Report history enabled at %s (max %d reports)", cfg.History.DBPath, cfg.History.MaxReports)
	}

	// Initialize Telegram client
	tg := cfg.GetTelegramConfig()
	if tg.Enabled {
		telegramClient, err := telegram.NewClient(tg.BotToken, tg.ChatID, tg.MaxRetries, tg.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		s.notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	if cfg.Metrics.Enabled {
		s.recorder = metrics.New()
		s.metricsPath = cfg.Metrics.TextfilePath
		logger.Debug("Writing metrics to %s", cfg.Metrics.TextfilePath)
	}

	if cfg.Chart.Enabled {
		s.charts = chart.New(os.Stdout, cfg.Chart.Width)
	}

	logger.Debug("Survey files in %s, junctions %q and %q", survey.DataDir, survey.JunctionA, survey.JunctionB)

	if err := s.run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Session ended with error: %v", err)
	}
	logger.Info("Session finished")
}
