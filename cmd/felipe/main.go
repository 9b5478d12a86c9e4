package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"felipe/internal/api"
	"felipe/internal/config"
	"felipe/internal/engine"
	"felipe/internal/llm"
	"felipe/internal/logger"
	"felipe/internal/notify"
	"felipe/internal/polymarket"
	"felipe/internal/store/sqlite"
	"felipe/internal/tavily"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

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
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
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

	// Initialize storage
	st, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	// Initialize evidence source clients
	polyClient := polymarket.NewClient(cfg.Polymarket.APIBaseURL, cfg.Polymarket.Timeout)
	tavilyClient := tavily.NewClient(cfg.Tavily.APIURL, cfg.Tavily.APIKey, cfg.Tavily.Timeout)

	// Initialize generation backend
	manager, err := llm.NewManager(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("Failed to initialize LLM providers: %v", err)
	}
	logger.Info("LLM providers ready: %s", manager.Name())

	// Initialize Telegram ops notifications
	var notifier notify.Notifier = notify.Noop{}
	if cfg.Telegram.Enabled {
		telegramNotifier, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram notifier: %v", err)
		}
		notifier = telegramNotifier
		logger.Info("Telegram notifications enabled")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Wire the pipeline and serve
	pipeline := engine.New(manager, polyClient, tavilyClient)
	server := api.NewServer(st, pipeline, polyClient, notifier, cfg.Storage.HistoryLimit)

	if err := server.Start(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout); err != nil {
		logger.Fatal("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
