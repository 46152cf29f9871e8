// Command engine boots the trading engine core: the event bus, every
// per-symbol pipeline, the automation manager, the risk guard, and the
// read-only observability surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-desktop/pulsecore/internal/api"
	"github.com/atlas-desktop/pulsecore/internal/broker"
	"github.com/atlas-desktop/pulsecore/internal/config"
	"github.com/atlas-desktop/pulsecore/internal/datasource"
	"github.com/atlas-desktop/pulsecore/internal/entrymanager"
	"github.com/atlas-desktop/pulsecore/internal/events"
	"github.com/atlas-desktop/pulsecore/internal/orchestrator"
	"github.com/atlas-desktop/pulsecore/internal/strategyengine"
	"github.com/shopspring/decimal"
)

func main() {
	host := flag.String("host", "0.0.0.0", "Observability surface host")
	port := flag.Int("port", 8080, "Observability surface port")
	configPath := flag.String("config", "", "Path to config file (any viper-supported format)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("starting engine",
		zap.Strings("symbols", cfg.Trading.Symbols),
		zap.Strings("timeframes", cfg.Trading.Timeframes),
	)

	bus := events.New(logger, cfg.EventBus)

	// The broker, market-data source, strategy engine, and entry manager
	// are pluggable integrations; the engine runs against in-memory
	// fakes until a real integration is wired in their place.
	brkr := broker.NewFake(decimal.NewFromInt(10000))
	source := datasource.NewFake()
	engine := &strategyengine.Fake{}
	entryMgr := &entrymanager.Fake{}

	orch := orchestrator.New(cfg, logger, bus, brkr, source, engine, entryMgr)

	apiCfg := api.DefaultConfig()
	apiCfg.Host = *host
	apiCfg.Port = *port
	apiServer := api.NewServer(logger, apiCfg, orch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		logger.Fatal("failed to start orchestrator", zap.Error(err))
	}

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("observability surface error", zap.Error(err))
		}
	}()

	logger.Info("engine started",
		zap.String("http", fmt.Sprintf("http://%s:%d", *host, *port)),
		zap.String("ws", fmt.Sprintf("ws://%s:%d/ws/events", *host, *port)),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	orch.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during observability surface shutdown", zap.Error(err))
	}

	logger.Info("engine stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
