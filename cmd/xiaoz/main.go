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

	"github.com/mzwei/xiaoz/common/version"
	"github.com/mzwei/xiaoz/internal/xiaoz/app"
	"github.com/mzwei/xiaoz/internal/xiaoz/config"
	"github.com/mzwei/xiaoz/internal/xiaoz/llm"
	"github.com/mzwei/xiaoz/internal/xiaoz/observability"
	"github.com/mzwei/xiaoz/internal/xiaoz/store"
	"github.com/mzwei/xiaoz/internal/xiaoz/wechat"
)

func main() {
	// Optional .env for local development; the environment wins over the file.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("xiaoz " + version.Info())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := observability.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	slog.Info("xiaoz starting",
		"version", version.Version,
		"commit", version.GitCommit,
		"reminder_mode", cfg.Reminder.Mode,
	)

	db, err := store.New(cfg.Storage.DatabasePath)
	if err != nil {
		slog.Error("failed to open reminder database", "err", err, "path", cfg.Storage.DatabasePath)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := wechat.New(wechat.Config{BaseURL: cfg.Bridge.BaseURL})
	provider := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})

	assistant, err := app.New(app.Options{
		Config:      cfg,
		Messenger:   bridge,
		Provider:    provider,
		Persistence: db,
	})
	if err != nil {
		slog.Error("failed to initialize application", "err", err)
		os.Exit(1)
	}

	persisted, err := db.ListReminders(ctx)
	if err != nil {
		slog.Warn("failed to reload persisted reminders, starting empty", "err", err)
	} else {
		assistant.RestoreReminders(persisted)
	}

	if err := assistant.Run(ctx); err != nil {
		slog.Error("assistant stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("xiaoz stopped")
}
