package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/omarshaarawi/bracketbot/internal/api/madness"
	"github.com/omarshaarawi/bracketbot/internal/api/tournament"
	"github.com/omarshaarawi/bracketbot/internal/bot"
	"github.com/omarshaarawi/bracketbot/internal/config"
	"github.com/omarshaarawi/bracketbot/internal/logger"
	"github.com/omarshaarawi/bracketbot/internal/repository/memory"
	"github.com/omarshaarawi/bracketbot/internal/scheduler"
	"github.com/omarshaarawi/bracketbot/internal/server"
	"github.com/omarshaarawi/bracketbot/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Error running application", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded", "error", err)
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	logger.Init(cfg.Server.LogLevel)

	client := madness.NewClient(cfg.BracketAPI)
	backend := madness.NewAPI(client)
	tournamentAPI := tournament.NewAPI(backend, cfg.BracketAPI.TournamentID)

	location, err := time.LoadLocation(cfg.Export.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load location %q: %w", cfg.Export.Timezone, err)
	}

	repo := memory.NewRepository()
	bracketService := service.NewBracketService(tournamentAPI, repo, service.Options{
		Year:          cfg.BracketAPI.Year,
		GenerateCount: cfg.BracketAPI.GenerateCount,
		Location:      location,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sendMessage func(string) error
	if cfg.TelegramBot.Enabled() {
		telegramBot, err := bot.NewTelegramBot(cfg.TelegramBot.Token, cfg.TelegramBot.ChatID, bracketService, cfg.BracketAPI.GenerateCount)
		if err != nil {
			return err
		}
		sendMessage = telegramBot.SendMessage

		go func() {
			if err := telegramBot.Start(ctx); err != nil {
				slog.Error("Error running telegram bot", "error", err)
			}
		}()
	} else {
		slog.Info("TELEGRAM_TOKEN not set, bot disabled")
	}

	sched, err := scheduler.NewScheduler(bracketService, cfg.Export, sendMessage)
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer func() {
		err := sched.Stop()
		if err != nil {
			slog.Error("Error stopping scheduler", "error", err)
		}
	}()

	if _, err := bracketService.LoadBrackets(ctx); err != nil {
		slog.Warn("Initial bracket load failed", "error", err)
	}

	srv := server.New(cfg.Server.Addr, bracketService)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	slog.Info("Shutting down gracefully...")
	return nil
}
