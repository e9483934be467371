package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/baraholka/telegram-baraholka-bot/config"
	"github.com/baraholka/telegram-baraholka-bot/internal/bot"
	"github.com/baraholka/telegram-baraholka-bot/internal/drive"
	"github.com/baraholka/telegram-baraholka-bot/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	if cfg.BotToken == "" {
		log.Fatal().Msg("BOT_TOKEN is not set")
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := st.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close mongodb connection")
		}
	}()

	uploader := drive.NewClient(drive.ClientOpts{
		ClientID:     cfg.DriveClientID,
		ClientSecret: cfg.DriveClientSecret,
		RefreshToken: cfg.DriveRefreshToken,
		FolderID:     cfg.DriveFolderID,
	})

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telegram bot")
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// Register bot commands for Telegram's command menu
	bot.RegisterCommands(tg)

	g, ctx := errgroup.WithContext(ctx)

	// Run bot update loop
	g.Go(func() error {
		return runBot(ctx, tg, st, uploader)
	})

	// Run liveness endpoint
	g.Go(func() error {
		return runHealthServer(ctx, cfg.AppPort)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, st *store.Store, uploader bot.Uploader) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := bot.NewBot(tg, st.Listings, st.Users, uploader)
	defer b.Shutdown()

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

// runHealthServer exposes GET / so the hosting platform's checks see the
// process as alive while the bot itself only makes outbound calls.
func runHealthServer(ctx context.Context, port int) error {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	log.Info().Int("port", port).Msg("health endpoint listening")

	select {
	case <-ctx.Done():
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Warn().Err(err).Msg("health server shutdown failed")
		}
		return ctx.Err()
	case err := <-errc:
		return err
	}
}
