package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"go-portwatch/internal/cache"
	"go-portwatch/internal/config"
	"go-portwatch/internal/history"
	"go-portwatch/internal/inventory"
	"go-portwatch/internal/logger"
	"go-portwatch/internal/poller"
	"go-portwatch/internal/probe"
	"go-portwatch/internal/session"
	"go-portwatch/internal/web"
)

func main() {
	// Load .env if exists
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("invalid log configuration")
	}
	lg := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := inventory.Open(cfg.DBPath)
	if err != nil {
		lg.Fatal().Err(err).Msg("open inventory")
	}
	defer store.Close()

	if n, err := inventory.Seed(ctx, store, cfg.InventoryFile); err != nil {
		lg.Fatal().Err(err).Str("file", cfg.InventoryFile).Msg("seed inventory")
	} else if n > 0 {
		lg.Info().Int("switches", n).Str("file", cfg.InventoryFile).Msg("inventory seeded")
	}

	client, err := session.NewClient(session.Config{
		ConnectTimeout: cfg.SwitchTimeout,
		CommandTimeout: cfg.SwitchCommandTimeout,
		KnownHostsFile: cfg.SwitchKnownHosts,
	}, logger.WithComponent("session"))
	if err != nil {
		lg.Fatal().Err(err).Msg("ssh client")
	}

	p := poller.New(poller.Config{
		Inventory:   store,
		Executor:    client,
		Prober:      probe.New(cfg.SwitchTimeout),
		Cache:       cache.New(cfg.CacheTTL),
		Tracker:     history.NewTracker(cfg.IdleThreshold, cfg.MaxEvents),
		Credentials: session.Credentials{Username: cfg.SwitchUser, Password: cfg.SwitchPass},
		SSHPort:     cfg.SwitchPort,
		Workers:     cfg.PollWorkers,
	}, logger.WithComponent("poller"))

	// Start background SSH poller
	go p.Run(ctx, cfg.PollInterval)

	app := fiber.New(fiber.Config{
		Views:                 web.NewEngine(),
		DisableStartupMessage: true,
	})
	web.SetupRoutes(app, p, store, logger.WithComponent("web"))

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			lg.Error().Err(err).Msg("shutdown")
		}
	}()

	lg.Info().Str("addr", cfg.ListenAddr()).Msg("server running")
	if err := app.Listen(cfg.ListenAddr()); err != nil {
		lg.Fatal().Err(err).Msg("listen")
	}
}
