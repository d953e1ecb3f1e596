package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/auction/application"
	"github.com/cristianortiz/auctionBidder/internal/auction/infra/broadcast"
	"github.com/cristianortiz/auctionBidder/internal/auction/infra/httpapi"
	"github.com/cristianortiz/auctionBidder/internal/auction/infra/notification"
	auctionmemory "github.com/cristianortiz/auctionBidder/internal/auction/infra/repository/memory"
	auctionpg "github.com/cristianortiz/auctionBidder/internal/auction/infra/repository/postgres"
	auctionws "github.com/cristianortiz/auctionBidder/internal/auction/infra/websocket"
	"github.com/cristianortiz/auctionBidder/internal/shared/auth"
	"github.com/cristianortiz/auctionBidder/internal/shared/config"
	"github.com/cristianortiz/auctionBidder/internal/shared/db"
	"github.com/cristianortiz/auctionBidder/internal/shared/db/migrations"
	"github.com/cristianortiz/auctionBidder/internal/shared/httpserver"
	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	"github.com/cristianortiz/auctionBidder/internal/shared/websocket"
	userpg "github.com/cristianortiz/auctionBidder/internal/user/infra/repository/postgres"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Inicializa logger
	logger := logger.GetLogger()
	defer logger.Sync()

	logger.Info("Starting AuctionBidder server...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if err := setLogLevel(cfg.LogLevel); err != nil {
		logger.Fatal("Invalid LOG_LEVEL", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := application.Dependencies{
		BidIncrement:    cfg.Auction.BidIncrement,
		DefaultDuration: cfg.Auction.DefaultDuration,
		SchedulerEvery:  cfg.Scheduler.Interval,
		Clock:           time.Now,
	}

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if cfg.RunMigrations {
			logger.Info("Running database migrations...")
			if err := migrations.RunMigrations(cfg.DB.PostgresDSN()); err != nil {
				logger.Fatal("Database migration failed", zap.Error(err))
			}
			logger.Info("Database migrations completed successfully.")
		}

		// Conexión a la base de datos (singleton)
		pool, err := db.GetPostgresDBPool(ctx, cfg.DB.PostgresDSN())
		if err != nil {
			logger.Fatal("Database connection failed", zap.Error(err))
		}
		defer pool.Close()

		bids := auctionpg.NewBidRepository(pool)
		deps.Store = auctionpg.NewAuctionRepository(pool, bids)
		deps.Ledger = bids
		deps.Users = userpg.NewUserRepository(pool)
	case config.StoreDriverMemory:
		// without a user directory any authenticated identity may bid
		store := auctionmemory.NewAuctionStore()
		deps.Store = store
		deps.Ledger = store
		logger.Warn("Using in-memory store, data is lost on restart")
	}

	hub := websocket.NewHub()
	g, gctx := errgroup.WithContext(ctx)

	// real-time fan-out: redis when configured so every instance sees every event
	var relay *broadcast.Relay
	if cfg.Redis.Addr != "" {
		rdb, err := broadcast.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		deps.Broadcaster = broadcast.NewRedisBroadcaster(rdb, cfg.Redis.Channel)
		relay = broadcast.NewRelay(rdb, cfg.Redis.Channel, hub)
	} else {
		deps.Broadcaster = auctionws.NewHubBroadcaster(hub)
	}

	if cfg.NATS.URL != "" {
		notifier, err := notification.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.WinnerSubject)
		if err != nil {
			logger.Fatal("NATS connection failed", zap.Error(err))
		}
		defer notifier.Close()
		deps.Notifier = notifier
	} else {
		deps.Notifier = notification.LogNotifier{}
	}

	module := application.NewModule(deps)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}
	verifier := auth.NewVerifier(cfg.JWTSecret)
	wsHandler := auctionws.NewAuctionWSHandler(gctx, module.Service, hub)
	api := httpapi.NewHandler(module.Service)

	server := httpserver.NewServer(
		func(app *fiber.App) { app.Use(auth.Middleware(verifier)) },
		api.Register,
		wsHandler.Register,
	)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		wsHandler.ListenForMessages(gctx)
		return nil
	})
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	if cfg.Scheduler.Enabled {
		g.Go(func() error { return module.Scheduler.Run(gctx) })
	}
	g.Go(func() error {
		// Arranca el servidor HTTP
		return server.Run(gctx, cfg.HTTPAddr)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("AuctionBidder server stopped with error", zap.Error(err))
	}
	logger.Info("AuctionBidder server stopped")
}

func setLogLevel(level string) error {
	if level == "" {
		return nil
	}
	return logger.SetLevel(level)
}

