package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"deskbridge/internal/audit"
	"deskbridge/internal/batch"
	"deskbridge/internal/config"
	"deskbridge/internal/directory"
	"deskbridge/internal/handlers"
	"deskbridge/internal/kvstore"
	"deskbridge/internal/otel"
	"deskbridge/internal/reconcile"
	"deskbridge/internal/topdesk"
	"deskbridge/internal/version"
	"deskbridge/pkg/bus"
	"deskbridge/pkg/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	cleanup, err := otel.Init(ctx, version.Name, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	client, err := topdesk.New(topdesk.Config{
		BaseURL:               cfg.TopDesk.BaseURL,
		Username:              cfg.TopDesk.Username,
		Password:              cfg.TopDesk.Password,
		TemplateID:            cfg.TopDesk.TemplateID,
		StockRoomCapabilityID: cfg.TopDesk.StockRoomCapabilityID,
		Timeout:               cfg.TopDesk.Timeout,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("build topdesk client")
	}

	dir := directory.New(client, cfg.CacheTTL, log.Logger)

	rec, err := reconcile.New(client, dir, cfg.TopDesk.AllowedTemplates, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("build reconciler")
	}

	// Without a database the queue lives in memory and audit is disabled.
	var store kvstore.Store = kvstore.NewMemory()
	var recorder *audit.Recorder
	if cfg.DBDSN != "" {
		pool, err := db.Open(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}

		orm, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("open orm")
		}

		store, err = kvstore.NewGorm(orm)
		if err != nil {
			log.Fatal().Err(err).Msg("build kvstore")
		}
		recorder = audit.NewRecorder(pool, log.Logger)
	}

	queue, err := batch.NewQueue(store, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("build queue")
	}

	var eventBus *bus.Bus
	if cfg.NATSURL != "" {
		eventBus, err = bus.New(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats")
		}
		defer eventBus.Close()
	}

	api, err := handlers.New(dir, client, rec, queue, eventBus, recorder, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("build api")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(handlers.RouterOptions{AllowedOrigins: cfg.AllowedOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting deskbridge")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}
