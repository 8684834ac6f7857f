package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	donationservice "givebridge/internal/donation/service"
	donationstore "givebridge/internal/donation/store"
	identityservice "givebridge/internal/identity/service"
	identitystore "givebridge/internal/identity/store"
	"givebridge/internal/identity/token"
	matchservice "givebridge/internal/match/service"
	matchstore "givebridge/internal/match/store"
	notificationservice "givebridge/internal/notification/service"
	notificationstore "givebridge/internal/notification/store"
	"givebridge/internal/platform/config"
	"givebridge/internal/platform/httpserver"
	"givebridge/internal/platform/logger"
	"givebridge/internal/platform/metrics"
	"givebridge/internal/platform/postgres"
	platformredis "givebridge/internal/platform/redis"
	ratingservice "givebridge/internal/rating/service"
	ratingstore "givebridge/internal/rating/store"
	httptransport "givebridge/internal/transport/http"
	"givebridge/pkg/platform/audit"
	auditpublisher "givebridge/pkg/platform/audit/publisher"
	auditmemory "givebridge/pkg/platform/audit/store/memory"
	auditpg "givebridge/pkg/platform/audit/store/postgres"
	auditworker "givebridge/pkg/platform/audit/worker"
	txcontext "givebridge/pkg/platform/tx"
)

const (
	tokenIssuer   = "givebridge"
	tokenAudience = "givebridge"
)

// donationPersistence is the union of what the donation and match services
// need from donation storage. Both store implementations satisfy it.
type donationPersistence interface {
	donationservice.Store
	matchservice.DonationStore
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		donations   donationPersistence
		matches     matchservice.Store
		notes       notificationservice.Store
		ratings     ratingservice.Store
		auditStore  audit.Store
		auditOutbox *auditpg.Store
		runner      txcontext.Runner
		health      = map[string]httptransport.HealthChecker{}
	)

	if cfg.Postgres.URL != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		donations = donationstore.NewPostgres(db)
		matches = matchstore.NewPostgres(db)
		notes = notificationstore.NewPostgres(db)
		ratings = ratingstore.NewPostgres(db)
		auditOutbox = auditpg.New(db)
		auditStore = auditOutbox
		runner = postgres.NewTxRunner(db)
		health["postgres"] = dbHealth{db: db}
	} else {
		log.Warn("POSTGRES_URL not set, running with in-memory stores")
		donations = donationstore.NewInMemory()
		matches = matchstore.NewInMemory()
		notes = notificationstore.NewInMemory()
		ratings = ratingstore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
		runner = txcontext.NewMemoryRunner()
	}

	var sessions identityservice.SessionStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = identitystore.NewRedis(redisClient.Client)
		health["redis"] = redisClient
	} else {
		sessions = identitystore.NewInMemory()
	}

	jwtService := token.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)
	identity := identityservice.NewService(jwtService, sessions)

	notifier := notificationservice.NewService(notes)
	donationSvc := donationservice.NewService(donations, auditStore, m)
	matchSvc := matchservice.NewService(matches, donations, notifier, auditStore, runner, m)
	ratingSvc := ratingservice.NewService(ratings, matches, donations, auditStore, runner, m)

	if auditOutbox != nil && len(cfg.Kafka.Brokers) > 0 {
		publisher, err := auditpublisher.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka client failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		if err := publisher.EnsureTopic(ctx); err != nil {
			log.Error("kafka topic setup failed", "error", err)
			os.Exit(1)
		}
		worker := auditworker.NewWorker(auditOutbox, publisher, log, time.Second)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		Resolver:       identity,
		Donations:      donationSvc,
		Matches:        matchSvc,
		Ratings:        ratingSvc,
		Notifications:  notifier,
		Health:         health,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting givebridge", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
