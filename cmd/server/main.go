package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"priceoracle/internal/config"
	"priceoracle/internal/freshness"
	"priceoracle/internal/gumball"
	gumballhttp "priceoracle/internal/gumball/transport/http"
	"priceoracle/internal/ledger"
	"priceoracle/internal/metrics"
	oracleservice "priceoracle/internal/oracle/service"
	oraclehttp "priceoracle/internal/oracle/transport/http"
	"priceoracle/internal/replay"
	"priceoracle/internal/subscription"
	subscriptionrepository "priceoracle/internal/subscription/repository"
	subscriptionservice "priceoracle/internal/subscription/service"
	subscriptionhttp "priceoracle/internal/subscription/transport/http"
	"priceoracle/pkg/db"
	"priceoracle/pkg/jwt"
	"priceoracle/pkg/logger"
	"priceoracle/pkg/middleware"
)

var server *http.Server

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("config").WithError(err).Fatal("Config could not be loaded")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	middleware.SetLogger(log.Component("http"))
	metrics.InitMetrics()
	log.Info("Price oracle starting...")

	var database *sql.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Database connection failed")
		}
		defer database.Close()
		if err := db.Apply(context.Background(), database); err != nil {
			log.WithError(err).Fatal("Database migrations failed")
		}
		log.Info("Connected to PostgreSQL")
	}

	guard, closeGuard, err := openReplayGuard(cfg, database)
	if err != nil {
		log.WithError(err).Fatal("Replay store could not be opened")
	}
	defer closeGuard.Close()
	log.WithField("backend", cfg.ReplayBackend).Info("Replay store ready")
	warnEphemeralState(log, cfg, database != nil)

	oracleService, err := oracleservice.NewService(cfg.OraclePublicKey, guard, log.Component("oracle"))
	if err != nil {
		log.WithError(err).Fatal("Oracle key rejected")
	}
	oracleHandler := oraclehttp.NewOracleHandler(oracleService)

	var subRepo subscriptionservice.SubscriptionRepository
	if database != nil {
		subRepo = subscriptionrepository.NewSubscriptionRepository(sqlx.NewDb(database, "postgres"))
	} else {
		log.Warn("DATABASE_URL is empty, subscriptions are kept in memory")
		subRepo = subscriptionrepository.NewMemoryRepository()
	}

	subLog := log.Component("subscription")
	fees := ledger.NewBreaker("fees", ledger.NewVault(cfg.FeeAsset), log.Component("ledger"))
	subService := subscriptionservice.NewService(
		subRepo,
		fees,
		oracleService,
		jwt.NewAuthorizer(cfg.AdminJWTSecret),
		subscriptionservice.Config{MonthlyFee: cfg.Fee(), FeeAsset: cfg.FeeAsset},
		subscriptionservice.WithLogger(subLog),
		subscriptionservice.WithEventSink(subscriptionservice.EventSinkFunc(func(_ context.Context, u subscription.Update) {
			subLog.WithFields(logrus.Fields{
				"credential": u.CredentialID,
				"expires_at": u.NewExpirationTime,
			}).Info("Subscription updated")
		})),
	)
	subHandler := subscriptionhttp.NewSubscriptionHandler(subService)

	reporter, err := subscriptionservice.NewReporter(subRepo, cfg.ReportSchedule, subLog)
	if err != nil {
		log.WithError(err).Fatal("Invalid REPORT_SCHEDULE")
	}
	reporter.Start()
	defer reporter.Stop()

	earnings := ledger.NewBreaker("gumball", ledger.NewVault(cfg.FeeAsset), log.Component("ledger"))
	machine := gumball.NewMachine(
		oracleService,
		freshness.NewGate(cfg.PriceLifetime()),
		earnings,
		cfg.FeeAsset,
		cfg.GumballOwnerToken,
		log.Component("gumball"),
	)
	gumballHandler := gumballhttp.NewGumballHandler(machine)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://localhost:3000", "http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	limiter.StartCleanup(time.Minute, 10*time.Minute, stopCleanup)

	r.Use(middleware.MetricsMiddleware)
	r.Use(limiter.Middleware)
	r.Use(middleware.ValidateRequest)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).Handle("/metrics", promhttp.Handler())

	r.Post("/api/prices/verify", oracleHandler.VerifyPrice)
	r.Get("/api/oracle/key", oracleHandler.PublicKey)
	r.Route("/api/subscriptions", subHandler.Routes)
	r.Route("/api/admin", subHandler.AdminRoutes)
	r.Route("/api/gumball", gumballHandler.Routes)

	server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithField("addr", cfg.HTTPAddr).Info("Server running")

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Info("Shutdown signal received, starting graceful shutdown")
		shutdownServer(log)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("Server failed")
	}
}

func shutdownServer(log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	log.Info("Server stopped")
}

// warnEphemeralState logs every piece of state that does not survive a
// restart. The fee and gumball vaults stand in for an external ledger.
func warnEphemeralState(log *logger.Logger, cfg *config.Config, hasDatabase bool) {
	log.WithField("asset", cfg.FeeAsset).Warn("Fee and gumball accounts are in-memory vaults, balances are lost on restart")
	if cfg.ReplayBackend == config.ReplayMemory && hasDatabase {
		log.Warn("REPLAY_BACKEND=memory with a database configured, used nonces are forgotten on restart")
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openReplayGuard picks the nonce store named by REPLAY_BACKEND. The returned
// closer releases whatever the store holds open.
func openReplayGuard(cfg *config.Config, database *sql.DB) (replay.Guard, io.Closer, error) {
	switch cfg.ReplayBackend {
	case config.ReplayPebble:
		g, err := replay.OpenPebble(cfg.PebblePath)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case config.ReplayPostgres:
		if database == nil {
			return nil, nil, fmt.Errorf("replay backend %q needs a database", cfg.ReplayBackend)
		}
		return replay.NewPostgresGuard(database), nopCloser{}, nil
	case config.ReplayRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return replay.NewRedisGuard(client, ""), client, nil
	default:
		return replay.NewMemoryGuard(), nopCloser{}, nil
	}
}
