package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	authhandler "libris/internal/auth/handler"
	authservice "libris/internal/auth/service"

	"libris/internal/audit"
	"libris/internal/catalog"
	"libris/internal/directory"
	jwttoken "libris/internal/jwt_token"
	"libris/internal/loan"
	loanmetrics "libris/internal/loan/metrics"
	"libris/internal/loan/models"
	"libris/internal/loan/service"
	loanstore "libris/internal/loan/store/loans"
	policystore "libris/internal/loan/store/policy"
	"libris/internal/loan/sweeper"
	"libris/internal/media"
	"libris/internal/notify"
	"libris/internal/platform/config"
	"libris/internal/platform/httpserver"
	"libris/internal/platform/logger"
	"libris/internal/platform/metrics"
	platformredis "libris/internal/platform/redis"
)

func main() {
	log := logger.New()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Loan persistence: Postgres when configured, in-memory otherwise.
	var loans service.LoanStore
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := loanstore.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("postgres schema failed", "error", err)
			os.Exit(1)
		}
		loans = pg
		log.Info("loan store: postgres")
	} else {
		loans = loanstore.NewInMemory()
		log.Info("loan store: in-memory")
	}

	policies := policystore.NewInMemory(models.DefaultPolicy())

	books := catalog.NewInMemory()
	catalog.SeedSampleBooks(books)

	users := directory.NewInMemory()
	staffPassword := os.Getenv("STAFF_SEED_PASSWORD")
	if staffPassword == "" {
		staffPassword = "biblioteca"
	}
	if _, err := directory.SeedSampleUsers(users, staffPassword); err != nil {
		log.Error("user seed failed", "error", err)
		os.Exit(1)
	}

	// Audit sinks: Kafka when brokers are configured, structured log
	// otherwise, plus a Postgres archive whenever a database is present.
	var sinks audit.Fanout
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka audit publisher failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		sinks = append(sinks, kafkaPublisher)
		log.Info("audit sink: kafka", "topic", cfg.AuditTopic)
	} else {
		sinks = append(sinks, audit.NewLogPublisher(log))
		log.Info("audit sink: log")
	}
	if cfg.PostgresURL != "" {
		archive, err := audit.NewArchive(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("audit archive failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = archive.Close() }()
		sinks = append(sinks, archive)
		log.Info("audit sink: postgres archive")
	}
	var auditor audit.Publisher = sinks

	// Notifications: Redis pub/sub when configured, log otherwise.
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		notifier = notify.NewRedisNotifier(redisClient)
		log.Info("notifier: redis")
	}

	platformMetrics := metrics.New()
	domainMetrics := loanmetrics.New()

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "libris", "libris-admin")

	loanSvc := loan.NewService(loans, policies, books, users,
		service.WithLogger(log),
		service.WithAuditPublisher(auditor),
		service.WithNotifier(notifier),
		service.WithMetrics(domainMetrics),
	)
	authSvc := authservice.New(users, tokens,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(auditor),
	)
	mediaSvc := media.New(media.NewMemoryBlobStore(), books, log)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	authhandler.New(authSvc, log, platformMetrics).Register(router)
	loan.NewHandler(loanSvc, log, platformMetrics, tokens).Register(router)
	media.NewHandler(mediaSvc, log, platformMetrics, tokens).Register(router)

	server := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := sweeper.New(loanSvc, cfg.SweepInterval, log).Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
