package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"civreg/internal/audit"
	"civreg/internal/certificate"
	"civreg/internal/event/allocator"
	eventhandler "civreg/internal/event/handler"
	"civreg/internal/event/integrity"
	eventservice "civreg/internal/event/service"
	eventstore "civreg/internal/event/store"
	jwttoken "civreg/internal/jwt_token"
	notifhandler "civreg/internal/notification/handler"
	"civreg/internal/notification/push"
	notifservice "civreg/internal/notification/service"
	notifstore "civreg/internal/notification/store"
	"civreg/internal/platform/config"
	"civreg/internal/platform/httpserver"
	"civreg/internal/platform/kafka"
	"civreg/internal/platform/logger"
	"civreg/internal/platform/metrics"
	"civreg/internal/platform/postgres"
	platformredis "civreg/internal/platform/redis"
	httptransport "civreg/internal/transport/http"
	"civreg/pkg/domain"
)

// main wires dependencies and owns process lifecycle. Stores fall back to
// in-memory implementations when Postgres is not configured, so a bare
// `go run ./cmd/server` serves a fully working single-node registry.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db         *sql.DB
		events     eventstore.EventStore
		sequences  eventstore.SequenceStore
		notifs     notifstore.NotificationStore
		auditStore audit.Store
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		for _, schema := range []string{eventstore.Schema, notifstore.Schema, audit.Schema} {
			if _, err := db.ExecContext(ctx, schema); err != nil {
				return err
			}
		}
		events = eventstore.NewPostgresEventStore(db)
		sequences = eventstore.NewPostgresSequenceStore(db)
		notifs = notifstore.NewPostgresNotificationStore(db)
		auditStore = audit.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		events = eventstore.NewInMemoryEventStore()
		sequences = eventstore.NewInMemorySequenceStore()
		notifs = notifstore.NewInMemoryNotificationStore()
		auditStore = audit.NewInMemoryStore()
		log.Info("using in-memory stores")
	}
	if cfg.SeedDemo {
		seeded := eventstore.SeedDemoRecords(events, domain.NewUserID())
		log.Info("seeded demo records", "count", len(seeded))
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	var broker push.Broker
	if redisClient != nil {
		defer redisClient.Close()
		broker = push.NewRedisBroker(redisClient, log)
		log.Info("using redis push broker")
	} else {
		broker = push.NewInMemoryBroker()
	}
	defer broker.Close()

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
	if err != nil {
		return err
	}
	defer producer.Close()

	managers, err := parseManagers(cfg.ManagerIDs)
	if err != nil {
		return err
	}
	if len(managers) == 0 {
		log.Warn("no manager ids configured, review notifications have no audience")
	}

	auditPublisher := audit.NewPublisher(256, log)
	auditWorker := audit.NewWorker(auditStore, producer, auditPublisher.Inbox(), log)
	auditReader := audit.NewService(auditStore)

	notifService := notifservice.New(notifs, broker, notifservice.NewStaticDirectory(managers), m, log)
	eventService := eventservice.New(
		events,
		allocator.New(events, sequences),
		integrity.NewChecker(events),
		notifService,
		auditPublisher,
		certificate.DevRenderer{},
		certificate.LogMailer{Logger: log},
		m,
		log,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	health := map[string]httptransport.HealthChecker{}
	if db != nil {
		health["postgres"] = pingChecker{db}
	}
	if redisClient != nil {
		health["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger: log,
		Handlers: []httptransport.FeatureHandler{
			eventhandler.New(eventService, auditReader, log, jwtService),
			notifhandler.New(notifService, log, jwtService),
		},
		Health: health,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting civreg server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := auditWorker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// parseManagers converts configured IDs up front so a typo fails at startup,
// not at first submit.
func parseManagers(raw []string) ([]domain.UserID, error) {
	out := make([]domain.UserID, 0, len(raw))
	for _, s := range raw {
		id, err := domain.ParseUserID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// pingChecker adapts *sql.DB to the router's health interface.
type pingChecker struct {
	db *sql.DB
}

func (p pingChecker) Health(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
