package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"conduit/internal/bus"
	"conduit/internal/command"
	"conduit/internal/eventlog"
	jwttoken "conduit/internal/jwt_token"
	"conduit/internal/platform/config"
	"conduit/internal/platform/httpserver"
	"conduit/internal/platform/kafka"
	"conduit/internal/platform/logger"
	"conduit/internal/platform/metrics"
	"conduit/internal/platform/postgres"
	platformredis "conduit/internal/platform/redis"
	"conduit/internal/policy"
	"conduit/internal/policycache"
	"conduit/internal/projection"
	"conduit/internal/scope"
	httptransport "conduit/internal/transport/http"
)

// main wires the command pipeline end to end and keeps the server
// lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		eventLog   eventlog.Log
		workspaces scope.WorkspaceStore
		registry   projection.Registry
	)
	if db != nil {
		eventLog = eventlog.NewPostgresLog(db)
		workspaces = scope.NewPostgresWorkspaceStore(db)
		registry = projection.NewPostgresRegistry(db)
		log.Info("using postgres stores")
	} else {
		eventLog = eventlog.NewMemoryLog()
		workspaces = scope.NewMemoryWorkspaceStore()
		registry = projection.NewMemoryRegistry()
		log.Info("using in-memory stores")
	}

	// The grant read model is process-local regardless of store choice;
	// the projector keeps it caught up from the event log.
	readModel := scope.NewMemoryReadModel()

	guard := scope.NewGuard(readModel, workspaces, log)
	engine := policy.NewEngine()
	runner := command.NewRunner(eventLog, log, command.WithRunnerMetrics(m))
	pipeline := command.NewHandler(guard, engine, runner, log, command.WithHandlerMetrics(m))

	publish, closePublisher, err := buildPublisher(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer closePublisher()

	dispatcher := command.NewDispatcher(pipeline, publish)
	grantService := scope.NewGrantService(workspaces, log)
	grantService.RegisterHandlers(dispatcher)

	projector := projection.NewGrantsProjector(eventLog, registry, readModel, log,
		projection.WithPollInterval(cfg.ProjectionPollInterval),
	)

	// Policy cache: redis pub/sub when configured, in-process otherwise.
	unsubscribe, err := registerPolicyCache(ctx, cfg, log, m, readModel)
	if err != nil {
		return err
	}
	defer func() { _ = unsubscribe() }()

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	commandHandler := httptransport.NewCommandHandler(dispatcher, log)
	router := httptransport.NewRouter(commandHandler, jwttoken.NewJWTServiceAdapter(jwtService), log)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return projector.Run(gctx)
	})

	g.Go(func() error {
		log.Info("starting conduit", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildPublisher selects the event publish sink: Kafka when brokers are
// configured, the in-memory bus otherwise.
func buildPublisher(ctx context.Context, cfg config.Server, log *slog.Logger, m *metrics.Metrics) (command.PublishFunc, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		memBus := bus.NewMemoryBus()
		log.Info("using in-memory event bus")
		return memBus.Publish, func() {}, nil
	}

	publisher, err := kafka.NewPublisher(ctx, kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, log, kafka.WithPublisherMetrics(m))
	if err != nil {
		return nil, nil, err
	}
	log.Info("publishing events to kafka", "topic", cfg.Kafka.Topic)

	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := publisher.Close(closeCtx); err != nil {
			log.Warn("kafka publisher close failed", "error", err)
		}
	}
	return publisher.Publish, closeFn, nil
}

// registerPolicyCache subscribes the process-local policy cache to the
// configured notification channel.
func registerPolicyCache(ctx context.Context, cfg config.Server, log *slog.Logger, m *metrics.Metrics, readModel *scope.MemoryReadModel) (policycache.Unsubscribe, error) {
	var notifier policycache.Notifier

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		notifier = policycache.NewRedisNotifier(redisClient.Client, log)
		log.Info("listening for policy changes on redis", "channel", policycache.DefaultChannel)
	} else {
		notifier = policycache.NewMemoryNotifier()
		log.Info("using in-process policy change notifier")
	}

	cache := policycache.New(notifier, readModel, log, policycache.WithCacheMetrics(m))
	return cache.Register(ctx, "")
}
