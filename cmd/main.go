package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pulsewall/pulsewall/internal/infrastructure/auth"
	"github.com/pulsewall/pulsewall/internal/infrastructure/configs"
	"github.com/pulsewall/pulsewall/internal/infrastructure/events"
	"github.com/pulsewall/pulsewall/internal/infrastructure/logging"
	"github.com/pulsewall/pulsewall/internal/infrastructure/messaging"
	"github.com/pulsewall/pulsewall/internal/infrastructure/profanity"
	"github.com/pulsewall/pulsewall/internal/infrastructure/ratelimiter"
	"github.com/pulsewall/pulsewall/internal/infrastructure/tracing"
	"github.com/pulsewall/pulsewall/internal/infrastructure/ws"
	"github.com/pulsewall/pulsewall/internal/persistence/db"
	"github.com/pulsewall/pulsewall/internal/persistence/repository"
	"github.com/pulsewall/pulsewall/internal/poll"
	"github.com/pulsewall/pulsewall/internal/presentation/api"
	eventsHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/events"
	healthHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/health"
	liveHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/live"
	messagesHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/messages"
	pollsHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/polls"
)

const serviceName = "pulsewall-api"

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := logging.NewLogger(logging.NewDefaultConfig())
	logger.Init()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	mongoClient, err := db.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal(err)
	}
	defer db.DisconnectMongo(context.Background(), mongoClient)

	database := db.GetDatabase(mongoClient, cfg.Mongo)

	eventRepository := repository.NewEventRepository(database)
	pollRepository := repository.NewPollRepository(database)
	messageRepository := repository.NewMessageRepository(database)
	auditRepository := repository.NewAuditLogRepository(database)

	for _, ensure := range []func(context.Context) error{
		eventRepository.EnsureIndexes,
		pollRepository.EnsureIndexes,
		messageRepository.EnsureIndexes,
		auditRepository.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatalf("Failed to ensure indexes: %v", err)
		}
	}

	wsCore := ws.NewCore(logger)
	go wsCore.Run()
	defer wsCore.Stop()

	// Messaging is optional: without an AMQP URI the wall runs standalone and
	// no audit trail is written.
	var pollSink poll.Sink
	var messagePublisher *events.MessagePublisher

	if cfg.AMQP.URI != "" {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.AMQP.URI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		pollSink = events.NewPollPublisher(rabbitmq)
		messagePublisher = events.NewMessagePublisher(rabbitmq)

		auditConsumer := events.NewAuditConsumer(rabbitmq, auditRepository, logger)
		go auditConsumer.Listen()
	}

	pollService := poll.NewService(pollRepository, eventRepository, wsCore, pollSink, logger, cfg.Poll.RemovalDelay)
	defer pollService.Stop()

	if err := pollService.RecoverPending(ctx); err != nil {
		log.Fatalf("Failed to recover pending polls: %v", err)
	}

	verifier := auth.NewVerifier(cfg.Auth.TokenSecret)

	pollsH := pollsHandler.NewHandler(pollService, verifier, cfg.Poll.DefaultDuration)
	eventsH := eventsHandler.NewHandler(eventRepository, auditRepository, verifier)
	messagesH := messagesHandler.NewHandler(messageRepository, eventRepository, wsCore, profanity.NewFilter(), messagePublisher, verifier)
	healthH := healthHandler.NewHandler(func(ctx context.Context) error {
		return mongoClient.Ping(ctx, readpref.Primary())
	})
	liveH := liveHandler.NewHandler(wsCore)

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		StoreTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(*cfg, pollsH, eventsH, messagesH, healthH, liveH, logger, rl)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(logging.General, logging.Shutdown, "server exited with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
