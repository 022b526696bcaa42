package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pulsewall/pulsewall/internal/infrastructure/configs"
	"github.com/pulsewall/pulsewall/internal/infrastructure/logging"
	"github.com/pulsewall/pulsewall/internal/infrastructure/ratelimiter"
	eventsHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/events"
	healthHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/health"
	liveHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/live"
	messagesHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/messages"
	pollsHandler "github.com/pulsewall/pulsewall/internal/presentation/handler/polls"
)

type Application struct {
	config          configs.Config
	pollsHandler    *pollsHandler.Handler
	eventsHandler   *eventsHandler.Handler
	messagesHandler *messagesHandler.Handler
	healthHandler   *healthHandler.Handler
	liveHandler     *liveHandler.Handler
	logger          logging.Logger
	ratelimiter     ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	pollsHandler *pollsHandler.Handler,
	eventsHandler *eventsHandler.Handler,
	messagesHandler *messagesHandler.Handler,
	healthHandler *healthHandler.Handler,
	liveHandler *liveHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:          config,
		pollsHandler:    pollsHandler,
		eventsHandler:   eventsHandler,
		messagesHandler: messagesHandler,
		healthHandler:   healthHandler,
		liveHandler:     liveHandler,
		logger:          logger,
		ratelimiter:     ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)
	r.Use(app.enableCors)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(app.rateLimiterMiddleware)

		r.Route("/api", func(r chi.Router) {
			// The leading segment is an event id for collection routes and a
			// poll id for instance routes; chi needs one shared param name.
			r.Route("/polls/{id}", func(r chi.Router) {
				r.Post("/", app.pollsHandler.CreatePollHandler)
				r.Get("/", app.pollsHandler.GetActivePollHandler)
				r.Get("/history", app.pollsHandler.GetPollHistoryHandler)
				r.Post("/vote", app.pollsHandler.VoteHandler)
				r.Put("/end", app.pollsHandler.EndPollHandler)
				r.Get("/user-vote", app.pollsHandler.GetUserVoteHandler)
			})

			r.Route("/events", func(r chi.Router) {
				r.Post("/", app.eventsHandler.CreateEventHandler)
				r.Get("/", app.eventsHandler.ListEventsHandler)
				r.Get("/{eventId}", app.eventsHandler.GetEventHandler)
				r.Get("/{eventId}/audit", app.eventsHandler.GetAuditTrailHandler)

				r.Post("/{eventId}/messages", app.messagesHandler.CreateMessageHandler)
				r.Get("/{eventId}/messages", app.messagesHandler.ListMessagesHandler)
			})

			r.Route("/messages/{messageId}", func(r chi.Router) {
				r.Delete("/", app.messagesHandler.DeleteMessageHandler)
				r.Post("/reactions", app.messagesHandler.ReactHandler)
			})

			r.Get("/health", app.healthHandler.GetHealth)
			r.Get("/healthz", app.healthHandler.GetHealth)
			r.Get("/ready", app.healthHandler.GetReady)
			r.Get("/live", app.healthHandler.GetHealth)
		})

		r.Handle("/metrics", promhttp.Handler())
	})

	// Websocket connections are long-lived; no request timeout, no rate limit.
	r.Get("/ws", app.liveHandler.ConnectHandler)

	return r
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      otelhttp.NewHandler(mux, "pulsewall"),
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Startup, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Startup, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
