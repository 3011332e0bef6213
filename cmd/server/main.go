package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/bookclurb/clurb-api/internal/auth"
	"github.com/bookclurb/clurb-api/internal/authz"
	"github.com/bookclurb/clurb-api/internal/config"
	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/firebaseapp"
	"github.com/bookclurb/clurb-api/internal/gateway"
	"github.com/bookclurb/clurb-api/internal/handlers"
	"github.com/bookclurb/clurb-api/internal/hardcover"
	"github.com/bookclurb/clurb-api/internal/invite"
	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/middleware"
	"github.com/bookclurb/clurb-api/internal/migration"
	"github.com/bookclurb/clurb-api/internal/notification"
	"github.com/bookclurb/clurb-api/internal/repository"
	"github.com/bookclurb/clurb-api/internal/routes"
	"github.com/bookclurb/clurb-api/internal/temporal"
	"github.com/bookclurb/clurb-api/internal/temporal/activities"
	"github.com/bookclurb/clurb-api/internal/temporal/workflows"
	"github.com/bookclurb/clurb-api/internal/utils"
)

type application struct {
	config         *config.Config
	store          docstore.Store
	members        *membership.Service
	invites        repository.InviteRepository
	temporalClient tc.Client
	logger         zerolog.Logger
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()

	if cfg.Store.Driver == "postgres" {
		if err := migration.RunMigrations(cfg.Store.DatabaseURL, logger); err != nil {
			logger.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	store, err := docstore.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open document store")
	}
	defer store.Close()

	clubs := repository.NewClubRepository(store, cfg.Store.MaxCASAttempts)
	users := repository.NewUserRepository(store, cfg.Store.MaxCASAttempts)
	invites := repository.NewInviteRepository(store, cfg.Store.MaxCASAttempts)
	members := membership.NewService(clubs, users, invites, logger,
		membership.WithCascadeConcurrency(cfg.Cascade.MaxConcurrency),
	)

	app := &application{
		config:  cfg,
		store:   store,
		members: members,
		invites: invites,
		logger:  logger,
	}

	var temporalWorker worker.Worker
	if cfg.Temporal.Enabled {
		app.temporalClient, err = tc.Dial(tc.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporal.NewLogAdapter(logger),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Unable to create Temporal client")
		}
		defer app.temporalClient.Close()
		temporalWorker = app.startTemporalWorker()
	}

	router := app.initRouter(ctx)
	loggedRouter := middleware.LoggingMiddleware(logger)(middleware.SecurityHeaders(router))
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.CORS.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	app.startServer(corsHandler, temporalWorker)

	logger.Info().Msg("Application terminated.")
}

func (app *application) initRouter(ctx context.Context) http.Handler {
	cfg, logger := app.config, app.logger

	mailer := notification.NewSMTPInviteMailer(cfg.Email, logger)
	inviteService := invite.NewService(app.invites, app.members, mailer, cfg.BaseURL, logger)

	var validator gateway.Validator
	var remote handlers.RemoteSender
	if cfg.Gateway.BaseURL != "" {
		client := gateway.NewClient(cfg.Gateway.BaseURL, &http.Client{Timeout: cfg.Gateway.Timeout})
		validator, remote = client, client
		logger.Info().Str("base_url", cfg.Gateway.BaseURL).Msg("Using remote invite gateway")
	}

	verifier, err := app.newVerifier(ctx)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Auth.Provider).Msg("Failed to configure identity verification")
	}

	sealer, err := utils.NewTokenSealer(cfg.Hardcover.TokenKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid hardcover.token_key")
	}
	if sealer == nil {
		logger.Warn().Msg("hardcover.token_key not set; Hardcover tokens are stored unsealed")
	}
	hardcoverClient := hardcover.NewClient(cfg.Hardcover.Endpoint, cfg.Hardcover.Timeout, logger)

	var deleter handlers.ClubDeleter = app.members
	if app.temporalClient != nil {
		deleter = workflows.NewDispatcher(app.temporalClient, logger)
	}

	return routes.NewRouter(routes.Handlers{
		Clubs:     handlers.NewClubHandler(app.members, deleter, logger),
		Invites:   handlers.NewInviteHandler(inviteService, app.members, validator, remote, logger),
		Hardcover: handlers.NewHardcoverHandler(hardcoverClient, app.members, sealer, logger),
		Profiles:  handlers.NewProfileHandler(app.members, logger),
	}, authz.Authenticate(verifier, logger))
}

func (app *application) newVerifier(ctx context.Context) (auth.Verifier, error) {
	if app.config.Auth.Provider == "firebase" {
		fbApp, err := firebaseapp.New(ctx, app.config.Store.Firebase, app.logger)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseVerifier(ctx, fbApp)
	}
	return auth.NewJWTVerifier(app.config.JWTSecret, 24*time.Hour), nil
}

func (app *application) startTemporalWorker() worker.Worker {
	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})
	workflows.Register(w, &activities.Activities{Members: app.members})

	app.logger.Info().Str("task_queue", temporal.TaskQueueName).Msg("Starting Temporal worker...")
	if err := w.Start(); err != nil {
		app.logger.Fatal().Err(err).Msg("Unable to start worker")
	}
	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker) {
	logger := app.logger
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	if temporalWorker != nil {
		logger.Info().Msg("Stopping Temporal worker...")
		temporalWorker.Stop()
		logger.Info().Msg("Temporal worker stopped.")
	}
}
