package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/praxislab/praxis-api/internal/config"
	"github.com/praxislab/praxis-api/internal/database"
	"github.com/praxislab/praxis-api/internal/handler"
	"github.com/praxislab/praxis-api/internal/middleware"
	"github.com/praxislab/praxis-api/internal/router"
	"github.com/praxislab/praxis-api/internal/service"
	"github.com/praxislab/praxis-api/internal/store"
	"github.com/praxislab/praxis-api/pkg/backend"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	backendClient, err := backend.New(backend.Config{
		GenerationURL: cfg.GenerationURL,
		UploadsURL:    cfg.UploadsURL,
		EvaluationURL: cfg.EvaluationURL,
		AnalyticsURL:  cfg.AnalyticsURL,
		Timeout:       cfg.BackendTimeout,
		MaxRetries:    cfg.BackendRetries,
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("failed to build backend client: %v", err)
	}

	// Redis and NATS are optional: without them notifications stay
	// node-local instead of fanning out across gateway instances.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, notification fan-out and saved-list caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionSets := store.NewQuestionSets()
	submissions := store.NewSubmissions()

	notificationService := service.NewNotificationService(redisClient, cfg.NotificationChannel, natsConn, logger)
	statusPoller := service.NewStatusPoller(questionSets, backendClient, notificationService, logger)
	assignmentService := service.NewAssignmentService(questionSets, backendClient, statusPoller, redisClient, cfg.SavedCacheTTL, validate, logger)
	intakeService := service.NewIntakeService(backendClient, validate, logger)
	evaluationService := service.NewEvaluationService(submissions, backendClient, validate, logger)
	rubricService := service.NewRubricService(questionSets, submissions, backendClient, validate, logger)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(rootCtx)
	intakeService.Start(rootCtx)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, notificationService, logger)
	intakeHandler := handler.NewIntakeHandler(intakeService, logger)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, notificationService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.StreamKeepAlive)
	facultyHandler := handler.NewFacultyHandler(rubricService, intakeService, backendClient, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// A corpus batch can carry ten 25MB documents.
		BodyLimit: 256 << 20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		Backend:             backendClient,
		AssignmentHandler:   assignmentHandler,
		IntakeHandler:       intakeHandler,
		EvaluationHandler:   evaluationHandler,
		NotificationHandler: notificationHandler,
		FacultyHandler:      facultyHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		FacultyGuard:        middleware.RequireRole("faculty", "admin"),
		StartedAt:           time.Now(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(rootCtx, app)
}

func waitForShutdown(rootCtx context.Context, app *fiber.App) {
	<-rootCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
