package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"placement-service/internal/config"
	"placement-service/internal/database/mongo"
	"placement-service/internal/database/redis"
	"placement-service/internal/event"
	"placement-service/internal/handlers"
	"placement-service/internal/placement"
	"placement-service/internal/repository"
	"placement-service/internal/scheduler"
	"placement-service/internal/service"
	"placement-service/pkg/discovery"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the placement HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	cfg := config.Load()

	logFile, err := setupLogging(cfg.Server.LogDir)
	if err != nil {
		log.Printf("Failed to set up file logging, using stderr: %v", err)
	} else {
		defer logFile.Close()
	}

	mongoClient, db, err := mongo.Connect(cfg.MongoDB)
	if err != nil {
		return err
	}
	defer mongo.Disconnect(mongoClient)

	redisClient := redis.NewClient(cfg.Redis)
	defer redis.Close(redisClient)

	questionRepo := repository.NewQuestionRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	usageRepo := repository.NewUsageRepository(redisClient)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	indexers := []struct {
		name string
		repo interface{ CreateIndexes(context.Context) error }
	}{
		{"questions", questionRepo},
		{"sessions", sessionRepo},
		{"profiles", profileRepo},
	}
	for _, idx := range indexers {
		if err := idx.repo.CreateIndexes(ctx); err != nil {
			log.Printf("Warning: Failed to create %s indexes: %v", idx.name, err)
		}
	}
	cancel()
	log.Println("Database indexes ensured")

	var eventPublisher event.Publisher
	eventPublisher, err = event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		eventPublisher = event.NewMockPublisher()
	}
	defer func() {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}()

	eventConsumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.QueueName, profileRepo)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else if err := eventConsumer.Start(); err != nil {
		log.Printf("Warning: Failed to start event consumer: %v", err)
		eventConsumer.Close()
	} else {
		defer eventConsumer.Close()
	}

	questionService := service.NewQuestionService(questionRepo, usageRepo, eventPublisher)
	engine := placement.NewEngine(sessionRepo, questionService, profileRepo,
		placement.WithDefaults(cfg.Placement.DefaultTotalQuestions, cfg.Placement.DefaultTimeLimitMinutes))
	placementService := service.NewPlacementService(engine, profileRepo, eventPublisher)

	usageScheduler := scheduler.New(questionService, cfg.Placement.UsageFlushInterval)
	if err := usageScheduler.Start(); err != nil {
		return fmt.Errorf("failed to start usage scheduler: %w", err)
	}
	defer usageScheduler.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"*"},
	}))
	app.Use(logger.New())

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Placement Service is healthy")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.NewPlacementHandler(placementService, questionService, cfg.Placement.RequestTimeout).RegisterRoutes(app)
	handlers.NewQuestionHandler(questionService, cfg.Placement.RequestTimeout).RegisterRoutes(app)

	var registry *discovery.ServiceRegistry
	if cfg.Consul.Enabled {
		registry, err = discovery.NewServiceRegistry(cfg)
		if err != nil {
			log.Printf("Warning: Service discovery unavailable: %v", err)
		} else if err := registry.Register(); err != nil {
			log.Printf("Warning: %v", err)
			registry = nil
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		serverErr <- app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("error starting server: %w", err)
	case <-shutdownChan:
	}
	log.Println("Shutting down server...")

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	log.Println("Server shutdown complete")
	return nil
}
