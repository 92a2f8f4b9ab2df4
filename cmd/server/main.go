package main

import (
	"context"
	"log"

	"projecttracker/config"
	"projecttracker/internal/auth"
	"projecttracker/internal/controller"
	"projecttracker/internal/docstore"
	"projecttracker/internal/handler"
	"projecttracker/internal/httpserver"
	"projecttracker/internal/repository"
	"projecttracker/internal/service"
	"projecttracker/internal/watch"
	"projecttracker/pkg/logger"
	"projecttracker/pkg/redis"

	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	zlog := logger.NewLogger()
	defer zlog.Sync()

	ctx := context.Background()

	// 2. Init document store
	mongoClient, err := docstore.Connect(ctx, cfg.Mongo.URI, zlog)
	if err != nil {
		zlog.Fatal("Mongo initialization failed", zap.Error(err))
	}
	db := mongoClient.Database(cfg.Mongo.Database)

	// 3. Init Redis-backed name cache; a nil client disables caching.
	names := controller.NewNameCache(nil, zlog)
	if cfg.Redis.Addr != "" {
		names = controller.NewNameCache(redis.NewRedisClient(cfg.Redis), zlog)
	}

	// 4. Init change-event plumbing. With no MQ configured events stay
	// in-process: mutations feed the local hub directly.
	hub := watch.NewHub(zlog)

	var bus watch.Publisher
	var consumer *watch.MQConsumer
	if cfg.MQ.URL != "" {
		publisher, err := watch.NewMQPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatalf("failed to init change publisher: %v", err)
		}
		defer publisher.Close()
		bus = publisher

		consumer, err = watch.NewMQConsumer(cfg.MQ.URL, hub, zlog)
		if err != nil {
			log.Fatalf("failed to init change consumer: %v", err)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.StartConsuming(); err != nil {
				zlog.Fatal("change consumer failed", zap.Error(err))
			}
		}()
	} else {
		bus = &watch.LocalBus{Hub: hub}
	}

	// 5. Init identity verification
	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase.CredentialsFile, zlog)
	if err != nil {
		zlog.Fatal("Firebase initialization failed", zap.Error(err))
	}

	// 6. Init repositories
	projectRepo := repository.NewMongoProjectRepository(db, bus, zlog)
	milestoneRepo := repository.NewMongoMilestoneRepository(db, bus, zlog)
	taskRepo := repository.NewMongoTaskRepository(db, bus, zlog)

	// 7. Init services
	cascade := service.NewCascadeService(projectRepo, milestoneRepo, taskRepo, zlog)

	// 8. Init handlers
	authHandler := handler.NewAuthHandler(verifier, cfg.JWT.Secret, zlog)
	projectHandler := handler.NewProjectHandler(projectRepo, milestoneRepo, taskRepo, cascade, zlog)
	milestoneHandler := handler.NewMilestoneHandler(milestoneRepo, taskRepo, cascade, zlog)
	taskHandler := handler.NewTaskHandler(taskRepo, projectRepo, milestoneRepo, names, zlog)

	// 9. Init router
	router := httpserver.NewRouter(
		authHandler,
		projectHandler,
		milestoneHandler,
		taskHandler,
		cfg.JWT.Secret,
		zlog,
		mongoClient,
		consumer,
	)

	// 10. Run server
	if err := router.Run(cfg.Server.Port); err != nil {
		zlog.Fatal("server start failed", zap.Error(err))
	}
}
