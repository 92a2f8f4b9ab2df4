package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	CollectionProjects   = "projects"
	CollectionMilestones = "milestones"
	CollectionTasks      = "tasks"
)

// Connect dials the document store and verifies the connection with a ping.
func Connect(ctx context.Context, uri string, logger *zap.Logger) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri not set")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(dialCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info("Mongo connected successfully")
	return client, nil
}
