package repository

import (
	"context"
	"time"

	"projecttracker/internal/docstore"
	"projecttracker/internal/model"
	"projecttracker/internal/watch"
	"projecttracker/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type MongoProjectRepository struct {
	col    *mongo.Collection
	bus    watch.Publisher
	logger *zap.Logger
}

func NewMongoProjectRepository(db *mongo.Database, bus watch.Publisher, logger *zap.Logger) *MongoProjectRepository {
	return &MongoProjectRepository{
		col:    db.Collection(docstore.CollectionProjects),
		bus:    bus,
		logger: logger,
	}
}

func (r *MongoProjectRepository) Create(ctx context.Context, in CreateProjectInput) (string, error) {
	r.logger.Debug("Inserting project",
		zap.String("owner_id", in.OwnerID),
		zap.String("name", in.Name),
	)

	now := time.Now().UnixMilli()
	p := model.Project{
		ID:          primitive.NewObjectID().Hex(),
		OwnerID:     in.OwnerID,
		Name:        in.Name,
		Description: in.Description,
		Status:      model.ProjectActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	start := time.Now()
	_, err := r.col.InsertOne(ctx, p)
	metrics.RecordStoreOp("insert", docstore.CollectionProjects, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return "", err
	}

	r.notify(ctx, p.ID, p.OwnerID)
	r.logger.Info("Project inserted successfully",
		zap.String("id", p.ID),
		zap.String("owner_id", p.OwnerID),
	)
	return p.ID, nil
}

func (r *MongoProjectRepository) ListForOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	start := time.Now()
	cur, err := r.col.Find(ctx, bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	metrics.RecordStoreOp("find", docstore.CollectionProjects, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to find projects",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return nil, err
	}
	defer cur.Close(ctx)

	var projects []model.Project
	if err := cur.All(ctx, &projects); err != nil {
		r.logger.Error("Failed to decode projects", zap.Error(err))
		return nil, err
	}
	return projects, nil
}

func (r *MongoProjectRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.Project, error) {
	return docstore.FetchByIDs(ctx, ids,
		func(ctx context.Context, batch []string) ([]model.Project, error) {
			start := time.Now()
			cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": batch}})
			metrics.RecordStoreOp("find_by_ids", docstore.CollectionProjects, time.Since(start))
			if err != nil {
				return nil, err
			}
			defer cur.Close(ctx)

			var projects []model.Project
			if err := cur.All(ctx, &projects); err != nil {
				return nil, err
			}
			return projects, nil
		},
		func(p model.Project) string { return p.ID },
	)
}

func (r *MongoProjectRepository) Update(ctx context.Context, id string, upd ProjectUpdate) error {
	ownerID := r.lookupOwner(ctx, id)

	set := bson.M{"updatedAt": time.Now().UnixMilli()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}

	start := time.Now()
	// Blind $set: last write wins, no version checking.
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	metrics.RecordStoreOp("update", docstore.CollectionProjects, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to update project",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	r.notify(ctx, id, ownerID)
	return nil
}

func (r *MongoProjectRepository) Delete(ctx context.Context, id string) error {
	ownerID := r.lookupOwner(ctx, id)

	start := time.Now()
	// Deleting a missing id matches zero documents and is a success.
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	metrics.RecordStoreOp("delete", docstore.CollectionProjects, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to delete project",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	r.notify(ctx, id, ownerID)
	return nil
}

// lookupOwner resolves the owner for change-event scoping. A miss just
// produces an unscoped event.
func (r *MongoProjectRepository) lookupOwner(ctx context.Context, id string) string {
	var p model.Project
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return ""
	}
	return p.OwnerID
}

func (r *MongoProjectRepository) notify(ctx context.Context, id, ownerID string) {
	ev := watch.Event{
		Collection: docstore.CollectionProjects,
		DocumentID: id,
		OwnerID:    ownerID,
	}
	if err := r.bus.Publish(ctx, ev); err != nil {
		r.logger.Warn("Failed to publish project change event",
			zap.String("id", id),
			zap.Error(err),
		)
	}
}
