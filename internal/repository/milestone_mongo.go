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

type MongoMilestoneRepository struct {
	col    *mongo.Collection
	bus    watch.Publisher
	logger *zap.Logger
}

func NewMongoMilestoneRepository(db *mongo.Database, bus watch.Publisher, logger *zap.Logger) *MongoMilestoneRepository {
	return &MongoMilestoneRepository{
		col:    db.Collection(docstore.CollectionMilestones),
		bus:    bus,
		logger: logger,
	}
}

func (r *MongoMilestoneRepository) Create(ctx context.Context, in CreateMilestoneInput) (string, error) {
	r.logger.Debug("Inserting milestone",
		zap.String("project_id", in.ProjectID),
		zap.String("name", in.Name),
	)

	// orderIndex = current milestone count of the project. Racy between
	// concurrent creates and never renumbered after deletes; ordering only
	// needs to be stable, not contiguous.
	start := time.Now()
	count, err := r.col.CountDocuments(ctx, bson.M{"projectId": in.ProjectID})
	metrics.RecordStoreOp("count", docstore.CollectionMilestones, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to count milestones", zap.Error(err))
		return "", err
	}

	now := time.Now().UnixMilli()
	m := model.Milestone{
		ID:          primitive.NewObjectID().Hex(),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		Status:      model.MilestoneNotStarted,
		OrderIndex:  int(count),
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	start = time.Now()
	_, err = r.col.InsertOne(ctx, m)
	metrics.RecordStoreOp("insert", docstore.CollectionMilestones, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return "", err
	}

	r.notify(ctx, m.ID, m.ProjectID)
	r.logger.Info("Milestone inserted successfully",
		zap.String("id", m.ID),
		zap.String("project_id", m.ProjectID),
		zap.Int("order_index", m.OrderIndex),
	)
	return m.ID, nil
}

func (r *MongoMilestoneRepository) ListForProject(ctx context.Context, projectID string) ([]model.Milestone, error) {
	start := time.Now()
	cur, err := r.col.Find(ctx, bson.M{"projectId": projectID},
		options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}}))
	metrics.RecordStoreOp("find", docstore.CollectionMilestones, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to find milestones",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		return nil, err
	}
	defer cur.Close(ctx)

	var milestones []model.Milestone
	if err := cur.All(ctx, &milestones); err != nil {
		r.logger.Error("Failed to decode milestones", zap.Error(err))
		return nil, err
	}
	return milestones, nil
}

func (r *MongoMilestoneRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.Milestone, error) {
	return docstore.FetchByIDs(ctx, ids,
		func(ctx context.Context, batch []string) ([]model.Milestone, error) {
			start := time.Now()
			cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": batch}})
			metrics.RecordStoreOp("find_by_ids", docstore.CollectionMilestones, time.Since(start))
			if err != nil {
				return nil, err
			}
			defer cur.Close(ctx)

			var milestones []model.Milestone
			if err := cur.All(ctx, &milestones); err != nil {
				return nil, err
			}
			return milestones, nil
		},
		func(m model.Milestone) string { return m.ID },
	)
}

func (r *MongoMilestoneRepository) Update(ctx context.Context, id string, upd MilestoneUpdate) error {
	projectID := r.lookupProject(ctx, id)

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
	if upd.SetDueDate {
		set["dueDate"] = upd.DueDate
	}

	start := time.Now()
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	metrics.RecordStoreOp("update", docstore.CollectionMilestones, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to update milestone",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	r.notify(ctx, id, projectID)
	return nil
}

func (r *MongoMilestoneRepository) Delete(ctx context.Context, id string) error {
	projectID := r.lookupProject(ctx, id)

	start := time.Now()
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	metrics.RecordStoreOp("delete", docstore.CollectionMilestones, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to delete milestone",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	r.notify(ctx, id, projectID)
	return nil
}

func (r *MongoMilestoneRepository) lookupProject(ctx context.Context, id string) string {
	var m model.Milestone
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return ""
	}
	return m.ProjectID
}

func (r *MongoMilestoneRepository) notify(ctx context.Context, id, projectID string) {
	ev := watch.Event{
		Collection: docstore.CollectionMilestones,
		DocumentID: id,
		ProjectID:  projectID,
	}
	if err := r.bus.Publish(ctx, ev); err != nil {
		r.logger.Warn("Failed to publish milestone change event",
			zap.String("id", id),
			zap.Error(err),
		)
	}
}
