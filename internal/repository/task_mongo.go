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
	"go.uber.org/zap"
)

type MongoTaskRepository struct {
	col    *mongo.Collection
	bus    watch.Publisher
	logger *zap.Logger
}

func NewMongoTaskRepository(db *mongo.Database, bus watch.Publisher, logger *zap.Logger) *MongoTaskRepository {
	return &MongoTaskRepository{
		col:    db.Collection(docstore.CollectionTasks),
		bus:    bus,
		logger: logger,
	}
}

func (r *MongoTaskRepository) Create(ctx context.Context, in CreateTaskInput) (string, error) {
	r.logger.Debug("Inserting task",
		zap.String("project_id", in.ProjectID),
		zap.String("milestone_id", in.MilestoneID),
		zap.String("title", in.Title),
	)

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	now := time.Now().UnixMilli()
	t := model.Task{
		ID:          primitive.NewObjectID().Hex(),
		ProjectID:   in.ProjectID,
		MilestoneID: in.MilestoneID,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.TaskBacklog,
		Priority:    priority,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	start := time.Now()
	_, err := r.col.InsertOne(ctx, t)
	metrics.RecordStoreOp("insert", docstore.CollectionTasks, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return "", err
	}

	r.notify(ctx, t)
	r.logger.Info("Task inserted successfully",
		zap.String("id", t.ID),
		zap.String("milestone_id", t.MilestoneID),
	)
	return t.ID, nil
}

func (r *MongoTaskRepository) ListForProject(ctx context.Context, projectID string) ([]model.Task, error) {
	return r.list(ctx, bson.M{"projectId": projectID})
}

func (r *MongoTaskRepository) ListForMilestone(ctx context.Context, milestoneID string) ([]model.Task, error) {
	return r.list(ctx, bson.M{"milestoneId": milestoneID})
}

func (r *MongoTaskRepository) ListForAssignee(ctx context.Context, assigneeID string) ([]model.Task, error) {
	return r.list(ctx, bson.M{"assigneeId": assigneeID})
}

func (r *MongoTaskRepository) list(ctx context.Context, filter bson.M) ([]model.Task, error) {
	start := time.Now()
	cur, err := r.col.Find(ctx, filter)
	metrics.RecordStoreOp("find", docstore.CollectionTasks, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to find tasks", zap.Error(err))
		return nil, err
	}
	defer cur.Close(ctx)

	var tasks []model.Task
	if err := cur.All(ctx, &tasks); err != nil {
		r.logger.Error("Failed to decode tasks", zap.Error(err))
		return nil, err
	}
	return tasks, nil
}

func (r *MongoTaskRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.Task, error) {
	return docstore.FetchByIDs(ctx, ids,
		func(ctx context.Context, batch []string) ([]model.Task, error) {
			start := time.Now()
			cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": batch}})
			metrics.RecordStoreOp("find_by_ids", docstore.CollectionTasks, time.Since(start))
			if err != nil {
				return nil, err
			}
			defer cur.Close(ctx)

			var tasks []model.Task
			if err := cur.All(ctx, &tasks); err != nil {
				return nil, err
			}
			return tasks, nil
		},
		func(t model.Task) string { return t.ID },
	)
}

func (r *MongoTaskRepository) Update(ctx context.Context, id string, upd TaskUpdate) error {
	prev, _ := r.lookup(ctx, id)

	set := bson.M{"updatedAt": time.Now().UnixMilli()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	if upd.SetAssignee {
		set["assigneeId"] = upd.AssigneeID
	}
	if upd.SetDueDate {
		set["dueDate"] = upd.DueDate
	}

	start := time.Now()
	// Blind $set: last write wins, no version checking.
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	metrics.RecordStoreOp("update", docstore.CollectionTasks, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to update task",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	if prev != nil {
		// Previous scope first so an assignee losing the task sees it leave.
		r.notify(ctx, *prev)
		if upd.SetAssignee {
			next := *prev
			next.AssigneeID = upd.AssigneeID
			r.notify(ctx, next)
		}
	} else {
		r.notify(ctx, model.Task{ID: id})
	}
	return nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	prev, _ := r.lookup(ctx, id)

	start := time.Now()
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	metrics.RecordStoreOp("delete", docstore.CollectionTasks, time.Since(start))
	if err != nil {
		r.logger.Error("Failed to delete task",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	if prev != nil {
		r.notify(ctx, *prev)
	} else {
		r.notify(ctx, model.Task{ID: id})
	}
	return nil
}

func (r *MongoTaskRepository) lookup(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *MongoTaskRepository) notify(ctx context.Context, t model.Task) {
	ev := watch.Event{
		Collection:  docstore.CollectionTasks,
		DocumentID:  t.ID,
		ProjectID:   t.ProjectID,
		MilestoneID: t.MilestoneID,
	}
	if t.AssigneeID != nil {
		ev.AssigneeID = *t.AssigneeID
	}
	if err := r.bus.Publish(ctx, ev); err != nil {
		r.logger.Warn("Failed to publish task change event",
			zap.String("id", t.ID),
			zap.Error(err),
		)
	}
}
