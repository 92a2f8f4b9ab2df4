package controller

import (
	"context"

	"projecttracker/internal/aggregate"
	"projecttracker/internal/docstore"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/session"
	"projecttracker/internal/watch"

	"go.uber.org/zap"
)

// MilestoneBoardController backs the milestone board page: the milestone's
// tasks in four status columns, kept live by a change subscription. Every
// emitted snapshot re-runs the grouping; the subscription is released on
// Close.
type MilestoneBoardController struct {
	page
	sess    *session.Session
	tasks   repository.TaskRepository
	hub     *watch.Hub
	confirm Confirmer
	logger  *zap.Logger

	projectID   string
	milestoneID string
	sub         *watch.Subscription
	grouped     map[model.TaskStatus][]model.Task
}

func NewMilestoneBoardController(
	sess *session.Session,
	tasks repository.TaskRepository,
	hub *watch.Hub,
	confirm Confirmer,
	logger *zap.Logger,
) *MilestoneBoardController {
	return &MilestoneBoardController{
		sess:    sess,
		tasks:   tasks,
		hub:     hub,
		confirm: confirm,
		logger:  logger,
	}
}

// Mount scopes the board to a milestone, subscribes to its task changes and
// loads the first snapshot.
func (c *MilestoneBoardController) Mount(ctx context.Context, projectID, milestoneID string) error {
	if !c.sess.Active() {
		c.mu.Lock()
		c.phase = PhaseUnauthenticated
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	if c.sub != nil {
		// Remount with a new scope: release the old listener first.
		c.sub.Cancel()
	}
	c.projectID = projectID
	c.milestoneID = milestoneID
	c.mu.Unlock()

	c.beginLoad()

	sub := c.hub.Subscribe(
		watch.Scope{Collection: docstore.CollectionTasks, MilestoneID: milestoneID},
		func(watch.Event) {
			if err := c.refresh(context.Background()); err != nil {
				c.logger.Warn("Board snapshot refresh failed",
					zap.String("milestone_id", milestoneID),
					zap.Error(err),
				)
			}
		},
	)
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	return c.refresh(ctx)
}

// refresh re-runs the board query and regroups. A failed read keeps the
// previous snapshot; the next change event retries.
func (c *MilestoneBoardController) refresh(ctx context.Context) error {
	c.mu.Lock()
	gen := c.generation
	milestoneID := c.milestoneID
	c.mu.Unlock()

	tasks, err := c.tasks.ListForMilestone(ctx, milestoneID)
	if err != nil {
		c.recordErr(gen, err)
		return err
	}
	grouped := aggregate.GroupByStatus(tasks)

	c.mu.Lock()
	if c.generation == gen {
		c.grouped = grouped
		c.phase = PhaseReady
		c.lastErr = nil
	}
	c.mu.Unlock()
	return nil
}

func (c *MilestoneBoardController) recordErr(gen int, err error) {
	c.mu.Lock()
	if c.generation == gen {
		c.lastErr = err
	}
	c.mu.Unlock()
}

func (c *MilestoneBoardController) CreateTask(ctx context.Context, title, description string, priority model.TaskPriority, assigneeID *string, dueDate *int64) error {
	if !c.tryBeginMutation() {
		return ErrPending
	}
	defer c.endMutation()

	c.mu.Lock()
	projectID, milestoneID := c.projectID, c.milestoneID
	c.mu.Unlock()

	_, err := c.tasks.Create(ctx, repository.CreateTaskInput{
		ProjectID:   projectID,
		MilestoneID: milestoneID,
		Title:       title,
		Description: description,
		Priority:    priority,
		AssigneeID:  assigneeID,
		DueDate:     dueDate,
	})
	if err != nil {
		c.logger.Error("Failed to create task", zap.Error(err))
		return err
	}
	// The change event refreshes the snapshot; no manual reload.
	return nil
}

func (c *MilestoneBoardController) SetStatus(ctx context.Context, taskID string, status model.TaskStatus) error {
	if !status.Valid() {
		return &InvalidInputError{Field: "status", Value: string(status)}
	}
	if !c.tryBeginMutation() {
		return ErrPending
	}
	defer c.endMutation()

	if err := c.tasks.Update(ctx, taskID, repository.TaskUpdate{Status: &status}); err != nil {
		c.logger.Error("Failed to update task status",
			zap.String("id", taskID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (c *MilestoneBoardController) SaveEdit(ctx context.Context, upd repository.TaskUpdate) error {
	c.mu.Lock()
	id := c.editingID
	c.mu.Unlock()
	if id == "" {
		return ErrNotEditing
	}

	if !c.tryBeginMutation() {
		return ErrPending
	}
	defer c.endMutation()

	if err := c.tasks.Update(ctx, id, upd); err != nil {
		c.logger.Error("Failed to update task",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	c.mu.Lock()
	c.editingID = ""
	c.mu.Unlock()
	return nil
}

func (c *MilestoneBoardController) DeleteTask(ctx context.Context, id string) error {
	if !c.confirm.Confirm("Delete this task? This cannot be undone.") {
		return nil
	}
	if !c.tryBeginMutation() {
		return ErrPending
	}
	defer c.endMutation()

	if err := c.tasks.Delete(ctx, id); err != nil {
		c.logger.Error("Failed to delete task",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (c *MilestoneBoardController) Columns() []aggregate.StatusColumn {
	return aggregate.StatusColumns()
}

func (c *MilestoneBoardController) Column(status model.TaskStatus) []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grouped[status]
}

// Close releases the live subscription and discards in-flight results.
// Skipping this leaks the listener for the life of the hub.
func (c *MilestoneBoardController) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.generation++
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}
