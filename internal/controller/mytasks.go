package controller

import (
	"context"
	"time"

	"projecttracker/internal/aggregate"
	"projecttracker/internal/apperr"
	"projecttracker/internal/docstore"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/session"
	"projecttracker/internal/watch"

	"go.uber.org/zap"
)

// MyTasksController backs the personal task list: every task assigned to
// the session user across all projects, grouped into status columns and
// enriched with project and milestone names. The task feed is live; name
// enrichment is auxiliary and degrades to placeholder labels when lookups
// fail.
type MyTasksController struct {
	page
	sess       *session.Session
	tasks      repository.TaskRepository
	projects   repository.ProjectRepository
	milestones repository.MilestoneRepository
	names      *NameCache
	hub        *watch.Hub
	confirm    Confirmer
	logger     *zap.Logger

	sub            *watch.Subscription
	grouped        map[model.TaskStatus][]model.Task
	projectNames   map[string]string
	milestoneNames map[string]string
}

func NewMyTasksController(
	sess *session.Session,
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	milestones repository.MilestoneRepository,
	names *NameCache,
	hub *watch.Hub,
	confirm Confirmer,
	logger *zap.Logger,
) *MyTasksController {
	return &MyTasksController{
		sess:       sess,
		tasks:      tasks,
		projects:   projects,
		milestones: milestones,
		names:      names,
		hub:        hub,
		confirm:    confirm,
		logger:     logger,
	}
}

// Mount subscribes to the user's assigned-task changes and loads the first
// snapshot.
func (c *MyTasksController) Mount(ctx context.Context) error {
	if !c.sess.Active() {
		c.mu.Lock()
		c.phase = PhaseUnauthenticated
		c.mu.Unlock()
		return nil
	}

	c.beginLoad()

	sub := c.hub.Subscribe(
		watch.Scope{Collection: docstore.CollectionTasks, AssigneeID: c.sess.UserID},
		func(watch.Event) {
			if err := c.refresh(context.Background()); err != nil {
				c.logger.Warn("My-tasks snapshot refresh failed", zap.Error(err))
			}
		},
	)
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	return c.refresh(ctx)
}

func (c *MyTasksController) refresh(ctx context.Context) error {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	tasks, err := c.tasks.ListForAssignee(ctx, c.sess.UserID)
	if err != nil {
		c.logger.Error("Failed to load assigned tasks",
			zap.String("assignee_id", c.sess.UserID),
			zap.Error(err),
		)
		c.mu.Lock()
		if c.generation == gen {
			c.lastErr = err
		}
		c.mu.Unlock()
		return err
	}

	projectNames := c.resolveNames(ctx, "project", uniqueProjectIDs(tasks), c.fetchProjectNames)
	milestoneNames := c.resolveNames(ctx, "milestone", uniqueMilestoneIDs(tasks), c.fetchMilestoneNames)
	grouped := aggregate.GroupByStatus(tasks)

	c.mu.Lock()
	if c.generation == gen {
		c.grouped = grouped
		c.projectNames = projectNames
		c.milestoneNames = milestoneNames
		c.phase = PhaseReady
		c.lastErr = nil
	}
	c.mu.Unlock()
	return nil
}

// resolveNames fills id → name through the cache, batch-fetching only the
// misses. Lookup failures never fail the page: a permission rejection on an
// auxiliary fetch is logged and the affected cards fall back to placeholder
// labels.
func (c *MyTasksController) resolveNames(ctx context.Context, kind string, ids []string, fetch func(context.Context, []string) (map[string]string, error)) map[string]string {
	names := make(map[string]string, len(ids))

	var misses []string
	for _, id := range ids {
		if name, ok := c.names.Get(ctx, kind, id); ok {
			names[id] = name
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return names
	}

	fetched, err := fetch(ctx, misses)
	if err != nil {
		if apperr.IsPermissionDenied(err) {
			c.logger.Warn("Permission denied resolving names",
				zap.String("kind", kind),
				zap.Error(err),
			)
		} else {
			c.logger.Warn("Failed to resolve names",
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
		return names
	}

	for id, name := range fetched {
		names[id] = name
		c.names.Set(ctx, kind, id, name)
	}
	return names
}

func (c *MyTasksController) fetchProjectNames(ctx context.Context, ids []string) (map[string]string, error) {
	docs, err := c.projects.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(docs))
	for id, p := range docs {
		names[id] = p.Name
	}
	return names, nil
}

func (c *MyTasksController) fetchMilestoneNames(ctx context.Context, ids []string) (map[string]string, error) {
	docs, err := c.milestones.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(docs))
	for id, m := range docs {
		names[id] = m.Name
	}
	return names, nil
}

func (c *MyTasksController) DeleteTask(ctx context.Context, id string) error {
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

func (c *MyTasksController) Column(status model.TaskStatus) []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grouped[status]
}

// ProjectName resolves a task's project label, falling back to a generic
// placeholder when the lookup missed.
func (c *MyTasksController) ProjectName(projectID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.projectNames[projectID]; ok {
		return name
	}
	return "Project"
}

func (c *MyTasksController) MilestoneName(milestoneID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.milestoneNames[milestoneID]; ok {
		return name
	}
	return "Milestone"
}

// DueFor labels a task's due date against now, or nil when it has none.
func (c *MyTasksController) DueFor(t model.Task, now time.Time) *aggregate.DueStatus {
	if t.DueDate == nil {
		return nil
	}
	due := aggregate.DueLabel(*t.DueDate, now)
	return &due
}

// Close releases the live subscription and discards in-flight results.
func (c *MyTasksController) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.generation++
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

func uniqueProjectIDs(tasks []model.Task) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range tasks {
		if t.ProjectID != "" && !seen[t.ProjectID] {
			seen[t.ProjectID] = true
			ids = append(ids, t.ProjectID)
		}
	}
	return ids
}

func uniqueMilestoneIDs(tasks []model.Task) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range tasks {
		if t.MilestoneID != "" && !seen[t.MilestoneID] {
			seen[t.MilestoneID] = true
			ids = append(ids, t.MilestoneID)
		}
	}
	return ids
}
