package controller

import (
	"context"

	"projecttracker/internal/aggregate"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/service"
	"projecttracker/internal/session"

	"go.uber.org/zap"
)

// ProjectListController backs the project list page: the owner's projects
// plus a summary card (milestone/task counts, completion, next due) per
// project.
type ProjectListController struct {
	page
	sess       *session.Session
	projects   repository.ProjectRepository
	milestones repository.MilestoneRepository
	tasks      repository.TaskRepository
	cascade    *service.CascadeService
	confirm    Confirmer
	logger     *zap.Logger

	list      []model.Project
	summaries map[string]aggregate.Summary
}

func NewProjectListController(
	sess *session.Session,
	projects repository.ProjectRepository,
	milestones repository.MilestoneRepository,
	tasks repository.TaskRepository,
	cascade *service.CascadeService,
	confirm Confirmer,
	logger *zap.Logger,
) *ProjectListController {
	return &ProjectListController{
		sess:       sess,
		projects:   projects,
		milestones: milestones,
		tasks:      tasks,
		cascade:    cascade,
		confirm:    confirm,
		logger:     logger,
	}
}

// Load fetches the project list and derives per-project summaries. The list
// fetch is the page's primary read: its failure leaves the page loading with
// the error recorded. Summary fetches are auxiliary and degrade per project.
func (c *ProjectListController) Load(ctx context.Context) error {
	if !c.sess.Active() {
		c.mu.Lock()
		c.phase = PhaseUnauthenticated
		c.mu.Unlock()
		return nil
	}

	gen := c.beginLoad()

	list, err := c.projects.ListForOwner(ctx, c.sess.UserID)
	if err != nil {
		c.logger.Error("Failed to load projects",
			zap.String("owner_id", c.sess.UserID),
			zap.Error(err),
		)
		c.mu.Lock()
		if c.generation == gen {
			c.lastErr = err
		}
		c.mu.Unlock()
		return err
	}

	summaries := make(map[string]aggregate.Summary, len(list))
	for _, p := range list {
		milestones, err := c.milestones.ListForProject(ctx, p.ID)
		if err != nil {
			c.logger.Warn("Failed to load milestones for summary",
				zap.String("project_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		tasks, err := c.tasks.ListForProject(ctx, p.ID)
		if err != nil {
			c.logger.Warn("Failed to load tasks for summary",
				zap.String("project_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		summaries[p.ID] = aggregate.ProjectSummary(milestones, tasks)
	}

	c.mu.Lock()
	if c.generation == gen {
		c.list = list
		c.summaries = summaries
		c.phase = PhaseReady
		c.lastErr = nil
	}
	c.mu.Unlock()
	return nil
}

func (c *ProjectListController) Create(ctx context.Context, name, description string) error {
	if !c.tryBeginMutation() {
		return ErrPending
	}
	defer c.endMutation()

	_, err := c.projects.Create(ctx, repository.CreateProjectInput{
		OwnerID:     c.sess.UserID,
		Name:        name,
		Description: description,
	})
	if err != nil {
		c.logger.Error("Failed to create project", zap.Error(err))
		return err
	}
	return c.Load(ctx)
}

// SaveEdit applies the edit form to the record in edit mode and returns the
// page to Viewing.
func (c *ProjectListController) SaveEdit(ctx context.Context, upd repository.ProjectUpdate) error {
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

	if err := c.projects.Update(ctx, id, upd); err != nil {
		c.logger.Error("Failed to update project",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	c.mu.Lock()
	c.editingID = ""
	c.mu.Unlock()
	return c.Load(ctx)
}

// Delete cascades the project after explicit confirmation. Declining is a
// no-op.
func (c *ProjectListController) Delete(ctx context.Context, id string) error {
	if !c.confirm.Confirm("Delete this project? All milestones and tasks in it will be removed.") {
		return nil
	}
	if !c.tryBeginMutation() {
		return ErrPending
	}
	defer c.endMutation()

	if err := c.cascade.DeleteProjectCascade(ctx, id); err != nil {
		c.logger.Error("Project cascade delete failed",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}
	return c.Load(ctx)
}

func (c *ProjectListController) Projects() []model.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Project, len(c.list))
	copy(out, c.list)
	return out
}

func (c *ProjectListController) Summary(projectID string) (aggregate.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.summaries[projectID]
	return s, ok
}

// Close discards any in-flight fetch results.
func (c *ProjectListController) Close() {
	c.invalidate()
}
