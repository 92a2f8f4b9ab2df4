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

// ProjectDetailController backs the project detail page: the project's
// milestones in display order, each with its tasks and completion progress.
type ProjectDetailController struct {
	page
	sess       *session.Session
	milestones repository.MilestoneRepository
	tasks      repository.TaskRepository
	cascade    *service.CascadeService
	confirm    Confirmer
	logger     *zap.Logger

	projectID        string
	list             []model.Milestone
	tasksByMilestone map[string][]model.Task
}

func NewProjectDetailController(
	sess *session.Session,
	milestones repository.MilestoneRepository,
	tasks repository.TaskRepository,
	cascade *service.CascadeService,
	confirm Confirmer,
	logger *zap.Logger,
) *ProjectDetailController {
	return &ProjectDetailController{
		sess:       sess,
		milestones: milestones,
		tasks:      tasks,
		cascade:    cascade,
		confirm:    confirm,
		logger:     logger,
	}
}

// SetProject points the page at a project and reloads. Changing scope bumps
// the generation, so a fetch still in flight for the previous project is
// discarded when it lands.
func (c *ProjectDetailController) SetProject(ctx context.Context, projectID string) error {
	c.mu.Lock()
	c.projectID = projectID
	c.mu.Unlock()
	return c.Load(ctx)
}

// Load fetches milestones and the project's tasks; both are primary reads
// for this page.
func (c *ProjectDetailController) Load(ctx context.Context) error {
	if !c.sess.Active() {
		c.mu.Lock()
		c.phase = PhaseUnauthenticated
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	projectID := c.projectID
	c.mu.Unlock()

	gen := c.beginLoad()

	milestones, err := c.milestones.ListForProject(ctx, projectID)
	if err != nil {
		c.logger.Error("Failed to load milestones",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		c.recordErr(gen, err)
		return err
	}

	tasks, err := c.tasks.ListForProject(ctx, projectID)
	if err != nil {
		c.logger.Error("Failed to load project tasks",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		c.recordErr(gen, err)
		return err
	}

	grouped := aggregate.GroupByMilestone(tasks)

	c.mu.Lock()
	if c.generation == gen {
		c.list = milestones
		c.tasksByMilestone = grouped
		c.phase = PhaseReady
		c.lastErr = nil
	}
	c.mu.Unlock()
	return nil
}

func (c *ProjectDetailController) recordErr(gen int, err error) {
	c.mu.Lock()
	if c.generation == gen {
		c.lastErr = err
	}
	c.mu.Unlock()
}

func (c *ProjectDetailController) CreateMilestone(ctx context.Context, name, description string, dueDate *int64) error {
	if !c.tryBeginMutation() {
		return ErrPending
	}
	defer c.endMutation()

	c.mu.Lock()
	projectID := c.projectID
	c.mu.Unlock()

	_, err := c.milestones.Create(ctx, repository.CreateMilestoneInput{
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		DueDate:     dueDate,
	})
	if err != nil {
		c.logger.Error("Failed to create milestone", zap.Error(err))
		return err
	}
	return c.Load(ctx)
}

func (c *ProjectDetailController) SaveEdit(ctx context.Context, upd repository.MilestoneUpdate) error {
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

	if err := c.milestones.Update(ctx, id, upd); err != nil {
		c.logger.Error("Failed to update milestone",
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

// DeleteMilestone cascades the milestone's tasks and then the milestone,
// after explicit confirmation.
func (c *ProjectDetailController) DeleteMilestone(ctx context.Context, id string) error {
	if !c.confirm.Confirm("Delete this milestone? All tasks in it will be removed.") {
		return nil
	}
	if !c.tryBeginMutation() {
		return ErrPending
	}
	defer c.endMutation()

	if err := c.cascade.DeleteMilestoneCascade(ctx, id); err != nil {
		c.logger.Error("Milestone cascade delete failed",
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}
	return c.Load(ctx)
}

func (c *ProjectDetailController) Milestones() []model.Milestone {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Milestone, len(c.list))
	copy(out, c.list)
	return out
}

func (c *ProjectDetailController) TasksFor(milestoneID string) []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasksByMilestone[milestoneID]
}

// Progress reports task completion for one milestone card.
func (c *ProjectDetailController) Progress(milestoneID string) aggregate.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return aggregate.MilestoneProgress(c.tasksByMilestone[milestoneID])
}

func (c *ProjectDetailController) Close() {
	c.invalidate()
}
