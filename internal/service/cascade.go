package service

import (
	"context"
	"fmt"
	"sync"

	"projecttracker/internal/docstore"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/pkg/metrics"

	"go.uber.org/zap"
)

// CascadeService removes parents together with their descendants. The store
// has no foreign-key constraints, so referential cleanliness is enforced
// here: tasks first, then milestones, then the project itself. Stages run in
// order; deletes within a stage fan out concurrently. There is no rollback:
// a failed stage aborts the cascade and leaves already-deleted documents
// gone, and a retry of the same call cleans up the remainder because
// deleting a missing id is a no-op success.
type CascadeService struct {
	projects   repository.ProjectRepository
	milestones repository.MilestoneRepository
	tasks      repository.TaskRepository
	logger     *zap.Logger
}

func NewCascadeService(
	projects repository.ProjectRepository,
	milestones repository.MilestoneRepository,
	tasks repository.TaskRepository,
	logger *zap.Logger,
) *CascadeService {
	return &CascadeService{
		projects:   projects,
		milestones: milestones,
		tasks:      tasks,
		logger:     logger,
	}
}

// DeleteProjectCascade deletes every task and milestone referencing the
// project, then the project document. A concurrent reader can observe a
// partially-deleted state between stages; that gap is accepted.
func (s *CascadeService) DeleteProjectCascade(ctx context.Context, projectID string) error {
	s.logger.Info("Starting project cascade delete", zap.String("project_id", projectID))

	tasks, err := s.tasks.ListForProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("list tasks for project %s: %w", projectID, err)
	}
	if err := s.deleteAll(ctx, taskIDs(tasks), s.tasks.Delete); err != nil {
		return fmt.Errorf("delete tasks for project %s: %w", projectID, err)
	}
	metrics.AddCascadeDeletes(docstore.CollectionTasks, len(tasks))

	milestones, err := s.milestones.ListForProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("list milestones for project %s: %w", projectID, err)
	}
	if err := s.deleteAll(ctx, milestoneIDs(milestones), s.milestones.Delete); err != nil {
		return fmt.Errorf("delete milestones for project %s: %w", projectID, err)
	}
	metrics.AddCascadeDeletes(docstore.CollectionMilestones, len(milestones))

	if err := s.projects.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}
	metrics.AddCascadeDeletes(docstore.CollectionProjects, 1)

	s.logger.Info("Project cascade delete completed",
		zap.String("project_id", projectID),
		zap.Int("task_count", len(tasks)),
		zap.Int("milestone_count", len(milestones)),
	)
	return nil
}

// DeleteMilestoneCascade deletes every task referencing the milestone, then
// the milestone document.
func (s *CascadeService) DeleteMilestoneCascade(ctx context.Context, milestoneID string) error {
	s.logger.Info("Starting milestone cascade delete", zap.String("milestone_id", milestoneID))

	tasks, err := s.tasks.ListForMilestone(ctx, milestoneID)
	if err != nil {
		return fmt.Errorf("list tasks for milestone %s: %w", milestoneID, err)
	}
	if err := s.deleteAll(ctx, taskIDs(tasks), s.tasks.Delete); err != nil {
		return fmt.Errorf("delete tasks for milestone %s: %w", milestoneID, err)
	}
	metrics.AddCascadeDeletes(docstore.CollectionTasks, len(tasks))

	if err := s.milestones.Delete(ctx, milestoneID); err != nil {
		return fmt.Errorf("delete milestone %s: %w", milestoneID, err)
	}
	metrics.AddCascadeDeletes(docstore.CollectionMilestones, 1)

	s.logger.Info("Milestone cascade delete completed",
		zap.String("milestone_id", milestoneID),
		zap.Int("task_count", len(tasks)),
	)
	return nil
}

// deleteAll runs one stage: sibling deletes have no required ordering, so
// they run concurrently, and the stage waits for all of them. The first
// error is reported after the fan-out drains.
func (s *CascadeService) deleteAll(ctx context.Context, ids []string, del func(context.Context, string) error) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := del(ctx, id); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	return firstErr
}

func taskIDs(tasks []model.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func milestoneIDs(milestones []model.Milestone) []string {
	ids := make([]string, len(milestones))
	for i, m := range milestones {
		ids[i] = m.ID
	}
	return ids
}
