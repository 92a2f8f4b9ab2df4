package repository

import (
	"context"

	"projecttracker/internal/model"
)

// The store enforces no foreign-key constraints; referential cleanliness is
// the cascade service's job. Every successful mutation restamps updatedAt;
// Create stamps createdAt and updatedAt to the same value. Delete of a
// missing id is a no-op success, which keeps cascade retries idempotent.

type CreateProjectInput struct {
	OwnerID     string
	Name        string
	Description string
}

type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *model.ProjectStatus
}

type ProjectRepository interface {
	Create(ctx context.Context, in CreateProjectInput) (string, error)
	ListForOwner(ctx context.Context, ownerID string) ([]model.Project, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Project, error)
	Update(ctx context.Context, id string, upd ProjectUpdate) error
	Delete(ctx context.Context, id string) error
}

type CreateMilestoneInput struct {
	ProjectID   string
	Name        string
	Description string
	DueDate     *int64
}

// SetDueDate distinguishes "leave dueDate alone" from "write DueDate,
// including nil to clear it".
type MilestoneUpdate struct {
	Name        *string
	Description *string
	Status      *model.MilestoneStatus
	DueDate     *int64
	SetDueDate  bool
}

type MilestoneRepository interface {
	Create(ctx context.Context, in CreateMilestoneInput) (string, error)
	ListForProject(ctx context.Context, projectID string) ([]model.Milestone, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Milestone, error)
	Update(ctx context.Context, id string, upd MilestoneUpdate) error
	Delete(ctx context.Context, id string) error
}

type CreateTaskInput struct {
	ProjectID   string
	MilestoneID string
	Title       string
	Description string
	Priority    model.TaskPriority // empty means MEDIUM
	AssigneeID  *string
	DueDate     *int64
}

type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	AssigneeID  *string
	SetAssignee bool
	DueDate     *int64
	SetDueDate  bool
}

type TaskRepository interface {
	Create(ctx context.Context, in CreateTaskInput) (string, error)
	ListForProject(ctx context.Context, projectID string) ([]model.Task, error)
	ListForMilestone(ctx context.Context, milestoneID string) ([]model.Task, error)
	ListForAssignee(ctx context.Context, assigneeID string) ([]model.Task, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Task, error)
	Update(ctx context.Context, id string, upd TaskUpdate) error
	Delete(ctx context.Context, id string) error
}
