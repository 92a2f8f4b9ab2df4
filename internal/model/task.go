package model

type TaskStatus string

const (
	TaskBacklog    TaskStatus = "BACKLOG"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskBlocked    TaskStatus = "BLOCKED"
	TaskDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskBacklog, TaskInProgress, TaskBlocked, TaskDone:
		return true
	}
	return false
}

// AllTaskStatuses lists the four statuses in board-column order.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskBacklog, TaskInProgress, TaskBlocked, TaskDone}
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "LOW"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityCritical TaskPriority = "CRITICAL"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task belongs to exactly one milestone and, transitively, one project.
type Task struct {
	ID          string       `bson:"_id,omitempty" json:"id"`
	ProjectID   string       `bson:"projectId" json:"projectId"`
	MilestoneID string       `bson:"milestoneId" json:"milestoneId"`
	Title       string       `bson:"title" json:"title"`
	Description string       `bson:"description" json:"description"`
	Status      TaskStatus   `bson:"status" json:"status"`
	Priority    TaskPriority `bson:"priority" json:"priority"`
	AssigneeID  *string      `bson:"assigneeId" json:"assigneeId"`
	DueDate     *int64       `bson:"dueDate" json:"dueDate"`
	CreatedAt   int64        `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64        `bson:"updatedAt" json:"updatedAt"`
}
