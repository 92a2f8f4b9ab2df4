package model

type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "NOT_STARTED"
	MilestoneInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneCompleted  MilestoneStatus = "COMPLETED"
)

func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneNotStarted, MilestoneInProgress, MilestoneCompleted:
		return true
	}
	return false
}

// Milestone belongs to exactly one project. OrderIndex is assigned at
// creation as the current milestone count of the project and is never
// renumbered, so gaps after deletions are expected.
type Milestone struct {
	ID          string          `bson:"_id,omitempty" json:"id"`
	ProjectID   string          `bson:"projectId" json:"projectId"`
	Name        string          `bson:"name" json:"name"`
	Description string          `bson:"description" json:"description"`
	Status      MilestoneStatus `bson:"status" json:"status"`
	OrderIndex  int             `bson:"orderIndex" json:"orderIndex"`
	DueDate     *int64          `bson:"dueDate" json:"dueDate"`
	CreatedAt   int64           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64           `bson:"updatedAt" json:"updatedAt"`
}
