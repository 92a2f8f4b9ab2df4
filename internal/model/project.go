package model

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectOnHold, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// Project is owned by exactly one user. Timestamps are epoch milliseconds.
type Project struct {
	ID          string        `bson:"_id,omitempty" json:"id"`
	OwnerID     string        `bson:"ownerId" json:"ownerId"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description" json:"description"`
	Status      ProjectStatus `bson:"status" json:"status"`
	CreatedAt   int64         `bson:"createdAt" json:"createdAt"`
	UpdatedAt   int64         `bson:"updatedAt" json:"updatedAt"`
}
