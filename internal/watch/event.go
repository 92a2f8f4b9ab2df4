package watch

import "context"

// Event describes a document mutation in one of the store collections.
// Scope fields carry enough parent/assignee context for subscribers to
// decide whether their query is affected without refetching first.
type Event struct {
	Collection  string `json:"collection"`
	DocumentID  string `json:"documentId"`
	OwnerID     string `json:"ownerId,omitempty"`
	ProjectID   string `json:"projectId,omitempty"`
	MilestoneID string `json:"milestoneId,omitempty"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

// RoutingKey returns the topic routing key for the event, e.g. "task.changed".
func (e Event) RoutingKey() string {
	switch e.Collection {
	case "projects":
		return "project.changed"
	case "milestones":
		return "milestone.changed"
	default:
		return "task.changed"
	}
}

// Publisher emits change events after successful mutations. Publishing is
// best-effort: a lost event means a stale snapshot until the next mutation,
// not data loss.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
