package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"projecttracker/internal/docstore"
	"projecttracker/internal/model"
	"projecttracker/internal/watch"
)

// In-memory repositories mirror the store semantics exactly: blind
// last-write-wins updates, idempotent deletes, creation-time orderIndex and
// the 10-id fetch batching. They back tests and broker-less local runs.

type MemoryProjectRepository struct {
	mu   sync.Mutex
	docs map[string]model.Project
	seq  int
	bus  watch.Publisher
}

func NewMemoryProjectRepository(bus watch.Publisher) *MemoryProjectRepository {
	return &MemoryProjectRepository{docs: make(map[string]model.Project), bus: bus}
}

func (r *MemoryProjectRepository) Create(_ context.Context, in CreateProjectInput) (string, error) {
	r.mu.Lock()

	r.seq++
	now := time.Now().UnixMilli()
	p := model.Project{
		ID:          fmt.Sprintf("project-%d", r.seq),
		OwnerID:     in.OwnerID,
		Name:        in.Name,
		Description: in.Description,
		Status:      model.ProjectActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.docs[p.ID] = p
	r.mu.Unlock()
	r.notify(p.ID, p.OwnerID)
	return p.ID, nil
}

func (r *MemoryProjectRepository) ListForOwner(_ context.Context, ownerID string) ([]model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Project
	for _, p := range r.docs {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryProjectRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.Project, error) {
	return docstore.FetchByIDs(ctx, ids,
		func(_ context.Context, batch []string) ([]model.Project, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			var out []model.Project
			for _, id := range batch {
				if p, ok := r.docs[id]; ok {
					out = append(out, p)
				}
			}
			return out, nil
		},
		func(p model.Project) string { return p.ID },
	)
}

func (r *MemoryProjectRepository) Update(_ context.Context, id string, upd ProjectUpdate) error {
	r.mu.Lock()
	p, ok := r.docs[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	p.UpdatedAt = time.Now().UnixMilli()
	r.docs[id] = p
	r.mu.Unlock()
	r.notify(id, p.OwnerID)
	return nil
}

func (r *MemoryProjectRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	owner := r.docs[id].OwnerID
	delete(r.docs, id)
	r.mu.Unlock()
	r.notify(id, owner)
	return nil
}

func (r *MemoryProjectRepository) notify(id, ownerID string) {
	if r.bus == nil {
		return
	}
	_ = r.bus.Publish(context.Background(), watch.Event{
		Collection: docstore.CollectionProjects,
		DocumentID: id,
		OwnerID:    ownerID,
	})
}

type MemoryMilestoneRepository struct {
	mu   sync.Mutex
	docs map[string]model.Milestone
	seq  int
	bus  watch.Publisher
}

func NewMemoryMilestoneRepository(bus watch.Publisher) *MemoryMilestoneRepository {
	return &MemoryMilestoneRepository{docs: make(map[string]model.Milestone), bus: bus}
}

func (r *MemoryMilestoneRepository) Create(_ context.Context, in CreateMilestoneInput) (string, error) {
	r.mu.Lock()

	orderIndex := 0
	for _, m := range r.docs {
		if m.ProjectID == in.ProjectID {
			orderIndex++
		}
	}

	r.seq++
	now := time.Now().UnixMilli()
	m := model.Milestone{
		ID:          fmt.Sprintf("milestone-%d", r.seq),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		Status:      model.MilestoneNotStarted,
		OrderIndex:  orderIndex,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.docs[m.ID] = m
	r.mu.Unlock()
	r.notify(m.ID, m.ProjectID)
	return m.ID, nil
}

func (r *MemoryMilestoneRepository) ListForProject(_ context.Context, projectID string) ([]model.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Milestone
	for _, m := range r.docs {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *MemoryMilestoneRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.Milestone, error) {
	return docstore.FetchByIDs(ctx, ids,
		func(_ context.Context, batch []string) ([]model.Milestone, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			var out []model.Milestone
			for _, id := range batch {
				if m, ok := r.docs[id]; ok {
					out = append(out, m)
				}
			}
			return out, nil
		},
		func(m model.Milestone) string { return m.ID },
	)
}

func (r *MemoryMilestoneRepository) Update(_ context.Context, id string, upd MilestoneUpdate) error {
	r.mu.Lock()
	m, ok := r.docs[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if upd.Name != nil {
		m.Name = *upd.Name
	}
	if upd.Description != nil {
		m.Description = *upd.Description
	}
	if upd.Status != nil {
		m.Status = *upd.Status
	}
	if upd.SetDueDate {
		m.DueDate = upd.DueDate
	}
	m.UpdatedAt = time.Now().UnixMilli()
	r.docs[id] = m
	r.mu.Unlock()
	r.notify(id, m.ProjectID)
	return nil
}

func (r *MemoryMilestoneRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	projectID := r.docs[id].ProjectID
	delete(r.docs, id)
	r.mu.Unlock()
	r.notify(id, projectID)
	return nil
}

func (r *MemoryMilestoneRepository) notify(id, projectID string) {
	if r.bus == nil {
		return
	}
	_ = r.bus.Publish(context.Background(), watch.Event{
		Collection: docstore.CollectionMilestones,
		DocumentID: id,
		ProjectID:  projectID,
	})
}

type MemoryTaskRepository struct {
	mu   sync.Mutex
	docs map[string]model.Task
	seq  int
	bus  watch.Publisher
}

func NewMemoryTaskRepository(bus watch.Publisher) *MemoryTaskRepository {
	return &MemoryTaskRepository{docs: make(map[string]model.Task), bus: bus}
}

func (r *MemoryTaskRepository) Create(_ context.Context, in CreateTaskInput) (string, error) {
	r.mu.Lock()

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	r.seq++
	now := time.Now().UnixMilli()
	t := model.Task{
		ID:          fmt.Sprintf("task-%d", r.seq),
		ProjectID:   in.ProjectID,
		MilestoneID: in.MilestoneID,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.TaskBacklog,
		Priority:    priority,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.docs[t.ID] = t
	r.mu.Unlock()
	r.notify(t)
	return t.ID, nil
}

func (r *MemoryTaskRepository) ListForProject(_ context.Context, projectID string) ([]model.Task, error) {
	return r.list(func(t model.Task) bool { return t.ProjectID == projectID })
}

func (r *MemoryTaskRepository) ListForMilestone(_ context.Context, milestoneID string) ([]model.Task, error) {
	return r.list(func(t model.Task) bool { return t.MilestoneID == milestoneID })
}

func (r *MemoryTaskRepository) ListForAssignee(_ context.Context, assigneeID string) ([]model.Task, error) {
	return r.list(func(t model.Task) bool {
		return t.AssigneeID != nil && *t.AssigneeID == assigneeID
	})
}

func (r *MemoryTaskRepository) list(match func(model.Task) bool) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Task
	for _, t := range r.docs {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryTaskRepository) GetByIDs(ctx context.Context, ids []string) (map[string]model.Task, error) {
	return docstore.FetchByIDs(ctx, ids,
		func(_ context.Context, batch []string) ([]model.Task, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			var out []model.Task
			for _, id := range batch {
				if t, ok := r.docs[id]; ok {
					out = append(out, t)
				}
			}
			return out, nil
		},
		func(t model.Task) string { return t.ID },
	)
}

func (r *MemoryTaskRepository) Update(_ context.Context, id string, upd TaskUpdate) error {
	r.mu.Lock()
	t, ok := r.docs[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	prev := t
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.SetAssignee {
		t.AssigneeID = upd.AssigneeID
	}
	if upd.SetDueDate {
		t.DueDate = upd.DueDate
	}
	t.UpdatedAt = time.Now().UnixMilli()
	r.docs[id] = t
	r.mu.Unlock()
	// Event carries the pre-update scope so a departing assignee's page
	// sees the removal; a reassignment also notifies the new assignee.
	r.notify(prev)
	if upd.SetAssignee && !sameAssignee(prev.AssigneeID, t.AssigneeID) {
		r.notify(t)
	}
	return nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *MemoryTaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	t := r.docs[id]
	t.ID = id
	delete(r.docs, id)
	r.mu.Unlock()
	r.notify(t)
	return nil
}

func (r *MemoryTaskRepository) notify(t model.Task) {
	if r.bus == nil {
		return
	}
	ev := watch.Event{
		Collection:  docstore.CollectionTasks,
		DocumentID:  t.ID,
		ProjectID:   t.ProjectID,
		MilestoneID: t.MilestoneID,
	}
	if t.AssigneeID != nil {
		ev.AssigneeID = *t.AssigneeID
	}
	_ = r.bus.Publish(context.Background(), ev)
}
