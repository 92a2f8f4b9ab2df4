package handler

import (
	"context"
	"net/http"

	"projecttracker/internal/aggregate"
	"projecttracker/internal/controller"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TaskHandler struct {
	tasks      repository.TaskRepository
	projects   repository.ProjectRepository
	milestones repository.MilestoneRepository
	names      *controller.NameCache
	logger     *zap.Logger
}

func NewTaskHandler(
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	milestones repository.MilestoneRepository,
	names *controller.NameCache,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		tasks:      tasks,
		projects:   projects,
		milestones: milestones,
		names:      names,
		logger:     logger,
	}
}

// List returns a milestone's tasks grouped into the four board columns.
func (h *TaskHandler) List(c *gin.Context) {
	milestoneID := c.Param("id")

	tasks, err := h.tasks.ListForMilestone(c.Request.Context(), milestoneID)
	if err != nil {
		h.logger.Error("List: failed to load tasks",
			zap.String("milestone_id", milestoneID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"columns": aggregate.StatusColumns(),
		"tasks":   aggregate.GroupByStatus(tasks),
	})
}

func (h *TaskHandler) Create(c *gin.Context) {
	milestoneID := c.Param("id")

	var req struct {
		ProjectID   string  `json:"projectId"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Priority    string  `json:"priority"`
		AssigneeID  *string `json:"assigneeId"`
		DueDate     *int64  `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" || req.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and projectId required"})
		return
	}

	priority := model.TaskPriority(req.Priority)
	if req.Priority != "" && !priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority: " + req.Priority})
		return
	}

	id, err := h.tasks.Create(c.Request.Context(), repository.CreateTaskInput{
		ProjectID:   req.ProjectID,
		MilestoneID: milestoneID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.logger.Error("Create: failed to create task",
			zap.String("milestone_id", milestoneID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Update applies a partial edit. ClearAssignee and ClearDueDate distinguish
// "remove the value" from "leave it alone".
func (h *TaskHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Title         *string `json:"title"`
		Description   *string `json:"description"`
		Status        *string `json:"status"`
		Priority      *string `json:"priority"`
		AssigneeID    *string `json:"assigneeId"`
		ClearAssignee bool    `json:"clearAssignee"`
		DueDate       *int64  `json:"dueDate"`
		ClearDueDate  bool    `json:"clearDueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	upd := repository.TaskUpdate{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status: " + *req.Status})
			return
		}
		upd.Status = &status
	}
	if req.Priority != nil {
		priority := model.TaskPriority(*req.Priority)
		if !priority.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority: " + *req.Priority})
			return
		}
		upd.Priority = &priority
	}
	if req.ClearAssignee {
		upd.SetAssignee = true
	} else if req.AssigneeID != nil {
		upd.SetAssignee = true
		upd.AssigneeID = req.AssigneeID
	}
	if req.ClearDueDate {
		upd.SetDueDate = true
	} else if req.DueDate != nil {
		upd.SetDueDate = true
		upd.DueDate = req.DueDate
	}

	if err := h.tasks.Update(c.Request.Context(), id, upd); err != nil {
		h.logger.Error("Update: failed to update task",
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(statusFor(err), gin.H{"error": "failed to update task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.tasks.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Delete: failed to delete task",
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(statusFor(err), gin.H{"error": "failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// MyTasks returns every task assigned to the caller, grouped by status, with
// the parent project and milestone names resolved in batch. Name lookups are
// auxiliary: a failure logs a warning and the response ships without those
// labels, clients fall back to placeholders.
func (h *TaskHandler) MyTasks(c *gin.Context) {
	sess := session.FromContext(c.Request.Context())

	tasks, err := h.tasks.ListForAssignee(c.Request.Context(), sess.UserID)
	if err != nil {
		h.logger.Error("MyTasks: failed to load assigned tasks",
			zap.String("assignee_id", sess.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	projectNames := h.resolveNames(c.Request.Context(), "project", projectIDsOf(tasks), h.fetchProjectNames)
	milestoneNames := h.resolveNames(c.Request.Context(), "milestone", milestoneIDsOf(tasks), h.fetchMilestoneNames)

	c.JSON(http.StatusOK, gin.H{
		"columns":        aggregate.StatusColumns(),
		"tasks":          aggregate.GroupByStatus(tasks),
		"projectNames":   projectNames,
		"milestoneNames": milestoneNames,
	})
}

// resolveNames fills id → name through the cache, batch-fetching only the
// misses. A failed fetch logs a warning and the response ships without those
// labels.
func (h *TaskHandler) resolveNames(ctx context.Context, kind string, ids []string, fetch func(context.Context, []string) (map[string]string, error)) map[string]string {
	names := make(map[string]string, len(ids))

	var misses []string
	for _, id := range ids {
		if name, ok := h.names.Get(ctx, kind, id); ok {
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
		h.logger.Warn("MyTasks: name lookup failed",
			zap.String("kind", kind),
			zap.Error(err),
		)
		return names
	}
	for id, name := range fetched {
		names[id] = name
		h.names.Set(ctx, kind, id, name)
	}
	return names
}

func (h *TaskHandler) fetchProjectNames(ctx context.Context, ids []string) (map[string]string, error) {
	docs, err := h.projects.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(docs))
	for id, p := range docs {
		names[id] = p.Name
	}
	return names, nil
}

func (h *TaskHandler) fetchMilestoneNames(ctx context.Context, ids []string) (map[string]string, error) {
	docs, err := h.milestones.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(docs))
	for id, m := range docs {
		names[id] = m.Name
	}
	return names, nil
}

func projectIDsOf(tasks []model.Task) []string {
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

func milestoneIDsOf(tasks []model.Task) []string {
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
