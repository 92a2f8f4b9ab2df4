package handler

import (
	"net/http"

	"projecttracker/internal/aggregate"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MilestoneHandler struct {
	milestones repository.MilestoneRepository
	tasks      repository.TaskRepository
	cascade    *service.CascadeService
	logger     *zap.Logger
}

func NewMilestoneHandler(
	milestones repository.MilestoneRepository,
	tasks repository.TaskRepository,
	cascade *service.CascadeService,
	logger *zap.Logger,
) *MilestoneHandler {
	return &MilestoneHandler{
		milestones: milestones,
		tasks:      tasks,
		cascade:    cascade,
		logger:     logger,
	}
}

// List returns a project's milestones in creation order together with the
// project's tasks grouped by milestone and a progress figure per milestone.
func (h *MilestoneHandler) List(c *gin.Context) {
	projectID := c.Param("id")

	milestones, err := h.milestones.ListForProject(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("List: failed to load milestones",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load milestones"})
		return
	}

	tasks, err := h.tasks.ListForProject(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("List: failed to load project tasks",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	grouped := aggregate.GroupByMilestone(tasks)
	progress := make(map[string]aggregate.Progress, len(milestones))
	for _, m := range milestones {
		progress[m.ID] = aggregate.MilestoneProgress(grouped[m.ID])
	}

	c.JSON(http.StatusOK, gin.H{
		"milestones": milestones,
		"tasks":      grouped,
		"progress":   progress,
	})
}

func (h *MilestoneHandler) Create(c *gin.Context) {
	projectID := c.Param("id")

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		DueDate     *int64 `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	id, err := h.milestones.Create(c.Request.Context(), repository.CreateMilestoneInput{
		ProjectID:   projectID,
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.logger.Error("Create: failed to create milestone",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create milestone"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Update applies a partial edit. ClearDueDate distinguishes "remove the due
// date" from "leave it alone"; sending both dueDate and clearDueDate is a
// client bug and the clear wins.
func (h *MilestoneHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Name         *string `json:"name"`
		Description  *string `json:"description"`
		Status       *string `json:"status"`
		DueDate      *int64  `json:"dueDate"`
		ClearDueDate bool    `json:"clearDueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	upd := repository.MilestoneUpdate{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		status := model.MilestoneStatus(*req.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status: " + *req.Status})
			return
		}
		upd.Status = &status
	}
	if req.ClearDueDate {
		upd.SetDueDate = true
	} else if req.DueDate != nil {
		upd.SetDueDate = true
		upd.DueDate = req.DueDate
	}

	if err := h.milestones.Update(c.Request.Context(), id, upd); err != nil {
		h.logger.Error("Update: failed to update milestone",
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(statusFor(err), gin.H{"error": "failed to update milestone"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *MilestoneHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.cascade.DeleteMilestoneCascade(c.Request.Context(), id); err != nil {
		h.logger.Error("Delete: milestone cascade failed",
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(statusFor(err), gin.H{"error": "failed to delete milestone"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}
