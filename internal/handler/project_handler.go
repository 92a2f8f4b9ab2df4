package handler

import (
	"net/http"

	"projecttracker/internal/aggregate"
	"projecttracker/internal/apperr"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/service"
	"projecttracker/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projects   repository.ProjectRepository
	milestones repository.MilestoneRepository
	tasks      repository.TaskRepository
	cascade    *service.CascadeService
	logger     *zap.Logger
}

func NewProjectHandler(
	projects repository.ProjectRepository,
	milestones repository.MilestoneRepository,
	tasks repository.TaskRepository,
	cascade *service.CascadeService,
	logger *zap.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projects:   projects,
		milestones: milestones,
		tasks:      tasks,
		cascade:    cascade,
		logger:     logger,
	}
}

// List returns the caller's projects, newest first, each with its card
// summary. A failed summary fetch degrades to a zero summary for that
// project; the list itself is the primary query and fails the request.
func (h *ProjectHandler) List(c *gin.Context) {
	sess := session.FromContext(c.Request.Context())

	projects, err := h.projects.ListForOwner(c.Request.Context(), sess.UserID)
	if err != nil {
		h.logger.Error("List: failed to load projects",
			zap.String("owner_id", sess.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load projects"})
		return
	}

	summaries := make(map[string]aggregate.Summary, len(projects))
	for _, p := range projects {
		milestones, err := h.milestones.ListForProject(c.Request.Context(), p.ID)
		if err != nil {
			h.logger.Warn("List: summary milestones fetch failed",
				zap.String("project_id", p.ID),
				zap.Error(err),
			)
			summaries[p.ID] = aggregate.Summary{}
			continue
		}
		tasks, err := h.tasks.ListForProject(c.Request.Context(), p.ID)
		if err != nil {
			h.logger.Warn("List: summary tasks fetch failed",
				zap.String("project_id", p.ID),
				zap.Error(err),
			)
			summaries[p.ID] = aggregate.Summary{}
			continue
		}
		summaries[p.ID] = aggregate.ProjectSummary(milestones, tasks)
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects, "summaries": summaries})
}

func (h *ProjectHandler) Create(c *gin.Context) {
	sess := session.FromContext(c.Request.Context())

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	id, err := h.projects.Create(c.Request.Context(), repository.CreateProjectInput{
		OwnerID:     sess.UserID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.logger.Error("Create: failed to create project", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ownerOf loads the project's owner id; ok is false when the project does
// not exist.
func (h *ProjectHandler) ownerOf(c *gin.Context, id string) (string, bool, error) {
	docs, err := h.projects.GetByIDs(c.Request.Context(), []string{id})
	if err != nil {
		return "", false, err
	}
	p, ok := docs[id]
	return p.OwnerID, ok, nil
}

func (h *ProjectHandler) Update(c *gin.Context) {
	sess := session.FromContext(c.Request.Context())
	id := c.Param("id")

	owner, ok, err := h.ownerOf(c, id)
	if err != nil {
		h.logger.Error("Update: failed to load project",
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(statusFor(err), gin.H{"error": "failed to update project"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if owner != sess.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the project owner"})
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	upd := repository.ProjectUpdate{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		status := model.ProjectStatus(*req.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status: " + *req.Status})
			return
		}
		upd.Status = &status
	}

	if err := h.projects.Update(c.Request.Context(), id, upd); err != nil {
		h.logger.Error("Update: failed to update project",
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(statusFor(err), gin.H{"error": "failed to update project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// Delete removes the project and everything under it. Deleting an already
// deleted project succeeds, so client retries converge.
func (h *ProjectHandler) Delete(c *gin.Context) {
	sess := session.FromContext(c.Request.Context())
	id := c.Param("id")

	owner, ok, err := h.ownerOf(c, id)
	if err != nil {
		h.logger.Error("Delete: failed to load project",
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(statusFor(err), gin.H{"error": "failed to delete project"})
		return
	}
	if ok && owner != sess.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the project owner"})
		return
	}
	// A missing project falls through: retrying a finished delete succeeds.

	if err := h.cascade.DeleteProjectCascade(c.Request.Context(), id); err != nil {
		h.logger.Error("Delete: project cascade failed",
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(statusFor(err), gin.H{"error": "failed to delete project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case apperr.IsPermissionDenied(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
