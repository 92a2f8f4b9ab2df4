package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"projecttracker/internal/auth"
	"projecttracker/internal/controller"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type fixture struct {
	engine     *gin.Engine
	token      string
	projects   *repository.MemoryProjectRepository
	milestones *repository.MemoryMilestoneRepository
	tasks      *repository.MemoryTaskRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	projects := repository.NewMemoryProjectRepository(nil)
	milestones := repository.NewMemoryMilestoneRepository(nil)
	tasks := repository.NewMemoryTaskRepository(nil)
	cascade := service.NewCascadeService(projects, milestones, tasks, zap.NewNop())

	projectHandler := NewProjectHandler(projects, milestones, tasks, cascade, zap.NewNop())
	milestoneHandler := NewMilestoneHandler(milestones, tasks, cascade, zap.NewNop())
	taskHandler := NewTaskHandler(tasks, projects, milestones, controller.NewNameCache(nil, zap.NewNop()), zap.NewNop())

	r := gin.New()
	api := r.Group("/")
	api.Use(auth.Middleware(testSecret))
	{
		api.GET("/projects", projectHandler.List)
		api.POST("/projects", projectHandler.Create)
		api.PATCH("/projects/:id", projectHandler.Update)
		api.DELETE("/projects/:id", projectHandler.Delete)
		api.GET("/projects/:id/milestones", milestoneHandler.List)
		api.POST("/projects/:id/milestones", milestoneHandler.Create)
		api.POST("/milestones/:id/tasks", taskHandler.Create)
		api.PATCH("/tasks/:id", taskHandler.Update)
		api.GET("/my-tasks", taskHandler.MyTasks)
	}

	token, err := auth.MintSessionToken(auth.Identity{UserID: "u1", Email: "u1@example.com"}, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{
		engine:     r,
		token:      token,
		projects:   projects,
		milestones: milestones,
		tasks:      tasks,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("GET", "/projects", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCreateAndListProjects(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/projects", gin.H{"name": "Apollo", "description": "moon shot"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}

	w = f.do(t, "GET", "/projects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}

	var resp struct {
		Projects []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			OwnerID string `json:"ownerId"`
			Status  string `json:"status"`
		} `json:"projects"`
		Summaries map[string]struct {
			MilestoneCount int `json:"milestoneCount"`
		} `json:"summaries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Projects) != 1 {
		t.Fatalf("got %d projects, want 1", len(resp.Projects))
	}
	p := resp.Projects[0]
	if p.Name != "Apollo" || p.OwnerID != "u1" || p.Status != "ACTIVE" {
		t.Errorf("project = %+v", p)
	}
	if _, ok := resp.Summaries[p.ID]; !ok {
		t.Error("no summary for project")
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/projects", gin.H{"description": "no name"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateProjectRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}

	w := f.do(t, "PATCH", "/projects/"+id, gin.H{"status": "LAUNCHED"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = f.do(t, "PATCH", "/projects/"+id, gin.H{"status": "ON_HOLD"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
}

func TestProjectMutationsRequireOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u2", Name: "Theirs"})
	if err != nil {
		t.Fatal(err)
	}

	// The fixture token is u1's; u2 owns the project.
	w := f.do(t, "PATCH", "/projects/"+id, gin.H{"name": "Hijacked"})
	if w.Code != http.StatusForbidden {
		t.Errorf("update status = %d, want 403", w.Code)
	}
	w = f.do(t, "DELETE", "/projects/"+id, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete status = %d, want 403", w.Code)
	}

	theirs, _ := f.projects.ListForOwner(ctx, "u2")
	if len(theirs) != 1 || theirs[0].Name != "Theirs" {
		t.Errorf("foreign mutation touched the project: %+v", theirs)
	}
}

func TestUpdateMissingProjectNotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "PATCH", "/projects/never-existed", gin.H{"name": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteMissingProjectIdempotent(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "DELETE", "/projects/never-existed", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 so client retries converge", w.Code)
	}
}

func TestDeleteProjectCascadesOverHTTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	projectID, err := f.projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}
	milestoneID, err := f.milestones.Create(ctx, repository.CreateMilestoneInput{ProjectID: projectID, Name: "Design"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.tasks.Create(ctx, repository.CreateTaskInput{ProjectID: projectID, MilestoneID: milestoneID, Title: "t"}); err != nil {
		t.Fatal(err)
	}

	w := f.do(t, "DELETE", "/projects/"+projectID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	remaining, _ := f.tasks.ListForProject(ctx, projectID)
	if len(remaining) != 0 {
		t.Errorf("%d tasks survived the cascade", len(remaining))
	}
	ms, _ := f.milestones.ListForProject(ctx, projectID)
	if len(ms) != 0 {
		t.Errorf("%d milestones survived the cascade", len(ms))
	}
}

func TestMilestoneListIncludesProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	projectID, err := f.projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}
	milestoneID, err := f.milestones.Create(ctx, repository.CreateMilestoneInput{ProjectID: projectID, Name: "Design"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.tasks.Create(ctx, repository.CreateTaskInput{ProjectID: projectID, MilestoneID: milestoneID, Title: "t"}); err != nil {
		t.Fatal(err)
	}

	w := f.do(t, "GET", "/projects/"+projectID+"/milestones", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Milestones []struct {
			ID string `json:"id"`
		} `json:"milestones"`
		Progress map[string]struct {
			Total int `json:"total"`
		} `json:"progress"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Milestones) != 1 {
		t.Fatalf("got %d milestones, want 1", len(resp.Milestones))
	}
	if resp.Progress[milestoneID].Total != 1 {
		t.Errorf("progress = %+v, want total 1", resp.Progress[milestoneID])
	}
}

func TestTaskCreateDefaultsOverHTTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.do(t, "POST", "/milestones/m1/tasks", gin.H{"projectId": "p1", "title": "wire"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	tasks, _ := f.tasks.ListForMilestone(ctx, "m1")
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Status != "BACKLOG" || tasks[0].Priority != "MEDIUM" {
		t.Errorf("defaults = %s/%s, want BACKLOG/MEDIUM", tasks[0].Status, tasks[0].Priority)
	}
}

func TestTaskUpdateClearDueDateOverHTTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := int64(1700000000000)
	id, err := f.tasks.Create(ctx, repository.CreateTaskInput{ProjectID: "p1", MilestoneID: "m1", Title: "t", DueDate: &due})
	if err != nil {
		t.Fatal(err)
	}

	w := f.do(t, "PATCH", "/tasks/"+id, gin.H{"clearDueDate": true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	tasks, _ := f.tasks.ListForMilestone(ctx, "m1")
	if tasks[0].DueDate != nil {
		t.Errorf("DueDate = %v, want cleared", *tasks[0].DueDate)
	}
}

func TestMyTasksEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	projectID, err := f.projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}
	milestoneID, err := f.milestones.Create(ctx, repository.CreateMilestoneInput{ProjectID: projectID, Name: "Design"})
	if err != nil {
		t.Fatal(err)
	}
	me := "u1"
	if _, err := f.tasks.Create(ctx, repository.CreateTaskInput{ProjectID: projectID, MilestoneID: milestoneID, Title: "mine", AssigneeID: &me}); err != nil {
		t.Fatal(err)
	}
	other := "u2"
	if _, err := f.tasks.Create(ctx, repository.CreateTaskInput{ProjectID: projectID, MilestoneID: milestoneID, Title: "theirs", AssigneeID: &other}); err != nil {
		t.Fatal(err)
	}

	w := f.do(t, "GET", "/my-tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Tasks map[string][]struct {
			Title string `json:"title"`
		} `json:"tasks"`
		ProjectNames   map[string]string `json:"projectNames"`
		MilestoneNames map[string]string `json:"milestoneNames"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	backlog := resp.Tasks["BACKLOG"]
	if len(backlog) != 1 || backlog[0].Title != "mine" {
		t.Errorf("backlog = %+v, want only mine", backlog)
	}
	if resp.ProjectNames[projectID] != "Apollo" {
		t.Errorf("projectNames = %+v", resp.ProjectNames)
	}
	if resp.MilestoneNames[milestoneID] != "Design" {
		t.Errorf("milestoneNames = %+v", resp.MilestoneNames)
	}
}

// deniedProjectRepo rejects batch fetches like a store denying reads of
// documents the caller cannot see.
type deniedProjectRepo struct {
	repository.ProjectRepository
}

func (r *deniedProjectRepo) GetByIDs(context.Context, []string) (map[string]model.Project, error) {
	return nil, errors.New("permission denied")
}

func TestMyTasksNameLookupFailureDegrades(t *testing.T) {
	gin.SetMode(gin.TestMode)

	projects := repository.NewMemoryProjectRepository(nil)
	milestones := repository.NewMemoryMilestoneRepository(nil)
	tasks := repository.NewMemoryTaskRepository(nil)
	taskHandler := NewTaskHandler(tasks, &deniedProjectRepo{projects}, milestones,
		controller.NewNameCache(nil, zap.NewNop()), zap.NewNop())

	r := gin.New()
	api := r.Group("/")
	api.Use(auth.Middleware(testSecret))
	api.GET("/my-tasks", taskHandler.MyTasks)

	ctx := context.Background()
	projectID, err := projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}
	milestoneID, err := milestones.Create(ctx, repository.CreateMilestoneInput{ProjectID: projectID, Name: "Design"})
	if err != nil {
		t.Fatal(err)
	}
	me := "u1"
	if _, err := tasks.Create(ctx, repository.CreateTaskInput{ProjectID: projectID, MilestoneID: milestoneID, Title: "mine", AssigneeID: &me}); err != nil {
		t.Fatal(err)
	}

	token, err := auth.MintSessionToken(auth.Identity{UserID: "u1"}, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("GET", "/my-tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// The denied project lookup must not fail the request; the milestone
	// names still resolve and the project label is simply absent.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite denied name lookup", w.Code)
	}
	var resp struct {
		ProjectNames   map[string]string `json:"projectNames"`
		MilestoneNames map[string]string `json:"milestoneNames"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp.ProjectNames[projectID]; ok {
		t.Errorf("projectNames = %+v, want no entry for the denied fetch", resp.ProjectNames)
	}
	if resp.MilestoneNames[milestoneID] != "Design" {
		t.Errorf("milestoneNames = %+v, want Design", resp.MilestoneNames)
	}
}
