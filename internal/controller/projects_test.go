package controller

import (
	"context"
	"errors"
	"testing"

	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/service"
	"projecttracker/internal/session"

	"go.uber.org/zap"
)

func alwaysConfirm(string) bool { return true }
func neverConfirm(string) bool  { return false }

func newProjectListFixture(sess *session.Session, confirm ConfirmFunc) (*ProjectListController, *repository.MemoryProjectRepository, *repository.MemoryMilestoneRepository, *repository.MemoryTaskRepository) {
	projects := repository.NewMemoryProjectRepository(nil)
	milestones := repository.NewMemoryMilestoneRepository(nil)
	tasks := repository.NewMemoryTaskRepository(nil)
	cascade := service.NewCascadeService(projects, milestones, tasks, zap.NewNop())
	c := NewProjectListController(sess, projects, milestones, tasks, cascade, confirm, zap.NewNop())
	return c, projects, milestones, tasks
}

func TestProjectListUnauthenticated(t *testing.T) {
	c, _, _, _ := newProjectListFixture(nil, alwaysConfirm)

	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Phase() != PhaseUnauthenticated {
		t.Errorf("Phase = %s, want unauthenticated", c.Phase())
	}
}

func TestProjectListLoad(t *testing.T) {
	sess := &session.Session{UserID: "u1"}
	c, projects, milestones, tasks := newProjectListFixture(sess, alwaysConfirm)
	ctx := context.Background()

	projectID, err := projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}
	milestoneID, err := milestones.Create(ctx, repository.CreateMilestoneInput{ProjectID: projectID, Name: "Design"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tasks.Create(ctx, repository.CreateTaskInput{ProjectID: projectID, MilestoneID: milestoneID, Title: "t"}); err != nil {
		t.Fatal(err)
	}

	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Phase() != PhaseReady {
		t.Fatalf("Phase = %s, want ready", c.Phase())
	}

	list := c.Projects()
	if len(list) != 1 || list[0].Name != "Apollo" {
		t.Errorf("Projects() = %+v, want [Apollo]", list)
	}
	summary, ok := c.Summary(projectID)
	if !ok {
		t.Fatal("no summary for project")
	}
	if summary.MilestoneCount != 1 || summary.TaskCount != 1 {
		t.Errorf("summary = %+v, want 1 milestone / 1 task", summary)
	}
}

func TestProjectListEditLifecycle(t *testing.T) {
	sess := &session.Session{UserID: "u1"}
	c, projects, _, _ := newProjectListFixture(sess, alwaysConfirm)
	ctx := context.Background()

	id, err := projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}

	// Editing is ignored before the page is ready; verified above it is.
	c.StartEdit(id)
	if c.EditingID() != id {
		t.Fatalf("EditingID = %q, want %q", c.EditingID(), id)
	}

	// Editing another record replaces the first.
	c.StartEdit("other")
	if c.EditingID() != "other" {
		t.Errorf("EditingID = %q, want other", c.EditingID())
	}
	c.CancelEdit()
	if c.EditingID() != "" {
		t.Errorf("EditingID after cancel = %q, want empty", c.EditingID())
	}

	// Save with nothing in edit mode is rejected.
	if err := c.SaveEdit(ctx, repository.ProjectUpdate{}); !errors.Is(err, ErrNotEditing) {
		t.Errorf("SaveEdit with no edit = %v, want ErrNotEditing", err)
	}

	c.StartEdit(id)
	name := "Apollo 11"
	if err := c.SaveEdit(ctx, repository.ProjectUpdate{Name: &name}); err != nil {
		t.Fatal(err)
	}
	if c.EditingID() != "" {
		t.Errorf("EditingID after save = %q, want empty", c.EditingID())
	}
	if got := c.Projects()[0].Name; got != "Apollo 11" {
		t.Errorf("Name = %q, want Apollo 11", got)
	}
}

func TestProjectListStartEditBeforeReady(t *testing.T) {
	sess := &session.Session{UserID: "u1"}
	c, _, _, _ := newProjectListFixture(sess, alwaysConfirm)

	c.StartEdit("p1")
	if c.EditingID() != "" {
		t.Errorf("edit mode entered before load: %q", c.EditingID())
	}
}

func TestProjectDeleteDeclinedIsNoop(t *testing.T) {
	sess := &session.Session{UserID: "u1"}
	c, projects, _, _ := newProjectListFixture(sess, neverConfirm)
	ctx := context.Background()

	id, err := projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if len(c.Projects()) != 1 {
		t.Error("declined delete removed the project")
	}
}

func TestProjectDeleteCascades(t *testing.T) {
	sess := &session.Session{UserID: "u1"}
	c, projects, milestones, tasks := newProjectListFixture(sess, alwaysConfirm)
	ctx := context.Background()

	id, err := projects.Create(ctx, repository.CreateProjectInput{OwnerID: "u1", Name: "Apollo"})
	if err != nil {
		t.Fatal(err)
	}
	milestoneID, err := milestones.Create(ctx, repository.CreateMilestoneInput{ProjectID: id, Name: "Design"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tasks.Create(ctx, repository.CreateTaskInput{ProjectID: id, MilestoneID: milestoneID, Title: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	if len(c.Projects()) != 0 {
		t.Error("project still listed after delete")
	}
	ts, _ := tasks.ListForProject(ctx, id)
	if len(ts) != 0 {
		t.Errorf("%d tasks survived the cascade", len(ts))
	}
}

// blockingProjectRepo parks Create until released so a second mutation can be
// attempted while the first is in flight.
type blockingProjectRepo struct {
	repository.ProjectRepository
	enter   chan struct{}
	release chan struct{}
}

func (r *blockingProjectRepo) Create(ctx context.Context, in repository.CreateProjectInput) (string, error) {
	r.enter <- struct{}{}
	<-r.release
	return r.ProjectRepository.Create(ctx, in)
}

func TestProjectCreatePendingLatch(t *testing.T) {
	sess := &session.Session{UserID: "u1"}
	projects := repository.NewMemoryProjectRepository(nil)
	milestones := repository.NewMemoryMilestoneRepository(nil)
	tasks := repository.NewMemoryTaskRepository(nil)
	blocking := &blockingProjectRepo{
		ProjectRepository: projects,
		enter:             make(chan struct{}),
		release:           make(chan struct{}),
	}
	cascade := service.NewCascadeService(blocking, milestones, tasks, zap.NewNop())
	c := NewProjectListController(sess, blocking, milestones, tasks, cascade, ConfirmFunc(alwaysConfirm), zap.NewNop())
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Create(ctx, "Apollo", "")
	}()
	<-blocking.enter

	if !c.Pending() {
		t.Error("Pending() = false during in-flight mutation")
	}
	if err := c.Create(ctx, "Gemini", ""); !errors.Is(err, ErrPending) {
		t.Errorf("second Create = %v, want ErrPending", err)
	}

	close(blocking.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if c.Pending() {
		t.Error("Pending() = true after mutation completed")
	}
	if len(c.Projects()) != 1 {
		t.Errorf("%d projects, want 1", len(c.Projects()))
	}
}

func TestProjectListLoadErrorRecorded(t *testing.T) {
	sess := &session.Session{UserID: "u1"}
	boom := errors.New("store down")
	failing := &failingProjectRepo{err: boom}
	milestones := repository.NewMemoryMilestoneRepository(nil)
	tasks := repository.NewMemoryTaskRepository(nil)
	cascade := service.NewCascadeService(failing, milestones, tasks, zap.NewNop())
	c := NewProjectListController(sess, failing, milestones, tasks, cascade, ConfirmFunc(alwaysConfirm), zap.NewNop())

	if err := c.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Load = %v, want %v", err, boom)
	}
	if c.Phase() != PhaseLoading {
		t.Errorf("Phase = %s, want loading after failed primary read", c.Phase())
	}
	if !errors.Is(c.Err(), boom) {
		t.Errorf("Err() = %v, want %v", c.Err(), boom)
	}
}

type failingProjectRepo struct {
	repository.ProjectRepository
	err error
}

func (r *failingProjectRepo) ListForOwner(context.Context, string) ([]model.Project, error) {
	return nil, r.err
}
