package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/db/dbtest"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger/ledgertest"
	"github.com/nekogravitycat/mall-admin-backend/internal/notify/notifytest"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
	"github.com/nekogravitycat/mall-admin-backend/internal/task"
	"github.com/nekogravitycat/mall-admin-backend/internal/task/tasktest"
)

var (
	manager    = auth.Actor{ID: "u-mgr", Role: auth.RoleManager}
	opsManager = auth.Actor{ID: "u-ops", Role: auth.RoleOperationsManager, Department: "operations"}
	cleaner    = auth.Actor{ID: "u-clean", Role: auth.RoleStaff, Department: "cleaning"}
	guard      = auth.Actor{ID: "u-guard", Role: auth.RoleSecurity, Department: "security"}
)

type fixture struct {
	svc      task.Service
	repo     *tasktest.Repository
	events   *ledgertest.Repository
	tx       *dbtest.TxManager
	notifier *notifytest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := tasktest.New()
	events := ledgertest.New()
	events.RegisterOwners(ledger.OwnerTask, repo.Exists)
	tx := dbtest.NewTxManager(repo, events)
	notifier := notifytest.New()
	svc := task.NewService(repo, ledger.NewService(events, tx, nil), status.NewDeriver(), tx, notifier)
	return &fixture{svc: svc, repo: repo, events: events, tx: tx, notifier: notifier}
}

func (f *fixture) create(t *testing.T, dept string) *task.Task {
	t.Helper()
	tk, err := f.svc.Create(context.Background(), opsManager, task.CreateRequest{Title: "Replace lobby lights", DepartmentID: dept})
	require.NoError(t, err)
	return tk
}

func steps(events []*ledger.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Step
	}
	return out
}

func TestCreateStartsRedWithCreatedEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tk := f.create(t, "cleaning")
	assert.Equal(t, task.StatusRed, tk.Status)
	assert.Equal(t, opsManager.ID, tk.CreatedBy)

	events, err := f.svc.Workflow(ctx, manager, tk.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "created", events[0].Step)
	require.NotNil(t, events[0].ActorID)
	assert.Equal(t, opsManager.ID, *events[0].ActorID)
	assert.Equal(t, []string{task.TopicCreated}, f.notifier.Topics())
}

func TestStepsDriveStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.create(t, "cleaning")

	got, _, err := f.svc.AppendStep(ctx, cleaner, tk.ID, "yellow_warning", nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusYellow, got.Status)

	got, ev, err := f.svc.AppendStep(ctx, cleaner, tk.ID, "returned", nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusReturned, got.Status)
	assert.Equal(t, "returned", ev.Step)

	got, _, err = f.svc.AppendStep(ctx, cleaner, tk.ID, "green", nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusGreen, got.Status)

	stored, err := f.svc.GetByID(ctx, cleaner, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusGreen, stored.Status)

	events, err := f.svc.Workflow(ctx, cleaner, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"created", "yellow_warning", "returned", "green"}, steps(events))
}

// Only the newest step counts, so an unlisted step after completion turns the task red again.
func TestStatusFollowsLatestStepOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.create(t, "cleaning")

	got, _, err := f.svc.AppendStep(ctx, manager, tk.ID, "completed", nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusGreen, got.Status)

	note := "found more stains"
	got, ev, err := f.svc.AppendStep(ctx, manager, tk.ID, "reinspection", &note)
	require.NoError(t, err)
	assert.Equal(t, task.StatusRed, got.Status)
	require.NotNil(t, ev.Note)
	assert.Equal(t, note, *ev.Note)

	recorded := f.notifier.Events()
	last := recorded[len(recorded)-1]
	assert.Equal(t, task.TopicStepAppended, last.Topic)
	assert.Equal(t, "green", last.Attributes["previous_status"])
	assert.Equal(t, "red", last.Status)
}

func TestAppendStepAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.create(t, "cleaning")
	before := f.events.Count()

	_, _, err := f.svc.AppendStep(ctx, guard, tk.ID, "completed", nil)
	assert.ErrorIs(t, err, task.ErrNotInDepartment)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	_, _, err = f.svc.AppendStep(ctx, cleaner, tk.ID, "  ", nil)
	assert.ErrorIs(t, err, ledger.ErrStepRequired)

	_, _, err = f.svc.AppendStep(ctx, cleaner, uuid.NewString(), "completed", nil)
	assert.ErrorIs(t, err, task.ErrNotFound)

	assert.Equal(t, before, f.events.Count(), "refused steps leave no trace")

	// An assignee outside the department may still report progress.
	assignee := "u-guard"
	assigned, err := f.svc.Create(ctx, opsManager, task.CreateRequest{Title: "Check exits", DepartmentID: "cleaning", AssignedTo: &assignee})
	require.NoError(t, err)
	got, _, err := f.svc.AppendStep(ctx, guard, assigned.ID, "yellow", nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusYellow, got.Status)
}

func TestCreateValidationAndAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, cleaner, task.CreateRequest{Title: "x", DepartmentID: "cleaning"})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.Create(ctx, opsManager, task.CreateRequest{Title: "   ", DepartmentID: "cleaning"})
	assert.ErrorIs(t, err, task.ErrTitleRequired)

	_, err = f.svc.Create(ctx, opsManager, task.CreateRequest{Title: "Mop floor"})
	assert.ErrorIs(t, err, task.ErrDepartmentRequired)

	assert.Zero(t, f.repo.Len())
	assert.Zero(t, f.events.Count())
}

func TestCreateForDepartments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tasks, err := f.svc.CreateForDepartments(ctx, manager, task.DepartmentsRequest{
		Title:         "Fire drill briefing",
		DepartmentIDs: []string{"cleaning", "security", "cleaning"},
		DueDate:       &due,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "cleaning", tasks[0].DepartmentID)
	assert.Equal(t, "security", tasks[1].DepartmentID)
	for _, tk := range tasks {
		assert.Equal(t, task.StatusRed, tk.Status)
		assert.Equal(t, due, *tk.DueDate)
	}
	assert.Equal(t, 2, f.events.Count())

	_, err = f.svc.CreateForDepartments(ctx, opsManager, task.DepartmentsRequest{Title: "x", DepartmentIDs: []string{"cleaning"}})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.CreateForDepartments(ctx, manager, task.DepartmentsRequest{Title: "x"})
	assert.ErrorIs(t, err, task.ErrDepartmentRequired)
}

func TestCreateForDepartmentsIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.repo.FailCreateFor = "security"

	_, err := f.svc.CreateForDepartments(context.Background(), manager, task.DepartmentsRequest{
		Title:         "Fire drill briefing",
		DepartmentIDs: []string{"cleaning", "security"},
	})
	require.ErrorIs(t, err, tasktest.ErrCreate)

	assert.Zero(t, f.repo.Len())
	assert.Zero(t, f.events.Count())
	assert.Empty(t, f.notifier.Events())
	_, rollbacks := f.tx.Stats()
	assert.Equal(t, 1, rollbacks)
}

func TestListIsDepartmentScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "cleaning")
	f.create(t, "cleaning")
	sec := f.create(t, "security")

	_, total, err := f.svc.List(ctx, manager, task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	tasks, total, err := f.svc.List(ctx, cleaner, task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, tk := range tasks {
		assert.Equal(t, "cleaning", tk.DepartmentID)
	}

	// Another department's filter only shows the actor's own assignments there.
	_, total, err = f.svc.List(ctx, cleaner, task.Filter{DepartmentID: "security"})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = f.svc.GetByID(ctx, cleaner, sec.ID)
	assert.ErrorIs(t, err, task.ErrNotInDepartment)
	_, err = f.svc.Workflow(ctx, cleaner, sec.ID)
	assert.ErrorIs(t, err, task.ErrNotInDepartment)

	_, _, err = f.svc.List(ctx, manager, task.Filter{Status: "purple"})
	assert.ErrorIs(t, err, task.ErrInvalidStatus)

	_, _, err = f.svc.AppendStep(ctx, guard, sec.ID, "completed", nil)
	require.NoError(t, err)
	green, total, err := f.svc.List(ctx, manager, task.Filter{Status: "green"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, sec.ID, green[0].ID)

	// Actors without a department see only what is assigned to them.
	tenant := auth.Actor{ID: "u-tenant", Role: auth.RoleTenant}
	_, total, err = f.svc.List(ctx, tenant, task.Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestListIncludesAssignmentsFromOtherDepartments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := f.create(t, "cleaning")
	f.create(t, "security")
	assignee := cleaner.ID
	foreign, err := f.svc.Create(ctx, opsManager, task.CreateRequest{Title: "Mop the guard room", DepartmentID: "security", AssignedTo: &assignee})
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, cleaner, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, foreign.ID, got.ID)

	tasks, total, err := f.svc.List(ctx, cleaner, task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	ids := make([]string, len(tasks))
	for i, tk := range tasks {
		ids[i] = tk.ID
	}
	assert.ElementsMatch(t, []string{own.ID, foreign.ID}, ids)

	tasks, total, err = f.svc.List(ctx, cleaner, task.Filter{DepartmentID: "security"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, foreign.ID, tasks[0].ID)

	_, total, err = f.svc.List(ctx, cleaner, task.Filter{DepartmentID: "cleaning"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// The guard's department listing is unaffected by who the task is assigned to.
	_, total, err = f.svc.List(ctx, guard, task.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestUpdateKeepsStatusAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.create(t, "cleaning")
	_, _, err := f.svc.AppendStep(ctx, cleaner, tk.ID, "yellow", nil)
	require.NoError(t, err)
	before := f.events.Count()

	title := "Replace lobby and hallway lights"
	assignee := "u-clean"
	got, err := f.svc.Update(ctx, opsManager, tk.ID, task.UpdateRequest{Title: &title, AssignedTo: &assignee})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, assignee, *got.AssignedTo)
	assert.Equal(t, task.StatusYellow, got.Status)
	assert.Equal(t, before, f.events.Count())

	blank := ""
	_, err = f.svc.Update(ctx, opsManager, tk.ID, task.UpdateRequest{Title: &blank})
	assert.ErrorIs(t, err, task.ErrTitleRequired)

	_, err = f.svc.Update(ctx, opsManager, tk.ID, task.UpdateRequest{})
	assert.ErrorIs(t, err, task.ErrNothingToApply)

	_, err = f.svc.Update(ctx, cleaner, tk.ID, task.UpdateRequest{Title: &title})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.Update(ctx, opsManager, uuid.NewString(), task.UpdateRequest{Title: &title})
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"red", "yellow", "green", "returned", "pending"} {
		s, err := task.ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, task.Status(raw), s)
	}
	_, err := task.ParseStatus("Green")
	assert.ErrorIs(t, err, task.ErrInvalidStatus)
}
