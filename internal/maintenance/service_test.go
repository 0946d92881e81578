package maintenance_test

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
	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance"
	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance/maintenancetest"
	"github.com/nekogravitycat/mall-admin-backend/internal/notify/notifytest"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
)

var (
	manager    = auth.Actor{ID: "u-mgr", Role: auth.RoleManager}
	fmManager  = auth.Actor{ID: "u-fm", Role: auth.RoleFacilitiesManager, Department: "facilities"}
	technician = auth.Actor{ID: "u-tech", Role: auth.RoleStaff, Department: "facilities"}
	tenant     = auth.Actor{ID: "t-cafe", Role: auth.RoleTenant}
	neighbour  = auth.Actor{ID: "t-books", Role: auth.RoleTenant}
	marketing  = auth.Actor{ID: "u-mkt", Role: auth.RoleMarketingManager, Department: "marketing"}
)

var t0 = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc      maintenance.Service
	repo     *maintenancetest.Repository
	events   *ledgertest.Repository
	tx       *dbtest.TxManager
	notifier *notifytest.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := maintenancetest.New()
	events := ledgertest.New()
	events.RegisterOwners(ledger.OwnerMaintenance, repo.Exists)
	tx := dbtest.NewTxManager(repo, events)
	notifier := notifytest.New()

	now := t0
	clock := func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	svc := maintenance.NewService(repo, ledger.NewService(events, tx, clock), status.NewDeriver(), tx, notifier)
	return &fixture{svc: svc, repo: repo, events: events, tx: tx, notifier: notifier}
}

func (f *fixture) file(t *testing.T, actor auth.Actor) *maintenance.Request {
	t.Helper()
	category := "plumbing"
	m, err := f.svc.Create(context.Background(), actor, maintenance.CreateRequest{
		TenantID:    "t-cafe",
		Description: "Leaking sink in the kitchen",
		Category:    &category,
		Workers:     []string{" Ali ", "", "Sara"},
	})
	require.NoError(t, err)
	return m
}

func TestCreateStartsPendingAndNotifiesDepartments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	suggested := time.Date(2026, 4, 2, 10, 30, 0, 0, time.FixedZone("IRST", 3*3600+1800))
	m, err := f.svc.Create(ctx, tenant, maintenance.CreateRequest{
		TenantID:      "t-someone-else",
		Description:   "  Broken shutter  ",
		SuggestedTime: &suggested,
	})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusPending, m.Status)
	assert.Equal(t, tenant.ID, m.TenantID, "tenants always file for themselves")
	assert.Equal(t, "Broken shutter", m.Description)
	assert.Equal(t, time.UTC, m.SuggestedTime.Location())
	assert.Nil(t, m.ResolvedAt)
	assert.Empty(t, m.Workers)

	events, err := f.svc.Workflow(ctx, tenant, m.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "created", events[0].Step)

	sent := f.notifier.Events()
	require.Len(t, sent, 1)
	assert.Equal(t, maintenance.TopicRequested, sent[0].Topic)
	assert.Equal(t, "operations,facilities", sent[0].Attributes["departments"])
	assert.Equal(t, tenant.ID, sent[0].Attributes["tenant_id"])
	assert.Equal(t, "2026-04-02T07:00:00Z", sent[0].Attributes["suggested_time"])
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, fmManager, maintenance.CreateRequest{Description: "Flicker"})
	assert.ErrorIs(t, err, maintenance.ErrTenantRequired)

	_, err = f.svc.Create(ctx, fmManager, maintenance.CreateRequest{TenantID: "t-cafe", Description: "   "})
	assert.ErrorIs(t, err, maintenance.ErrDescriptionRequired)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = f.svc.Create(ctx, marketing, maintenance.CreateRequest{TenantID: "t-cafe", Description: "Flicker"})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	assert.Zero(t, f.events.Count())
	assert.Empty(t, f.notifier.Topics())
}

func TestStepsDriveStatusAndResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.file(t, fmManager)
	assert.Equal(t, []string{"Ali", "Sara"}, m.Workers)

	assignee := "u-tech"
	got, _, err := f.svc.AppendStep(ctx, fmManager, m.ID, maintenance.StepRequest{Step: "assigned", AssignTo: &assignee})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusInProgress, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "u-tech", *got.AssignedTo)

	got, ev, err := f.svc.AppendStep(ctx, technician, m.ID, maintenance.StepRequest{Step: "completed"})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, ev.OccurredAt, *got.ResolvedAt)
	resolvedAt := *got.ResolvedAt

	// A note after resolution keeps the original resolution time.
	got, _, err = f.svc.AppendStep(ctx, technician, m.ID, maintenance.StepRequest{Step: "resolved"})
	require.NoError(t, err)
	assert.Equal(t, resolvedAt, *got.ResolvedAt)

	// Reopening follows the latest step and clears the resolution.
	got, _, err = f.svc.AppendStep(ctx, fmManager, m.ID, maintenance.StepRequest{Step: "reopened"})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusPending, got.Status)
	assert.Nil(t, got.ResolvedAt)

	stored, err := f.svc.GetByID(ctx, tenant, m.ID)
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusPending, stored.Status)
	assert.Equal(t, "u-tech", *stored.AssignedTo)

	events, err := f.svc.Workflow(ctx, manager, m.ID)
	require.NoError(t, err)
	steps := make([]string, len(events))
	for i, e := range events {
		steps[i] = e.Step
	}
	assert.Equal(t, []string{"created", "assigned", "completed", "resolved", "reopened"}, steps)

	assert.Equal(t, []string{
		maintenance.TopicRequested,
		maintenance.TopicStepAppended,
		maintenance.TopicStepAppended,
		maintenance.TopicStepAppended,
		maintenance.TopicStepAppended,
	}, f.notifier.Topics())
	last := f.notifier.Events()[4]
	assert.Equal(t, string(maintenance.StatusResolved), last.Attributes["previous_status"])
}

func TestStepWithoutStatusChangeWritesOnlyTheEvent(t *testing.T) {
	f := newFixture(t)
	m := f.file(t, fmManager)
	before := f.repo.Updates()

	got, _, err := f.svc.AppendStep(context.Background(), technician, m.ID, maintenance.StepRequest{Step: "inspected"})
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusPending, got.Status)
	assert.Equal(t, before, f.repo.Updates())
	assert.Equal(t, 2, f.events.Count())
}

func TestAppendStepRefusals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.file(t, fmManager)
	before := f.events.Count()

	_, _, err := f.svc.AppendStep(ctx, tenant, m.ID, maintenance.StepRequest{Step: "completed"})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, _, err = f.svc.AppendStep(ctx, technician, m.ID, maintenance.StepRequest{Step: " "})
	assert.ErrorIs(t, err, ledger.ErrStepRequired)

	_, _, err = f.svc.AppendStep(ctx, technician, uuid.NewString(), maintenance.StepRequest{Step: "completed"})
	assert.ErrorIs(t, err, maintenance.ErrNotFound)

	assert.Equal(t, before, f.events.Count(), "refused steps leave no trace")
	_, rollbacks := f.tx.Stats()
	assert.Equal(t, 2, rollbacks)
}

func TestTenantsSeeOnlyTheirOwnRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := f.file(t, tenant)
	other, err := f.svc.Create(ctx, neighbour, maintenance.CreateRequest{Description: "Door sticks"})
	require.NoError(t, err)

	_, err = f.svc.GetByID(ctx, tenant, other.ID)
	assert.ErrorIs(t, err, maintenance.ErrNotOwnRequest)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))
	_, err = f.svc.Workflow(ctx, tenant, other.ID)
	assert.ErrorIs(t, err, maintenance.ErrNotOwnRequest)

	list, total, err := f.svc.List(ctx, tenant, maintenance.Filter{TenantID: neighbour.ID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, own.ID, list[0].ID)

	_, total, err = f.svc.List(ctx, technician, maintenance.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, total, err = f.svc.List(ctx, manager, maintenance.Filter{Category: "plumbing"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, _, err = f.svc.List(ctx, manager, maintenance.Filter{Status: "fixed"})
	assert.ErrorIs(t, err, maintenance.ErrInvalidStatus)

	_, err = f.svc.GetByID(ctx, manager, uuid.NewString())
	assert.ErrorIs(t, err, maintenance.ErrNotFound)
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"pending", "in_progress", "resolved", "rejected"} {
		got, err := maintenance.ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, maintenance.Status(raw), got)
	}
	_, err := maintenance.ParseStatus("open")
	assert.ErrorIs(t, err, maintenance.ErrInvalidStatus)
}
