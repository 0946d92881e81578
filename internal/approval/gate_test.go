package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var at = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestAggregate(t *testing.T) {
	slot := func(p Party, d Decision) Slot { return Slot{Party: p, Decision: d} }

	tests := []struct {
		name  string
		slots []Slot
		want  Status
	}{
		{"all pending", []Slot{
			slot(PartyFacilities, DecisionPending), slot(PartyMarketing, DecisionPending), slot(PartyOperations, DecisionPending),
		}, StatusPending},
		{"two of three approved", []Slot{
			slot(PartyFacilities, DecisionApproved), slot(PartyMarketing, DecisionApproved), slot(PartyOperations, DecisionPending),
		}, StatusPending},
		{"all approved", []Slot{
			slot(PartyFacilities, DecisionApproved), slot(PartyMarketing, DecisionApproved), slot(PartyOperations, DecisionApproved),
		}, StatusApproved},
		{"one rejected wins", []Slot{
			slot(PartyFacilities, DecisionApproved), slot(PartyMarketing, DecisionRejected), slot(PartyOperations, DecisionApproved),
		}, StatusRejected},
		{"no slots", nil, StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.slots))
		})
	}
}

func TestResolveIncomplete(t *testing.T) {
	g := NewGate(DefaultParties...)
	slots := g.NewSlots()

	assert.Equal(t, StatusPending, Resolve(slots, false))
	assert.Equal(t, StatusIncomplete, Resolve(slots, true))

	for _, p := range DefaultParties {
		var err error
		slots, _, err = g.Approve(slots, p, "actor", at)
		require.NoError(t, err)
	}
	assert.Equal(t, StatusApproved, Resolve(slots, true), "terminal aggregate ignores the revision flag")
}

func TestApproveFlipsAggregateOnLastParty(t *testing.T) {
	g := NewGate(DefaultParties...)
	slots := g.NewSlots()

	slots, status, err := g.Approve(slots, PartyFacilities, "u-fac", at)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)

	slots, status, err = g.Approve(slots, PartyMarketing, "u-mkt", at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)

	slots, status, err = g.Approve(slots, PartyOperations, "u-ops", at.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, status)

	ops, ok := SlotOf(slots, PartyOperations)
	require.True(t, ok)
	require.NotNil(t, ops.ActorID)
	assert.Equal(t, "u-ops", *ops.ActorID)
	assert.Equal(t, at.Add(2*time.Minute), *ops.DecidedAt)
}

func TestApproveIsIdempotentAndDoesNotMutateInput(t *testing.T) {
	g := NewGate(DefaultParties...)
	original := g.NewSlots()

	once, _, err := g.Approve(original, PartyMarketing, "first", at)
	require.NoError(t, err)
	twice, status, err := g.Approve(once, PartyMarketing, "second", at.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, status)
	assert.Equal(t, once, twice)
	assert.Equal(t, DecisionPending, original[1].Decision, "input slots must stay untouched")
}

func TestApprovedRequestIsImmutable(t *testing.T) {
	g := NewGate(DefaultParties...)
	slots := g.NewSlots()
	for _, p := range DefaultParties {
		var err error
		slots, _, err = g.Approve(slots, p, "actor", at)
		require.NoError(t, err)
	}
	before := append([]Slot(nil), slots...)

	_, _, err := g.Approve(slots, PartyFacilities, "again", at)
	assert.ErrorIs(t, err, ErrAlreadyFinal)
	assert.True(t, apperror.IsKind(err, apperror.KindState))

	_, _, err = g.Reject(slots, PartyMarketing, "late", at)
	assert.ErrorIs(t, err, ErrAlreadyFinal)

	assert.ErrorIs(t, CanEdit(Aggregate(slots)), ErrAlreadyFinal)
	assert.Equal(t, before, slots)
}

func TestRejectIsTerminal(t *testing.T) {
	g := NewGate(DefaultParties...)
	slots, status, err := g.Reject(g.NewSlots(), PartyOperations, "u-ops", at)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, status)

	_, _, err = g.Approve(slots, PartyFacilities, "u-fac", at)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, CanEdit(status), ErrRejected)
}

func TestUnknownParty(t *testing.T) {
	g := NewGate(DefaultParties...)

	_, err := g.ParseParty("finance")
	assert.ErrorIs(t, err, ErrUnknownParty)

	_, _, err = g.Approve(g.NewSlots(), Party("finance"), "x", at)
	assert.ErrorIs(t, err, ErrUnknownParty)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	p, err := g.ParseParty("marketing")
	require.NoError(t, err)
	assert.Equal(t, PartyMarketing, p)
}

func TestCheckSlots(t *testing.T) {
	g := NewGate(DefaultParties...)
	assert.NoError(t, g.CheckSlots(g.NewSlots()))

	missing := g.NewSlots()[:2]
	assert.ErrorIs(t, g.CheckSlots(missing), ErrMissingSlot)

	dup := append(g.NewSlots()[:2], Slot{Party: PartyFacilities, Decision: DecisionPending})
	assert.ErrorIs(t, g.CheckSlots(dup), ErrDuplicateSlot)
}

func TestCanEdit(t *testing.T) {
	assert.NoError(t, CanEdit(StatusPending))
	assert.NoError(t, CanEdit(StatusIncomplete))
	assert.Error(t, CanEdit(Status("archived")))
	assert.Len(t, NewGate(PartyFacilities, PartyMarketing, PartyOperations, PartyFacilities).NewSlots(), 3, "duplicate parties collapse")
}

func TestOrder(t *testing.T) {
	g := NewGate(DefaultParties...)
	shuffled := []Slot{
		{Party: PartyOperations, Decision: DecisionApproved},
		{Party: PartyFacilities, Decision: DecisionPending},
		{Party: PartyMarketing, Decision: DecisionRejected},
	}

	ordered := g.Order(shuffled)
	assert.Equal(t, []Party{PartyFacilities, PartyMarketing, PartyOperations}, []Party{ordered[0].Party, ordered[1].Party, ordered[2].Party})
	assert.Equal(t, PartyOperations, shuffled[0].Party, "input is left as is")
}
