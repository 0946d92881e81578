// Package approval gates an action behind independent decisions from a fixed
// set of named parties. The aggregate outcome is always computed from the
// slots and never stored next to them.
package approval

import (
	"fmt"
	"sort"
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var (
	ErrUnknownParty  = apperror.Validation("unknown approval party")
	ErrAlreadyFinal  = apperror.State("request is already approved and can no longer change")
	ErrRejected      = apperror.State("request has been rejected and can no longer change")
	ErrNotEditable   = apperror.State("request can only be edited while pending or incomplete")
	ErrMissingSlot   = apperror.Validation("request is missing an approval slot")
	ErrDuplicateSlot = apperror.Validation("request has a duplicate approval slot")
)

// Party is a department whose decision is required.
type Party string

const (
	PartyFacilities Party = "facilities"
	PartyMarketing  Party = "marketing"
	PartyOperations Party = "operations"
)

// DefaultParties is the party set used for permit requests.
var DefaultParties = []Party{PartyFacilities, PartyMarketing, PartyOperations}

// Decision is the tri-state of a single slot.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Status is the aggregate outcome of a request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusIncomplete Status = "incomplete"
	StatusRejected   Status = "rejected"
)

// Slot is one party's decision.
type Slot struct {
	Party     Party
	Decision  Decision
	ActorID   *string
	DecidedAt *time.Time
}

// Gate holds the party set, fixed at construction.
type Gate struct {
	parties []Party
	known   map[Party]struct{}
}

// NewGate builds a gate over parties. Order is preserved for slot listings.
func NewGate(parties ...Party) *Gate {
	g := &Gate{known: make(map[Party]struct{}, len(parties))}
	for _, p := range parties {
		if _, dup := g.known[p]; dup {
			continue
		}
		g.known[p] = struct{}{}
		g.parties = append(g.parties, p)
	}
	return g
}

// ParseParty validates a raw party name against the gate.
func (g *Gate) ParseParty(raw string) (Party, error) {
	p := Party(raw)
	if _, ok := g.known[p]; !ok {
		return "", ErrUnknownParty
	}
	return p, nil
}

// NewSlots returns one pending slot per party.
func (g *Gate) NewSlots() []Slot {
	slots := make([]Slot, len(g.parties))
	for i, p := range g.parties {
		slots[i] = Slot{Party: p, Decision: DecisionPending}
	}
	return slots
}

// Aggregate computes the outcome purely from slots: approved iff every slot is
// approved, rejected iff any slot is rejected, pending otherwise.
func Aggregate(slots []Slot) Status {
	if len(slots) == 0 {
		return StatusPending
	}
	approved := 0
	for _, s := range slots {
		switch s.Decision {
		case DecisionRejected:
			return StatusRejected
		case DecisionApproved:
			approved++
		}
	}
	if approved == len(slots) {
		return StatusApproved
	}
	return StatusPending
}

// Resolve combines the slot aggregate with the caller-settable revision flag.
// Terminal aggregates win; otherwise a flagged request reads as incomplete.
func Resolve(slots []Slot, needsRevision bool) Status {
	agg := Aggregate(slots)
	if agg == StatusPending && needsRevision {
		return StatusIncomplete
	}
	return agg
}

// CheckSlots verifies slots cover exactly the gate's party set.
func (g *Gate) CheckSlots(slots []Slot) error {
	seen := make(map[Party]struct{}, len(slots))
	for _, s := range slots {
		if _, ok := g.known[s.Party]; !ok {
			return ErrUnknownParty
		}
		if _, dup := seen[s.Party]; dup {
			return ErrDuplicateSlot
		}
		seen[s.Party] = struct{}{}
	}
	if len(seen) != len(g.parties) {
		return ErrMissingSlot
	}
	return nil
}

// Approve records party's approval and returns the new slots and aggregate.
// The input slice is not modified. Approving an already approved slot keeps
// the original actor and timestamp.
func (g *Gate) Approve(slots []Slot, party Party, actorID string, at time.Time) ([]Slot, Status, error) {
	return g.decide(slots, party, DecisionApproved, actorID, at)
}

// Reject records party's rejection. A rejected request is terminal.
func (g *Gate) Reject(slots []Slot, party Party, actorID string, at time.Time) ([]Slot, Status, error) {
	return g.decide(slots, party, DecisionRejected, actorID, at)
}

func (g *Gate) decide(slots []Slot, party Party, d Decision, actorID string, at time.Time) ([]Slot, Status, error) {
	if _, ok := g.known[party]; !ok {
		return nil, "", ErrUnknownParty
	}
	if err := g.CheckSlots(slots); err != nil {
		return nil, "", err
	}
	if err := checkMutable(Aggregate(slots)); err != nil {
		return nil, "", err
	}

	next := make([]Slot, len(slots))
	copy(next, slots)
	for i := range next {
		if next[i].Party != party {
			continue
		}
		if next[i].Decision == d {
			break
		}
		actor := actorID
		ts := at
		next[i].Decision = d
		next[i].ActorID = &actor
		next[i].DecidedAt = &ts
		break
	}
	return next, Aggregate(next), nil
}

// CanEdit reports whether a request in status may have its fields edited.
func CanEdit(status Status) error {
	switch status {
	case StatusPending, StatusIncomplete:
		return nil
	case StatusApproved:
		return ErrAlreadyFinal
	case StatusRejected:
		return ErrRejected
	default:
		return fmt.Errorf("unknown approval status %q", status)
	}
}

func checkMutable(agg Status) error {
	switch agg {
	case StatusApproved:
		return ErrAlreadyFinal
	case StatusRejected:
		return ErrRejected
	}
	return nil
}

// Order returns a copy of slots sorted in the gate's party order. Slots for
// unknown parties go last.
func (g *Gate) Order(slots []Slot) []Slot {
	rank := make(map[Party]int, len(g.parties))
	for i, p := range g.parties {
		rank[p] = i
	}
	out := make([]Slot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		ri, ok := rank[out[i].Party]
		if !ok {
			ri = len(g.parties)
		}
		rj, ok := rank[out[j].Party]
		if !ok {
			rj = len(g.parties)
		}
		return ri < rj
	})
	return out
}

// SlotOf returns the slot for party, if present.
func SlotOf(slots []Slot, party Party) (Slot, bool) {
	for _, s := range slots {
		if s.Party == party {
			return s, true
		}
	}
	return Slot{}, false
}
