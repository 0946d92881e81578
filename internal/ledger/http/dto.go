package http

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
)

type EventResponse struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	OwnerType  string    `json:"owner_type"`
	OwnerID    string    `json:"owner_id"`
	Step       string    `json:"step"`
	ActorID    *string   `json:"actor_id"`
	Note       *string   `json:"note"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEventResponse(ev *ledger.Event) EventResponse {
	return EventResponse{
		ID:         ev.ID,
		Seq:        ev.Seq,
		OwnerType:  string(ev.OwnerType),
		OwnerID:    ev.OwnerID,
		Step:       ev.Step,
		ActorID:    ev.ActorID,
		Note:       ev.Note,
		OccurredAt: ev.OccurredAt,
	}
}

func NewEventResponses(events []*ledger.Event) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, ev := range events {
		out[i] = NewEventResponse(ev)
	}
	return out
}

type ReadLedgerRequest struct {
	OwnerType string `uri:"owner_type" binding:"required"`
	OwnerID   string `uri:"owner_id" binding:"required,uuid"`
}
