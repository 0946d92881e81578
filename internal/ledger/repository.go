package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/mall-admin-backend/internal/db"
)

// Repository stores workflow events. It has no update or delete.
type Repository interface {
	OwnerExists(ctx context.Context, ownerType OwnerType, ownerID string) (bool, error)
	LatestOccurredAt(ctx context.Context, ownerType OwnerType, ownerID string) (*time.Time, error)
	Insert(ctx context.Context, ev *Event) error
	List(ctx context.Context, ownerType OwnerType, ownerID string) ([]*Event, error)
}

var ownerTables = map[OwnerType]string{
	OwnerContract:    "public.contracts",
	OwnerPermit:      "public.permit_requests",
	OwnerTask:        "public.tasks",
	OwnerMaintenance: "public.maintenance_requests",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) OwnerExists(ctx context.Context, ownerType OwnerType, ownerID string) (bool, error) {
	table, ok := ownerTables[ownerType]
	if !ok {
		return false, ErrUnknownOwnerType
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sub, args, err := psql.Select("1").From(table).Where(squirrel.Eq{"id": ownerID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build owner exists query failed: %w", err)
	}

	var exists bool
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check owner exists failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) LatestOccurredAt(ctx context.Context, ownerType OwnerType, ownerID string) (*time.Time, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("max(occurred_at)").
		From("public.workflow_events").
		Where(squirrel.Eq{"owner_type": ownerType, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest event query failed: %w", err)
	}

	var latest *time.Time
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&latest); err != nil {
		return nil, fmt.Errorf("get latest event failed: %w", err)
	}
	return latest, nil
}

func (r *pgxRepository) Insert(ctx context.Context, ev *Event) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.workflow_events").
		Columns("owner_type", "owner_id", "step", "actor_id", "note", "occurred_at").
		Values(ev.OwnerType, ev.OwnerID, ev.Step, ev.ActorID, ev.Note, ev.OccurredAt).
		Suffix("RETURNING id, seq").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert event query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&ev.ID, &ev.Seq); err != nil {
		return fmt.Errorf("insert event failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) List(ctx context.Context, ownerType OwnerType, ownerID string) ([]*Event, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "seq", "owner_type", "owner_id", "step", "actor_id", "note", "occurred_at").
		From("public.workflow_events").
		Where(squirrel.Eq{"owner_type": ownerType, "owner_id": ownerID}).
		OrderBy("occurred_at ASC", "seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events failed: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.OwnerType, &ev.OwnerID, &ev.Step, &ev.ActorID, &ev.Note, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event failed: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events failed: %w", err)
	}
	return events, nil
}
