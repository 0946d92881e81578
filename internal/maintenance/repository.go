package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/mall-admin-backend/internal/db"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	// GetForUpdate reads and row-locks the request.
	GetForUpdate(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, filter Filter) ([]*Request, int, error)
	Update(ctx context.Context, r *Request) error
}

var requestColumns = []string{
	"id", "tenant_id", "description", "category", "suggested_time", "workers", "status",
	"assigned_to", "created_by", "created_at", "updated_at", "resolved_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, m *Request) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.maintenance_requests").
		Columns("tenant_id", "description", "category", "suggested_time", "workers", "status", "assigned_to", "created_by").
		Values(m.TenantID, m.Description, m.Category, m.SuggestedTime, workers(m.Workers), m.Status, m.AssignedTo, m.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create maintenance request query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if mapped := mapWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("create maintenance request failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	return r.get(ctx, id, false)
}

func (r *pgxRepository) GetForUpdate(ctx context.Context, id string) (*Request, error) {
	return r.get(ctx, id, true)
}

func (r *pgxRepository) get(ctx context.Context, id string, lock bool) (*Request, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select(requestColumns...).
		From("public.maintenance_requests").
		Where(squirrel.Eq{"id": id})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get maintenance request query failed: %w", err)
	}

	var m Request
	err = db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(
		&m.ID, &m.TenantID, &m.Description, &m.Category, &m.SuggestedTime, &m.Workers, &m.Status,
		&m.AssignedTo, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt, &m.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get maintenance request failed: %w", err)
	}
	return &m, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Request, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(requestColumns, "count(*) OVER() AS total_count")...).
		From("public.maintenance_requests")

	if filter.TenantID != "" {
		query = query.Where(squirrel.Eq{"tenant_id": filter.TenantID})
	}
	if filter.Category != "" {
		query = query.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy("created_at " + orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64((filter.Page - 1) * filter.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list maintenance requests query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list maintenance requests failed: %w", err)
	}
	defer rows.Close()

	var out []*Request
	var total int
	for rows.Next() {
		var m Request
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.Description, &m.Category, &m.SuggestedTime, &m.Workers, &m.Status,
			&m.AssignedTo, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt, &m.ResolvedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan maintenance request failed: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate maintenance requests failed: %w", err)
	}
	return out, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, m *Request) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.maintenance_requests").
		Set("status", m.Status).
		Set("assigned_to", m.AssignedTo).
		Set("resolved_at", m.ResolvedAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": m.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update maintenance request query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if mapped := mapWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update maintenance request failed: %w", err)
	}
	return nil
}

func workers(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
		return ErrInvalidStatus
	}
	return nil
}
