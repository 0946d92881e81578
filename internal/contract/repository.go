package contract

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
	"github.com/nekogravitycat/mall-admin-backend/internal/interval"
)

type Repository interface {
	// LockShop takes the shop's row lock for the rest of the transaction.
	// Every write touching a shop's contracts must hold it.
	LockShop(ctx context.Context, shopID string) error
	// ListOccupying returns the periods of the shop's occupying contracts.
	ListOccupying(ctx context.Context, shopID string) ([]interval.Occupant, error)

	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id string) (*Contract, error)
	// GetForUpdate reads and row-locks the contract.
	GetForUpdate(ctx context.Context, id string) (*Contract, error)
	List(ctx context.Context, filter Filter) ([]*Contract, int, error)
	Update(ctx context.Context, c *Contract) error
}

var contractColumns = []string{
	"id", "shop_id", "tenant_id", "start_time", "end_time", "amount", "status", "created_at", "updated_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) LockShop(ctx context.Context, shopID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id").
		From("public.shops").
		Where(squirrel.Eq{"id": shopID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock shop query failed: %w", err)
	}

	var id string
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrShopNotFound
		}
		return fmt.Errorf("lock shop failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListOccupying(ctx context.Context, shopID string) ([]interval.Occupant, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "start_time", "end_time").
		From("public.contracts").
		Where(squirrel.Eq{"shop_id": shopID, "status": OccupyingStatuses}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list occupying query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list occupying contracts failed: %w", err)
	}
	defer rows.Close()

	var out []interval.Occupant
	for rows.Next() {
		var o interval.Occupant
		if err := rows.Scan(&o.OwnerID, &o.Interval.Start, &o.Interval.End); err != nil {
			return nil, fmt.Errorf("scan occupying contract failed: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occupying contracts failed: %w", err)
	}
	return out, nil
}

func (r *pgxRepository) Create(ctx context.Context, c *Contract) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.contracts").
		Columns("shop_id", "tenant_id", "start_time", "end_time", "amount", "status").
		Values(c.ShopID, c.TenantID, c.StartTime, c.EndTime, c.Amount, c.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create contract query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if mapped := mapWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("create contract failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Contract, error) {
	return r.get(ctx, id, false)
}

func (r *pgxRepository) GetForUpdate(ctx context.Context, id string) (*Contract, error) {
	return r.get(ctx, id, true)
}

func (r *pgxRepository) get(ctx context.Context, id string, lock bool) (*Contract, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select(contractColumns...).
		From("public.contracts").
		Where(squirrel.Eq{"id": id})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get contract query failed: %w", err)
	}

	c, err := scanContract(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get contract failed: %w", err)
	}
	return c, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Contract, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(contractColumns, "count(*) OVER() AS total_count")...).
		From("public.contracts")

	if filter.ShopID != "" {
		query = query.Where(squirrel.Eq{"shop_id": filter.ShopID})
	}
	if filter.TenantID != "" {
		query = query.Where(squirrel.Eq{"tenant_id": filter.TenantID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ActiveAt != nil {
		query = query.
			Where(squirrel.LtOrEq{"start_time": *filter.ActiveAt}).
			Where(squirrel.Gt{"end_time": *filter.ActiveAt})
	}

	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy("start_time " + orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64((filter.Page - 1) * filter.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list contracts query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list contracts failed: %w", err)
	}
	defer rows.Close()

	var contracts []*Contract
	var total int
	for rows.Next() {
		var c Contract
		if err := rows.Scan(
			&c.ID, &c.ShopID, &c.TenantID, &c.StartTime, &c.EndTime, &c.Amount, &c.Status, &c.CreatedAt, &c.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan contract failed: %w", err)
		}
		contracts = append(contracts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate contracts failed: %w", err)
	}
	return contracts, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, c *Contract) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.contracts").
		Set("start_time", c.StartTime).
		Set("end_time", c.EndTime).
		Set("amount", c.Amount).
		Set("status", c.Status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update contract query failed: %w", err)
	}

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if mapped := mapWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update contract failed: %w", err)
	}
	return nil
}

func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	if err := row.Scan(&c.ID, &c.ShopID, &c.TenantID, &c.StartTime, &c.EndTime, &c.Amount, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// mapWriteError turns constraint violations into domain errors. The exclusion
// constraint only fires if a writer skipped LockShop.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgerrcode.ExclusionViolation:
		return ErrTimeConflict
	case pgerrcode.ForeignKeyViolation:
		return ErrShopNotFound
	case pgerrcode.CheckViolation:
		return interval.ErrInvalid
	}
	return nil
}
