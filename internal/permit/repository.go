package permit

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/mall-admin-backend/internal/approval"
	"github.com/nekogravitycat/mall-admin-backend/internal/db"
)

type Repository interface {
	// Create inserts the request together with its slots and workers.
	Create(ctx context.Context, p *Permit) error
	GetByID(ctx context.Context, id string) (*Permit, error)
	// GetForUpdate row-locks the request; its slots can only change under this lock.
	GetForUpdate(ctx context.Context, id string) (*Permit, error)
	List(ctx context.Context, filter Filter) ([]*Permit, int, error)
	ListPendingForParty(ctx context.Context, party approval.Party) ([]*Permit, error)
	ListByStatus(ctx context.Context, status approval.Status) ([]*Permit, error)
	Recent(ctx context.Context, limit int) ([]*Permit, error)
	Counts(ctx context.Context) (*Counts, error)
	// Update writes the details and revision flag, and the workers when replaceWorkers is set.
	Update(ctx context.Context, p *Permit, replaceWorkers bool) error
	SaveSlot(ctx context.Context, permitID string, slot approval.Slot) error
	SetNeedsRevision(ctx context.Context, id string, flag bool) error
}

// statusExpr mirrors approval.Resolve in SQL so lists can filter and count by status.
const statusExpr = `CASE
	WHEN EXISTS (SELECT 1 FROM public.permit_approvals a WHERE a.permit_id = p.id AND a.decision = 'rejected') THEN 'rejected'
	WHEN NOT EXISTS (SELECT 1 FROM public.permit_approvals a WHERE a.permit_id = p.id AND a.decision <> 'approved') THEN 'approved'
	WHEN p.needs_revision THEN 'incomplete'
	ELSE 'pending'
END`

var permitColumns = []string{
	"p.id", "p.company_name", "p.job_location", "p.onsite_in_charge", "p.contact_no", "p.ref",
	"p.tenant_or_contractor", "p.job_date_from", "p.job_date_to", "p.job_time_from", "p.job_time_to",
	"p.job_type", "p.job_description", "p.requested_by", "p.risk_assessment", "p.safety_measures",
	"p.equipment_list", "p.need_power_cut", "p.need_mall_staff", "p.extra_notes", "p.needs_revision",
	"p.created_at", "p.updated_at",
}

func scanTargets(p *Permit) []any {
	return []any{
		&p.ID, &p.CompanyName, &p.JobLocation, &p.OnsiteInCharge, &p.ContactNo, &p.Ref,
		&p.RequesterType, &p.JobDateFrom, &p.JobDateTo, &p.JobTimeFrom, &p.JobTimeTo,
		&p.JobType, &p.JobDescription, &p.RequestedBy, &p.RiskAssessment, &p.SafetyMeasures,
		&p.EquipmentList, &p.NeedPowerCut, &p.NeedMallStaff, &p.ExtraNotes, &p.NeedsRevision,
		&p.CreatedAt, &p.UpdatedAt,
	}
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, p *Permit) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.permit_requests").
		Columns(
			"company_name", "job_location", "onsite_in_charge", "contact_no", "ref", "tenant_or_contractor",
			"job_date_from", "job_date_to", "job_time_from", "job_time_to", "job_type", "job_description",
			"requested_by", "risk_assessment", "safety_measures", "equipment_list", "need_power_cut",
			"need_mall_staff", "extra_notes", "needs_revision",
		).
		Values(
			p.CompanyName, p.JobLocation, p.OnsiteInCharge, p.ContactNo, p.Ref, p.RequesterType,
			p.JobDateFrom, p.JobDateTo, p.JobTimeFrom, p.JobTimeTo, p.JobType, p.JobDescription,
			p.RequestedBy, p.RiskAssessment, p.SafetyMeasures, equipment(p.EquipmentList), p.NeedPowerCut,
			p.NeedMallStaff, p.ExtraNotes, p.NeedsRevision,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create permit query failed: %w", err)
	}

	conn := db.Conn(ctx, r.pool)
	if err := conn.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if mapped := mapWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("create permit failed: %w", err)
	}

	slots := psql.Insert("public.permit_approvals").Columns("permit_id", "party", "decision", "actor_id", "decided_at")
	for _, s := range p.Slots {
		slots = slots.Values(p.ID, s.Party, s.Decision, s.ActorID, s.DecidedAt)
	}
	query, args, err = slots.ToSql()
	if err != nil {
		return fmt.Errorf("build create permit slots query failed: %w", err)
	}
	if _, err := conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("create permit slots failed: %w", err)
	}

	return r.insertWorkers(ctx, p.ID, p.Workers)
}

func (r *pgxRepository) insertWorkers(ctx context.Context, permitID string, workers []Worker) error {
	if len(workers) == 0 {
		return nil
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Insert("public.permit_workers").Columns("permit_id", "name", "code")
	for _, w := range workers {
		q = q.Values(permitID, w.Name, w.Code)
	}
	query, args, err := q.Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("build create workers query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("create workers failed: %w", err)
	}
	defer rows.Close()

	// Multi-row INSERT ... RETURNING yields rows in VALUES order.
	i := 0
	for rows.Next() {
		if err := rows.Scan(&workers[i].ID); err != nil {
			return fmt.Errorf("scan worker id failed: %w", err)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("create workers failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Permit, error) {
	return r.get(ctx, id, false)
}

func (r *pgxRepository) GetForUpdate(ctx context.Context, id string) (*Permit, error) {
	return r.get(ctx, id, true)
}

func (r *pgxRepository) get(ctx context.Context, id string, lock bool) (*Permit, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select(permitColumns...).
		From("public.permit_requests p").
		Where(squirrel.Eq{"p.id": id})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get permit query failed: %w", err)
	}

	var p Permit
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(scanTargets(&p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get permit failed: %w", err)
	}

	if err := r.loadChildren(ctx, []*Permit{&p}, true); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Permit, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(permitColumns, "count(*) OVER() AS total_count")...).
		From("public.permit_requests p")

	if filter.Status != "" {
		query = query.Where(squirrel.Expr("("+statusExpr+") = ?", filter.Status))
	}
	if filter.CompanyName != "" {
		query = query.Where(squirrel.ILike{"p.company_name": "%" + filter.CompanyName + "%"})
	}

	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy("p.created_at " + orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64((filter.Page - 1) * filter.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list permits query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list permits failed: %w", err)
	}
	defer rows.Close()

	var permits []*Permit
	var total int
	for rows.Next() {
		var p Permit
		if err := rows.Scan(append(scanTargets(&p), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan permit failed: %w", err)
		}
		permits = append(permits, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate permits failed: %w", err)
	}

	if err := r.loadChildren(ctx, permits, false); err != nil {
		return nil, 0, err
	}
	return permits, total, nil
}

func (r *pgxRepository) ListPendingForParty(ctx context.Context, party approval.Party) ([]*Permit, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select(permitColumns...).
		From("public.permit_requests p").
		Join("public.permit_approvals pa ON pa.permit_id = p.id").
		Where(squirrel.Eq{"pa.party": party, "pa.decision": approval.DecisionPending}).
		Where(squirrel.Expr("("+statusExpr+") IN (?, ?)", approval.StatusPending, approval.StatusIncomplete)).
		OrderBy("p.created_at ASC")
	return r.listWhere(ctx, q)
}

func (r *pgxRepository) ListByStatus(ctx context.Context, status approval.Status) ([]*Permit, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select(permitColumns...).
		From("public.permit_requests p").
		Where(squirrel.Expr("("+statusExpr+") = ?", status)).
		OrderBy("p.created_at DESC")
	return r.listWhere(ctx, q)
}

func (r *pgxRepository) Recent(ctx context.Context, limit int) ([]*Permit, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select(permitColumns...).
		From("public.permit_requests p").
		OrderBy("p.created_at DESC").
		Limit(uint64(limit))
	return r.listWhere(ctx, q)
}

func (r *pgxRepository) listWhere(ctx context.Context, q squirrel.SelectBuilder) ([]*Permit, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list permits query failed: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list permits failed: %w", err)
	}
	defer rows.Close()

	var permits []*Permit
	for rows.Next() {
		var p Permit
		if err := rows.Scan(scanTargets(&p)...); err != nil {
			return nil, fmt.Errorf("scan permit failed: %w", err)
		}
		permits = append(permits, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permits failed: %w", err)
	}

	if err := r.loadChildren(ctx, permits, false); err != nil {
		return nil, err
	}
	return permits, nil
}

// loadChildren fills in slots for every permit and, when withWorkers is set, workers.
func (r *pgxRepository) loadChildren(ctx context.Context, permits []*Permit, withWorkers bool) error {
	if len(permits) == 0 {
		return nil
	}
	byID := make(map[string]*Permit, len(permits))
	ids := make([]string, len(permits))
	for i, p := range permits {
		byID[p.ID] = p
		ids[i] = p.ID
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("permit_id", "party", "decision", "actor_id", "decided_at").
		From("public.permit_approvals").
		Where(squirrel.Eq{"permit_id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build list slots query failed: %w", err)
	}

	conn := db.Conn(ctx, r.pool)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list slots failed: %w", err)
	}
	for rows.Next() {
		var permitID string
		var s approval.Slot
		if err := rows.Scan(&permitID, &s.Party, &s.Decision, &s.ActorID, &s.DecidedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan slot failed: %w", err)
		}
		byID[permitID].Slots = append(byID[permitID].Slots, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate slots failed: %w", err)
	}

	if !withWorkers {
		return nil
	}

	query, args, err = psql.Select("permit_id", "id", "name", "code").
		From("public.permit_workers").
		Where(squirrel.Eq{"permit_id": ids}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build list workers query failed: %w", err)
	}

	rows, err = conn.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list workers failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var permitID string
		var w Worker
		if err := rows.Scan(&permitID, &w.ID, &w.Name, &w.Code); err != nil {
			return fmt.Errorf("scan worker failed: %w", err)
		}
		byID[permitID].Workers = append(byID[permitID].Workers, w)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate workers failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Counts(ctx context.Context) (*Counts, error) {
	query := "SELECT st, count(*) FROM (SELECT " + statusExpr + " AS st FROM public.permit_requests p) s GROUP BY st"

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count permits failed: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var st approval.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan permit count failed: %w", err)
		}
		c.Add(st, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permit counts failed: %w", err)
	}
	return &c, nil
}

func (r *pgxRepository) Update(ctx context.Context, p *Permit, replaceWorkers bool) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.permit_requests").
		SetMap(map[string]any{
			"company_name":         p.CompanyName,
			"job_location":         p.JobLocation,
			"onsite_in_charge":     p.OnsiteInCharge,
			"contact_no":           p.ContactNo,
			"ref":                  p.Ref,
			"tenant_or_contractor": p.RequesterType,
			"job_date_from":        p.JobDateFrom,
			"job_date_to":          p.JobDateTo,
			"job_time_from":        p.JobTimeFrom,
			"job_time_to":          p.JobTimeTo,
			"job_type":             p.JobType,
			"job_description":      p.JobDescription,
			"requested_by":         p.RequestedBy,
			"risk_assessment":      p.RiskAssessment,
			"safety_measures":      p.SafetyMeasures,
			"equipment_list":       equipment(p.EquipmentList),
			"need_power_cut":       p.NeedPowerCut,
			"need_mall_staff":      p.NeedMallStaff,
			"extra_notes":          p.ExtraNotes,
			"needs_revision":       p.NeedsRevision,
			"updated_at":           squirrel.Expr("now()"),
		}).
		Where(squirrel.Eq{"id": p.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update permit query failed: %w", err)
	}

	conn := db.Conn(ctx, r.pool)
	if err := conn.QueryRow(ctx, query, args...).Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if mapped := mapWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update permit failed: %w", err)
	}

	if !replaceWorkers {
		return nil
	}
	query, args, err = psql.Delete("public.permit_workers").Where(squirrel.Eq{"permit_id": p.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete workers query failed: %w", err)
	}
	if _, err := conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete workers failed: %w", err)
	}
	return r.insertWorkers(ctx, p.ID, p.Workers)
}

func (r *pgxRepository) SaveSlot(ctx context.Context, permitID string, slot approval.Slot) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.permit_approvals").
		Set("decision", slot.Decision).
		Set("actor_id", slot.ActorID).
		Set("decided_at", slot.DecidedAt).
		Where(squirrel.Eq{"permit_id": permitID, "party": slot.Party}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save slot query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save slot failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return r.touch(ctx, permitID)
}

func (r *pgxRepository) SetNeedsRevision(ctx context.Context, id string, flag bool) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.permit_requests").
		Set("needs_revision", flag).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set revision flag query failed: %w", err)
	}

	ct, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set revision flag failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) touch(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.permit_requests").
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch permit query failed: %w", err)
	}
	if _, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("touch permit failed: %w", err)
	}
	return nil
}

// equipment keeps NOT NULL text[] columns from receiving a nil slice.
func equipment(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == "permit_job_window_valid" {
			return ErrInvalidJobWindow
		}
		return ErrInvalidRequesterType
	}
	return nil
}
