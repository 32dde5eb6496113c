package treatment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dental/dental/internal/domain/tooth"
	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: %w", field, raw, err)
	}
	return d, nil
}

func planNotFound(id uuid.UUID) error {
	return apperr.NotFound("treatment plan %s not found", id)
}

// -- Plans --

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pool: pool}
}

const planCols = `tp.id, tp.patient_id, tp.name, tp.status, tp.notes, tp.total_cost::text, tp.created_at`

func scanPlan(row pgx.Row, extra ...interface{}) (*Plan, error) {
	var p Plan
	var total string
	dest := append([]interface{}{&p.ID, &p.PatientID, &p.Name, &p.Status, &p.Notes, &total, &p.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d, err := parseAmount("total_cost", total)
	if err != nil {
		return nil, err
	}
	p.TotalCost = d
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	return connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO treatment_plan (id, patient_id, name, status, notes, total_cost)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
		RETURNING created_at`,
		p.ID, p.PatientID, p.Name, p.Status, p.Notes, p.TotalCost.String()).Scan(&p.CreatedAt)
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	var count int
	p, err := scanPlan(connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+planCols+`,
			(SELECT COUNT(*) FROM treatment_plan_item tpi WHERE tpi.treatment_plan_id = tp.id)
		FROM treatment_plan tp WHERE tp.id = $1`, id), &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, planNotFound(id)
		}
		return nil, err
	}
	p.ItemCount = count
	return p, nil
}

func (r *planRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT `+planCols+`,
			(SELECT COUNT(*) FROM treatment_plan_item tpi WHERE tpi.treatment_plan_id = tp.id)
		FROM treatment_plan tp
		WHERE tp.patient_id = $1
		ORDER BY tp.created_at DESC, tp.id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Plan
	for rows.Next() {
		var count int
		p, err := scanPlan(rows, &count)
		if err != nil {
			return nil, err
		}
		p.ItemCount = count
		out = append(out, p)
	}
	return out, rows.Err()
}

// Lock must run inside a transaction; the row lock is held until commit.
func (r *planRepoPG) Lock(ctx context.Context, id uuid.UUID) error {
	var got uuid.UUID
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT id FROM treatment_plan WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return planNotFound(id)
	}
	return err
}

func (r *planRepoPG) SetTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`UPDATE treatment_plan SET total_cost = $2::numeric WHERE id = $1`, id, total.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return planNotFound(id)
	}
	return nil
}

func (r *planRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`UPDATE treatment_plan SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return planNotFound(id)
	}
	return nil
}

// -- Items --

type itemRepoPG struct{ pool *pgxpool.Pool }

func NewItemRepoPG(pool *pgxpool.Pool) ItemRepository {
	return &itemRepoPG{pool: pool}
}

func (r *itemRepoPG) Insert(ctx context.Context, it *Item) error {
	it.ID = uuid.New()
	var surface *string
	if it.Surface != nil {
		s := it.Surface.String()
		surface = &s
	}
	return connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO treatment_plan_item (id, treatment_plan_id, tooth_number, procedure_id, surface, cost, notes)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
		RETURNING created_at`,
		it.ID, it.PlanID, it.ToothNumber, it.ProcedureID, surface, it.Cost.String(), it.Notes).Scan(&it.CreatedAt)
}

// ListByPlan joins the procedure catalogue so listings carry name and code.
func (r *itemRepoPG) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Item, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT tpi.id, tpi.treatment_plan_id, tpi.tooth_number, tpi.procedure_id, tpi.surface,
			tpi.cost::text, tpi.notes, tpi.created_at, p.name, p.code
		FROM treatment_plan_item tpi
		LEFT JOIN procedure p ON p.id = tpi.procedure_id
		WHERE tpi.treatment_plan_id = $1
		ORDER BY tpi.created_at, tpi.id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		var it Item
		var surface *string
		var cost string
		if err := rows.Scan(&it.ID, &it.PlanID, &it.ToothNumber, &it.ProcedureID, &surface,
			&cost, &it.Notes, &it.CreatedAt, &it.ProcedureName, &it.ProcedureCode); err != nil {
			return nil, err
		}
		if it.Cost, err = parseAmount("cost", cost); err != nil {
			return nil, err
		}
		if surface != nil {
			set, err := tooth.ParseSurfaces(*surface)
			if err != nil {
				return nil, fmt.Errorf("plan item %s: stored surface %q: %w", it.ID, *surface, err)
			}
			it.Surface = &set
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (r *itemRepoPG) SumCost(ctx context.Context, planID uuid.UUID) (decimal.Decimal, error) {
	var sum string
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(cost), 0)::text FROM treatment_plan_item WHERE treatment_plan_id = $1`,
		planID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmount("sum(cost)", sum)
}
