package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const (
	conditionCols = `id, name, color, code`
	procedureCols = `id, code, name, category, default_fee::text`
)

func scanCondition(row pgx.Row) (*Condition, error) {
	var c Condition
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Code); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanProcedure(row pgx.Row) (*Procedure, error) {
	var p Procedure
	var fee string
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &fee); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(fee)
	if err != nil {
		return nil, fmt.Errorf("procedure %d default_fee %q: %w", p.ID, fee, err)
	}
	p.DefaultFee = d
	return &p, nil
}

func (r *repoPG) ListConditions(ctx context.Context) ([]*Condition, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+conditionCols+` FROM condition ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Condition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repoPG) ListProcedures(ctx context.Context) ([]*Procedure, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+procedureCols+` FROM procedure ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Procedure
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repoPG) GetCondition(ctx context.Context, id int) (*Condition, error) {
	c, err := scanCondition(r.conn(ctx).QueryRow(ctx, `SELECT `+conditionCols+` FROM condition WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("condition %d not found", id)
		}
		return nil, err
	}
	return c, nil
}

func (r *repoPG) GetProcedure(ctx context.Context, id int) (*Procedure, error) {
	p, err := scanProcedure(r.conn(ctx).QueryRow(ctx, `SELECT `+procedureCols+` FROM procedure WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("procedure %d not found", id)
		}
		return nil, err
	}
	return p, nil
}

func (r *repoPG) UpsertCondition(ctx context.Context, c *Condition) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO condition (id, name, color, code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color, code = EXCLUDED.code`,
		c.ID, c.Name, c.Color, c.Code)
	return err
}

func (r *repoPG) UpsertProcedure(ctx context.Context, p *Procedure) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO procedure (id, code, name, category, default_fee)
		VALUES ($1, $2, $3, $4, $5::numeric)
		ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name,
			category = EXCLUDED.category, default_fee = EXCLUDED.default_fee`,
		p.ID, p.Code, p.Name, p.Category, p.DefaultFee.String())
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
