package reference

import "context"

type Repository interface {
	ListConditions(ctx context.Context) ([]*Condition, error)
	ListProcedures(ctx context.Context) ([]*Procedure, error)
	GetCondition(ctx context.Context, id int) (*Condition, error)
	GetProcedure(ctx context.Context, id int) (*Procedure, error)
	UpsertCondition(ctx context.Context, c *Condition) error
	UpsertProcedure(ctx context.Context, p *Procedure) error
}
