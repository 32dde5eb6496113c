package treatment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PlanRepository interface {
	Create(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	// ListByPatient returns plans newest first with ItemCount populated.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error)
	// Lock takes the plan's row lock for the rest of the transaction, or
	// returns NotFound.
	Lock(ctx context.Context, id uuid.UUID) error
	SetTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
}

type ItemRepository interface {
	Insert(ctx context.Context, it *Item) error
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Item, error)
	// SumCost returns the sum over all items of the plan, zero when it has none.
	SumCost(ctx context.Context, planID uuid.UUID) (decimal.Decimal, error)
}
