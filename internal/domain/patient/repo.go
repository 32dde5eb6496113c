package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Find matches query as a case-insensitive substring of first or last
	// name, ordered by last then first name. An empty query matches everyone.
	Find(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
}
