package reference

import (
	"context"

	"github.com/dental/dental/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListConditions(ctx context.Context) ([]*Condition, error) {
	return s.repo.ListConditions(ctx)
}

func (s *Service) ListProcedures(ctx context.Context) ([]*Procedure, error) {
	return s.repo.ListProcedures(ctx)
}

func (s *Service) GetCondition(ctx context.Context, id int) (*Condition, error) {
	if id <= 0 {
		return nil, apperr.Invalid("condition id must be positive, got %d", id)
	}
	return s.repo.GetCondition(ctx, id)
}

func (s *Service) GetProcedure(ctx context.Context, id int) (*Procedure, error) {
	if id <= 0 {
		return nil, apperr.Invalid("procedure id must be positive, got %d", id)
	}
	return s.repo.GetProcedure(ctx, id)
}

// ConditionsByID indexes the condition list for record enrichment.
func ConditionsByID(conds []*Condition) map[int]*Condition {
	m := make(map[int]*Condition, len(conds))
	for _, c := range conds {
		m[c.ID] = c
	}
	return m
}
