package treatment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dental/dental/internal/domain/reference"
	"github.com/dental/dental/internal/domain/tooth"
	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/pkg/notation"
)

// PatientChecker reports a NotFound error for unknown patients.
type PatientChecker interface {
	Exists(ctx context.Context, id uuid.UUID) error
}

type ProcedureSource interface {
	GetProcedure(ctx context.Context, id int) (*reference.Procedure, error)
	ListProcedures(ctx context.Context) ([]*reference.Procedure, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	plans      PlanRepository
	items      ItemRepository
	tx         Transactor
	patients   PatientChecker
	procedures ProcedureSource
}

func NewService(plans PlanRepository, items ItemRepository, tx Transactor,
	patients PatientChecker, procedures ProcedureSource) *Service {
	return &Service{plans: plans, items: items, tx: tx, patients: patients, procedures: procedures}
}

// maxCost is the first amount that no longer fits the cost column, NUMERIC(10,2).
var maxCost = decimal.New(1, 8)

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

// CreatePlan opens a proposed plan with a zero total.
func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("plan name is required")
	}
	if err := s.patients.Exists(ctx, req.PatientID); err != nil {
		return nil, err
	}
	p := &Plan{
		PatientID: req.PatientID,
		Name:      name,
		Status:    StatusProposed,
		Notes:     blankToNil(req.Notes),
		TotalCost: decimal.Zero,
	}
	if err := s.plans.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create treatment plan: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("plan_id", p.ID.String()).
		Str("patient_id", p.PatientID.String()).
		Msg("treatment plan created")
	return p, nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return s.plans.GetByID(ctx, id)
}

// ListPlans returns the patient's plans newest first.
func (s *Service) ListPlans(ctx context.Context, patientID uuid.UUID) ([]*Plan, error) {
	if err := s.patients.Exists(ctx, patientID); err != nil {
		return nil, err
	}
	plans, err := s.plans.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list treatment plans: %w", err)
	}
	return plans, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Plan, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.plans.SetStatus(ctx, id, st); err != nil {
		return nil, err
	}
	return s.plans.GetByID(ctx, id)
}

func (s *Service) validateItem(ctx context.Context, req AddItemRequest) (*Item, error) {
	if req.Cost == nil {
		return nil, apperr.Invalid("cost is required")
	}
	if req.Cost.IsNegative() {
		return nil, apperr.Invalid("cost must not be negative, got %s", req.Cost)
	}
	if !req.Cost.Equal(req.Cost.Truncate(2)) {
		return nil, apperr.Invalid("cost must have at most 2 decimal places, got %s", req.Cost)
	}
	if req.Cost.GreaterThanOrEqual(maxCost) {
		return nil, apperr.Invalid("cost must be below %s, got %s", maxCost, req.Cost)
	}
	if req.ToothNumber != nil && !notation.Valid(*req.ToothNumber) {
		return nil, apperr.Invalid("tooth_number must be between %d and %d, got %d",
			notation.MinTooth, notation.MaxTooth, *req.ToothNumber)
	}
	it := &Item{
		PlanID:      req.PlanID,
		ToothNumber: cloneInt(req.ToothNumber),
		ProcedureID: req.ProcedureID,
		Cost:        *req.Cost,
		Notes:       blankToNil(req.Notes),
	}
	if req.Surface != "" {
		set, err := tooth.ParseSurfaces(req.Surface)
		if err != nil {
			return nil, err
		}
		it.Surface = &set
	}
	if req.ProcedureID <= 0 {
		return nil, apperr.Invalid("procedure_id is required")
	}
	proc, err := s.procedures.GetProcedure(ctx, req.ProcedureID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Invalid("unknown procedure %d", req.ProcedureID)
		}
		return nil, fmt.Errorf("load procedure: %w", err)
	}
	name, code := proc.Name, proc.Code
	it.ProcedureName, it.ProcedureCode = &name, &code
	return it, nil
}

// AddItem inserts one line and stores the plan's fresh total in the same
// transaction. The plan row is locked first, so concurrent adds on one plan
// run one after the other and each sums every committed item.
func (s *Service) AddItem(ctx context.Context, req AddItemRequest) (*Item, error) {
	it, err := s.validateItem(ctx, req)
	if err != nil {
		return nil, err
	}

	var total decimal.Decimal
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.plans.Lock(ctx, req.PlanID); err != nil {
			return err
		}
		if err := s.items.Insert(ctx, it); err != nil {
			return fmt.Errorf("insert plan item: %w", err)
		}
		total, err = s.recompute(ctx, req.PlanID)
		return err
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("plan_id", req.PlanID.String()).
		Str("item_id", it.ID.String()).
		Str("cost", it.Cost.StringFixed(2)).
		Str("total_cost", total.StringFixed(2)).
		Msg("treatment plan item added")
	return it, nil
}

func (s *Service) recompute(ctx context.Context, planID uuid.UUID) (decimal.Decimal, error) {
	sum, err := s.items.SumCost(ctx, planID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum plan items: %w", err)
	}
	if err := s.plans.SetTotal(ctx, planID, sum); err != nil {
		return decimal.Zero, fmt.Errorf("store plan total: %w", err)
	}
	return sum, nil
}

// RecomputeTotal re-sums the plan's items under the plan lock and stores the
// result.
func (s *Service) RecomputeTotal(ctx context.Context, planID uuid.UUID) (*Plan, error) {
	var before, after decimal.Decimal
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.plans.Lock(ctx, planID); err != nil {
			return err
		}
		p, err := s.plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		before = p.TotalCost
		after, err = s.recompute(ctx, planID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !before.Equal(after) {
		zerolog.Ctx(ctx).Warn().
			Str("plan_id", planID.String()).
			Str("stored", before.StringFixed(2)).
			Str("recomputed", after.StringFixed(2)).
			Msg("treatment plan total corrected")
	}
	return s.plans.GetByID(ctx, planID)
}

// ListItems returns the plan's items with procedure name and code.
func (s *Service) ListItems(ctx context.Context, planID uuid.UUID) ([]*Item, error) {
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	items, err := s.items.ListByPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("list plan items: %w", err)
	}
	var procs map[int]*reference.Procedure
	for _, it := range items {
		if it.ProcedureName != nil {
			continue
		}
		if procs == nil {
			list, err := s.procedures.ListProcedures(ctx)
			if err != nil {
				return nil, fmt.Errorf("load procedures: %w", err)
			}
			procs = make(map[int]*reference.Procedure, len(list))
			for _, p := range list {
				procs[p.ID] = p
			}
		}
		if p, ok := procs[it.ProcedureID]; ok {
			name, code := p.Name, p.Code
			it.ProcedureName, it.ProcedureCode = &name, &code
		}
	}
	return items, nil
}
