package tooth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dental/dental/internal/domain/reference"
	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/pkg/notation"
)

const (
	DefaultActor        = "Staff"
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// PatientChecker reports a NotFound error for unknown patients.
type PatientChecker interface {
	Exists(ctx context.Context, id uuid.UUID) error
}

type ConditionSource interface {
	ListConditions(ctx context.Context) ([]*reference.Condition, error)
}

// Transactor runs fn so that every repository call made with the context
// it receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	records      RecordRepository
	history      HistoryRepository
	tx           Transactor
	patients     PatientChecker
	conditions   ConditionSource
	defaultActor string
	historyLimit int
	now          func() time.Time
}

func NewService(records RecordRepository, history HistoryRepository, tx Transactor,
	patients PatientChecker, conditions ConditionSource) *Service {
	return &Service{
		records:      records,
		history:      history,
		tx:           tx,
		patients:     patients,
		conditions:   conditions,
		defaultActor: DefaultActor,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
}

func (s *Service) SetDefaultActor(actor string) {
	if actor = strings.TrimSpace(actor); actor != "" {
		s.defaultActor = actor
	}
}

func (s *Service) SetHistoryLimit(n int) {
	if n > 0 && n <= MaxHistoryLimit {
		s.historyLimit = n
	}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func validTooth(n int) error {
	if !notation.Valid(n) {
		return apperr.Invalid("tooth_number must be between %d and %d, got %d", notation.MinTooth, notation.MaxTooth, n)
	}
	return nil
}

func (s *Service) conditionIndex(ctx context.Context) (map[int]*reference.Condition, error) {
	conds, err := s.conditions.ListConditions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load conditions: %w", err)
	}
	return reference.ConditionsByID(conds), nil
}

func enrich(rec *ToothRecord, conds map[int]*reference.Condition) {
	if rec.ConditionID == nil {
		return
	}
	if c, ok := conds[*rec.ConditionID]; ok {
		name, color, code := c.Name, c.Color, c.Code
		rec.ConditionName, rec.ConditionColor, rec.ConditionCode = &name, &color, &code
	}
}

// ListCurrent returns one record per charted tooth, ordered by tooth number.
func (s *Service) ListCurrent(ctx context.Context, patientID uuid.UUID) ([]*ToothRecord, error) {
	if err := s.patients.Exists(ctx, patientID); err != nil {
		return nil, err
	}
	recs, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list tooth records: %w", err)
	}
	conds, err := s.conditionIndex(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		enrich(rec, conds)
	}
	return recs, nil
}

// Get returns the current record of one tooth, or NotFound if it was never
// charted.
func (s *Service) Get(ctx context.Context, patientID uuid.UUID, toothNumber int) (*ToothRecord, error) {
	if err := validTooth(toothNumber); err != nil {
		return nil, err
	}
	rec, err := s.records.Get(ctx, patientID, toothNumber)
	if err != nil {
		return nil, err
	}
	conds, err := s.conditionIndex(ctx)
	if err != nil {
		return nil, err
	}
	enrich(rec, conds)
	return rec, nil
}

// Save replaces the whole record of one tooth and appends a history entry in
// the same transaction.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*ToothRecord, error) {
	if err := validTooth(req.ToothNumber); err != nil {
		return nil, err
	}
	surfaces, err := ParseSurfaces(req.Surfaces)
	if err != nil {
		return nil, err
	}
	conds, err := s.conditionIndex(ctx)
	if err != nil {
		return nil, err
	}
	if req.ConditionID != nil {
		if _, ok := conds[*req.ConditionID]; !ok {
			return nil, apperr.Invalid("unknown condition %d", *req.ConditionID)
		}
	}
	if err := s.patients.Exists(ctx, req.PatientID); err != nil {
		return nil, err
	}

	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = s.defaultActor
	}
	var notes *string
	if req.Notes != nil && *req.Notes != "" {
		n := *req.Notes
		notes = &n
	}
	now := s.now().UTC()

	rec := &ToothRecord{
		PatientID:   req.PatientID,
		ToothNumber: req.ToothNumber,
		ConditionID: cloneInt(req.ConditionID),
		Surfaces:    surfaces,
		Notes:       notes,
		RecordedBy:  actor,
		RecordedAt:  now,
	}
	entry := &HistoryEntry{
		PatientID:      req.PatientID,
		ToothNumber:    req.ToothNumber,
		Action:         ActionConditionUpdated,
		NewConditionID: cloneInt(req.ConditionID),
		NewSurfaces:    surfaces,
		PerformedBy:    actor,
		PerformedAt:    now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.records.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("upsert tooth record: %w", err)
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return fmt.Errorf("append tooth history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	enrich(rec, conds)
	zerolog.Ctx(ctx).Info().
		Str("patient_id", req.PatientID.String()).
		Int("tooth", req.ToothNumber).
		Str("surfaces", surfaces.String()).
		Int64("history_id", entry.ID).
		Msg("tooth record saved")
	return rec, nil
}

// RecentHistory returns the newest ledger entries for one tooth. A limit of
// zero or less uses the configured window; limits above MaxHistoryLimit are
// capped.
func (s *Service) RecentHistory(ctx context.Context, patientID uuid.UUID, toothNumber, limit int) ([]*HistoryEntry, error) {
	if err := validTooth(toothNumber); err != nil {
		return nil, err
	}
	if err := s.patients.Exists(ctx, patientID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	entries, err := s.history.Recent(ctx, patientID, toothNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("recent tooth history: %w", err)
	}
	return entries, nil
}
