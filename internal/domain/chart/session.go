package chart

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dental/dental/internal/domain/patient"
	"github.com/dental/dental/internal/domain/reference"
	"github.com/dental/dental/internal/domain/tooth"
	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/pkg/notation"
)

// State is the position of a session in its edit cycle.
type State int

const (
	NoPatient State = iota
	PatientLoaded
	ToothSelected
	Editing
)

func (s State) String() string {
	switch s {
	case NoPatient:
		return "no_patient"
	case PatientLoaded:
		return "patient_loaded"
	case ToothSelected:
		return "tooth_selected"
	case Editing:
		return "editing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Pending is the edit buffer for the selected tooth. It is sent whole on
// commit.
type Pending struct {
	ConditionID *int
	Surfaces    tooth.SurfaceSet
	Notes       string
}

func (p Pending) clone() Pending {
	if p.ConditionID != nil {
		id := *p.ConditionID
		p.ConditionID = &id
	}
	return p
}

func pendingFrom(rec *tooth.ToothRecord) Pending {
	if rec == nil {
		return Pending{}
	}
	p := Pending{ConditionID: rec.ConditionID, Surfaces: rec.Surfaces}
	if rec.Notes != nil {
		p.Notes = *rec.Notes
	}
	return p.clone()
}

// Session is an immutable snapshot of one user's charting state. Every
// transition returns a new Session and leaves the receiver untouched, so a
// failed transition can simply keep using the old value.
type Session struct {
	state      State
	patient    *patient.Patient
	records    map[int]*tooth.ToothRecord
	conditions []*reference.Condition
	selected   int
	pending    Pending
}

// New returns a session with no patient loaded.
func New() Session {
	return Session{state: NoPatient}
}

func (s Session) State() State { return s.state }

func (s Session) Patient() *patient.Patient { return s.patient }

func (s Session) Pending() Pending { return s.pending.clone() }

func (s Session) Conditions() []*reference.Condition { return s.conditions }

// Selected returns the selected tooth number, if any.
func (s Session) Selected() (int, bool) {
	return s.selected, s.selected != 0
}

// Record returns the current record of tooth n, or nil if it was never
// charted.
func (s Session) Record(n int) *tooth.ToothRecord {
	return s.records[n]
}

// Records returns the current records ordered by tooth number.
func (s Session) Records() []*tooth.ToothRecord {
	out := make([]*tooth.ToothRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToothNumber < out[j].ToothNumber })
	return out
}

func indexRecords(recs []*tooth.ToothRecord) map[int]*tooth.ToothRecord {
	m := make(map[int]*tooth.ToothRecord, len(recs))
	for _, rec := range recs {
		m[rec.ToothNumber] = rec
	}
	return m
}

// LoadPatient fetches the patient, the current records and the condition
// list concurrently. Any prior selection and pending edits are dropped.
func (s Session) LoadPatient(ctx context.Context, b Backend, id uuid.UUID) (Session, error) {
	var (
		p     *patient.Patient
		recs  []*tooth.ToothRecord
		conds []*reference.Condition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = b.GetPatient(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		recs, err = b.ListRecords(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		conds, err = b.ListConditions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s, fmt.Errorf("load patient %s: %w", id, err)
	}

	return Session{
		state:      PatientLoaded,
		patient:    p,
		records:    indexRecords(recs),
		conditions: conds,
	}, nil
}

// SelectTooth focuses tooth n and fills the buffer from its current record,
// or empties it when the tooth was never charted. Unsaved edits to the
// previously selected tooth are discarded.
func (s Session) SelectTooth(n int) (Session, error) {
	if s.state == NoPatient {
		return s, apperr.Invalid("no patient loaded")
	}
	if !notation.Valid(n) {
		return s, apperr.Invalid("tooth_number must be between %d and %d, got %d", notation.MinTooth, notation.MaxTooth, n)
	}
	s.selected = n
	s.pending = pendingFrom(s.records[n])
	s.state = ToothSelected
	return s, nil
}

func (s Session) edit(fn func(p *Pending)) (Session, error) {
	if s.selected == 0 {
		return s, apperr.Invalid("no tooth selected")
	}
	s.pending = s.pending.clone()
	fn(&s.pending)
	s.state = Editing
	return s, nil
}

func (s Session) ToggleSurface(surface tooth.Surface) (Session, error) {
	return s.edit(func(p *Pending) { p.Surfaces = p.Surfaces.Toggle(surface) })
}

// SetCondition sets the pending condition; nil clears it. The id is checked
// against the loaded condition list.
func (s Session) SetCondition(id *int) (Session, error) {
	if id != nil {
		known := false
		for _, c := range s.conditions {
			if c.ID == *id {
				known = true
				break
			}
		}
		if !known {
			return s, apperr.Invalid("unknown condition %d", *id)
		}
	}
	return s.edit(func(p *Pending) {
		p.ConditionID = nil
		if id != nil {
			v := *id
			p.ConditionID = &v
		}
	})
}

func (s Session) SetNotes(text string) (Session, error) {
	return s.edit(func(p *Pending) { p.Notes = text })
}

// Commit saves the whole pending buffer for the selected tooth and reloads
// every record of the patient. The returned session is back in PatientLoaded
// with the selection kept. If the save fails the receiver is returned as is.
// If only the reload fails, the saved record is merged locally and the error
// is still reported.
func (s Session) Commit(ctx context.Context, b Backend, actor string) (Session, error) {
	if s.patient == nil {
		return s, apperr.Invalid("no patient loaded")
	}
	if s.selected == 0 {
		return s, apperr.Invalid("no tooth selected")
	}

	pending := s.pending.clone()
	notes := pending.Notes
	saved, err := b.SaveTooth(ctx, tooth.SaveRequest{
		PatientID:   s.patient.ID,
		ToothNumber: s.selected,
		ConditionID: pending.ConditionID,
		Surfaces:    pending.Surfaces.String(),
		Notes:       &notes,
		Actor:       actor,
	})
	if err != nil {
		return s, err
	}

	next := s
	next.state = PatientLoaded
	next.pending = pendingFrom(saved)

	recs, err := b.ListRecords(ctx, s.patient.ID)
	if err != nil {
		merged := make(map[int]*tooth.ToothRecord, len(s.records)+1)
		for n, rec := range s.records {
			merged[n] = rec
		}
		merged[saved.ToothNumber] = saved
		next.records = merged
		return next, fmt.Errorf("refresh chart after save: %w", err)
	}
	next.records = indexRecords(recs)
	return next, nil
}

// Cell is one tooth position as the chart displays it.
type Cell struct {
	Tooth    notation.Tooth
	Record   *tooth.ToothRecord
	Selected bool
}

// Labels lays out all 32 positions in display order under scheme.
func (s Session) Labels(scheme notation.Scheme) []Cell {
	teeth := notation.Chart(scheme)
	cells := make([]Cell, len(teeth))
	for i, t := range teeth {
		cells[i] = Cell{Tooth: t, Record: s.records[t.Number], Selected: t.Number == s.selected}
	}
	return cells
}
