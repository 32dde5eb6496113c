package patient

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/dental/dental/internal/platform/apperr"
	"github.com/dental/dental/internal/platform/memstore"
)

const patientTable = "patient"

// Tables lists the memstore tables this package reads and writes.
func Tables() []*memdb.TableSchema {
	return []*memdb.TableSchema{memstore.Table(patientTable)}
}

type patientRow struct {
	Key     string
	Patient Patient
}

type repoMem struct {
	store *memstore.Store
	now   func() time.Time
}

func NewRepoMem(store *memstore.Store) Repository {
	return &repoMem{store: store, now: time.Now}
}

func clonePatient(p Patient) *Patient {
	cp := p
	cp.DateOfBirth = cloneDate(p.DateOfBirth)
	cp.Phone = cloneStr(p.Phone)
	cp.Email = cloneStr(p.Email)
	cp.InsuranceProvider = cloneStr(p.InsuranceProvider)
	cp.InsuranceID = cloneStr(p.InsuranceID)
	return &cp
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneDate(d *Date) *Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func (r *repoMem) Find(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	it, err := r.store.Read(ctx).Get(patientTable, memstore.IDIndex)
	if err != nil {
		return nil, 0, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var matched []*Patient
	for _, row := range memstore.Collect[patientRow](it) {
		p := row.Patient
		if q == "" || strings.Contains(strings.ToLower(p.FirstName), q) || strings.Contains(strings.ToLower(p.LastName), q) {
			matched = append(matched, clonePatient(p))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *repoMem) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	obj, err := r.store.Read(ctx).First(patientTable, memstore.IDIndex, id.String())
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, apperr.NotFound("patient %s not found", id)
	}
	return clonePatient(obj.(patientRow).Patient), nil
}

func (r *repoMem) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = r.now().UTC()
	p.UpdatedAt = p.CreatedAt
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		return txn.Insert(patientTable, patientRow{Key: p.ID.String(), Patient: *clonePatient(*p)})
	})
}

func (r *repoMem) Update(ctx context.Context, p *Patient) error {
	return r.store.Write(ctx, func(txn *memdb.Txn) error {
		obj, err := txn.First(patientTable, memstore.IDIndex, p.ID.String())
		if err != nil {
			return err
		}
		if obj == nil {
			return apperr.NotFound("patient %s not found", p.ID)
		}
		p.CreatedAt = obj.(patientRow).Patient.CreatedAt
		p.UpdatedAt = r.now().UTC()
		return txn.Insert(patientTable, patientRow{Key: p.ID.String(), Patient: *clonePatient(*p)})
	})
}
