package patient

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dental/dental/internal/platform/apperr"
)

// DefaultSearchLimit is the page size of a patient search when none is given.
const DefaultSearchLimit = 50

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Find(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.Find(ctx, query, limit, offset)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists returns a NotFound error when no patient has the given id.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.GetByID(ctx, id)
	return err
}

// Save inserts p when its ID is unset and updates it otherwise.
func (s *Service) Save(ctx context.Context, p *Patient) error {
	if err := normalize(p); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		zerolog.Ctx(ctx).Info().Str("patient_id", p.ID.String()).Msg("patient created")
		return nil
	}
	return s.repo.Update(ctx, p)
}

func normalize(p *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" {
		return apperr.Invalid("first_name is required")
	}
	if p.LastName == "" {
		return apperr.Invalid("last_name is required")
	}
	p.Phone = blankToNil(p.Phone)
	p.Email = blankToNil(p.Email)
	p.InsuranceProvider = blankToNil(p.InsuranceProvider)
	p.InsuranceID = blankToNil(p.InsuranceID)
	if p.Email != nil {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return apperr.Invalid("email %q is not a valid address", *p.Email)
		}
	}
	if p.DateOfBirth != nil && p.DateOfBirth.IsZero() {
		p.DateOfBirth = nil
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
