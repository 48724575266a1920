package resident

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, r *Resident) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Room == "" {
		return fmt.Errorf("room is required")
	}
	if r.Age < 1 || r.Age > 150 {
		return fmt.Errorf("age must be between 1 and 150")
	}
	if r.AdmissionDate.IsZero() {
		r.AdmissionDate = time.Now().UTC()
	}
	if r.ProfileImage == "" {
		r.ProfileImage = "default-resident.png"
	}
	if r.MedicalConditions == nil {
		r.MedicalConditions = []string{}
	}
	if r.FamilyEmails == nil {
		r.FamilyEmails = []string{}
	}
	r.IsActive = true
	return s.repo.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Resident, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByRoom(ctx context.Context, room string) (*Resident, error) {
	return s.repo.GetByRoom(ctx, room)
}

func (s *Service) Update(ctx context.Context, r *Resident) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Room == "" {
		return fmt.Errorf("room is required")
	}
	if r.Age < 1 || r.Age > 150 {
		return fmt.Errorf("age must be between 1 and 150")
	}
	return s.repo.Update(ctx, r)
}

func (s *Service) Discharge(ctx context.Context, id uuid.UUID) error {
	return s.repo.Discharge(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Resident, int, error) {
	return s.repo.List(ctx, activeOnly, limit, offset)
}

func (s *Service) ListActive(ctx context.Context) ([]*Resident, error) {
	return s.repo.ListActive(ctx)
}
