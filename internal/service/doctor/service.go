package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	MsgNameRequired  = "Name is required"
	MsgEmailExists   = "Email already exists"
	MsgHasDependents = "Doctor has appointments or reviews and cannot be deleted"

	listKey = "doctors:all"
)

type CacheConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type Service struct {
	repo   repository.DoctorRepository
	hasher security.PasswordHasher
	cache  *cache.Cache
}

func NewService(repo repository.DoctorRepository, hasher security.PasswordHasher, cfg CacheConfig) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		cache:  cache.New(cfg.TTL, cfg.CleanupInterval),
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.BadRequest(MsgNameRequired, nil)
	}

	doctor := &model.Doctor{
		Base:           model.NewBase(),
		Name:           name,
		Specialization: req.Specialization,
		Email:          model.NormalizeEmail(req.Email),
	}

	if doctor.Email != "" {
		if _, err := s.repo.GetByEmail(ctx, doctor.Email); err == nil {
			return nil, apperrors.Conflict(MsgEmailExists, nil)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Internal(err)
		}
	}

	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			if errors.Is(err, security.ErrPasswordTooShort) {
				return nil, apperrors.BadRequest("Password must be at least 8 characters", err)
			}
			return nil, apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
		}
		doctor.PasswordHash = hash
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(MsgEmailExists, err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create doctor: %w", err))
	}

	s.cache.Delete(listKey)
	s.cache.SetDefault(doctorKey(doctor.ID), doctor)
	return doctor, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if cached, ok := s.cache.Get(doctorKey(id)); ok {
		return cached.(*model.Doctor), nil
	}

	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	s.cache.SetDefault(doctorKey(id), doctor)
	return doctor, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	doctor, err := s.repo.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		return nil, mapError(err)
	}
	return doctor, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Doctor, error) {
	if cached, ok := s.cache.Get(listKey); ok {
		return cached.([]*model.Doctor), nil
	}

	doctors, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list doctors: %w", err))
	}
	s.cache.SetDefault(listKey, doctors)
	return doctors, nil
}

// Delete is refused while appointments or reviews still reference the doctor.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrHasDependents) {
			return apperrors.Conflict(MsgHasDependents, err)
		}
		return mapError(err)
	}

	s.cache.Delete(doctorKey(id))
	s.cache.Delete(listKey)
	return nil
}

// Rating aggregates the doctor's reviews. Ratings are not cached since
// reviews change independently of doctors.
func (s *Service) Rating(ctx context.Context, id uuid.UUID) (*model.DoctorRating, error) {
	rating, err := s.repo.Rating(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return rating, nil
}

func doctorKey(id uuid.UUID) string {
	return "doctor:" + id.String()
}

func mapError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("doctor", err)
	}
	return apperrors.Internal(err)
}
