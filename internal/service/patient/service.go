package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	MsgEmailExists   = "Email already exists"
	MsgRequired      = "Name, email and password are required"
	MsgNoHistory     = "No medical history found"
	MsgPasswordShort = "Password must be at least 8 characters"
)

type Service struct {
	repo      repository.PatientRepository
	histories repository.MedicalHistoryRepository
	hasher    security.PasswordHasher
}

func NewService(repo repository.PatientRepository, histories repository.MedicalHistoryRepository, hasher security.PasswordHasher) *Service {
	return &Service{
		repo:      repo,
		histories: histories,
		hasher:    hasher,
	}
}

// Create registers a patient. The email is normalized and must be unique.
func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	email := model.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperrors.BadRequest(MsgRequired, nil)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict(MsgEmailExists, nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperrors.BadRequest(MsgPasswordShort, err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	patient := &model.Patient{
		Base:         model.NewBase(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Diseases:     req.Diseases,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(MsgEmailExists, err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create patient: %w", err))
	}
	return patient, nil
}

// Signup is the self-service registration where every field is mandatory.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.Patient, error) {
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Diseases) == "" {
		return nil, apperrors.BadRequest("All fields are required", nil)
	}
	return s.Create(ctx, req.ToCreate())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapError("patient", err)
	}
	return patient, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	patient, err := s.repo.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		return nil, mapError("patient", err)
	}
	return patient, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list patients: %w", err))
	}
	return patients, nil
}

// ListWithAppointments returns patients with at least one appointment,
// optionally restricted to one doctor. The total counts every appointment of
// the patient.
func (s *Service) ListWithAppointments(ctx context.Context, doctorID *uuid.UUID) ([]*model.PatientWithAppointments, error) {
	patients, err := s.repo.ListWithAppointments(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list patients: %w", err))
	}
	return patients, nil
}

// Delete removes the patient together with appointments, notes, history and reviews.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError("patient", err)
	}
	return nil
}

func (s *Service) GetHistory(ctx context.Context, patientID uuid.UUID) (*model.MedicalHistory, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}
	history, err := s.histories.GetByPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &apperrors.AppError{Code: apperrors.ErrNotFound, Message: MsgNoHistory, Err: err}
		}
		return nil, apperrors.Internal(err)
	}
	return history, nil
}

// SaveHistory creates the history on first use and applies the provided fields.
func (s *Service) SaveHistory(ctx context.Context, patientID uuid.UUID, req *model.MedicalHistoryRequest) (*model.MedicalHistory, error) {
	if _, err := s.Get(ctx, patientID); err != nil {
		return nil, err
	}

	history, err := s.histories.GetByPatient(ctx, patientID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		history = &model.MedicalHistory{Base: model.NewBase(), PatientID: patientID}
	case err != nil:
		return nil, apperrors.Internal(err)
	}

	req.Apply(history)
	if err := s.histories.Upsert(ctx, history); err != nil {
		return nil, mapError("patient", err)
	}
	return history, nil
}

func mapError(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal(err)
}
