package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const (
	MsgMissingFields = "Missing required fields"
	MsgRatingRange   = "Rating must be between 1 and 5"
)

var ratingRule = fmt.Sprintf("min=%d,max=%d", model.MinRating, model.MaxRating)

type Service struct {
	repo     repository.ReviewRepository
	validate validator.Validator
}

func NewService(repo repository.ReviewRepository, validate validator.Validator) *Service {
	return &Service{repo: repo, validate: validate}
}

func (s *Service) Create(ctx context.Context, req *model.CreateReviewRequest) (*model.Review, error) {
	if req.PatientID == "" || req.DoctorID == "" || req.Rating == nil {
		return nil, apperrors.BadRequest(MsgMissingFields, nil)
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid patient_id", err)
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid doctor_id", err)
	}
	if err := s.checkRating(*req.Rating); err != nil {
		return nil, err
	}

	review := &model.Review{
		Base:      model.NewBase(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Rating:    *req.Rating,
		Comment:   req.Comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, mapError("patient or doctor", err)
	}

	created, err := s.repo.Get(ctx, review.ID)
	if err != nil {
		return nil, mapError("review", err)
	}
	return created, nil
}

// List returns reviews newest first, optionally for one doctor.
func (s *Service) List(ctx context.Context, doctorID *uuid.UUID) ([]*model.Review, error) {
	reviews, err := s.repo.List(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list reviews: %w", err))
	}
	return reviews, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateReviewRequest) (*model.Review, error) {
	review, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapError("review", err)
	}

	if req.Rating != nil {
		if err := s.checkRating(*req.Rating); err != nil {
			return nil, err
		}
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, mapError("review", err)
	}
	return review, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapError("review", err)
	}
	return nil
}

func (s *Service) checkRating(rating int) error {
	if err := s.validate.Var(rating, ratingRule); err != nil {
		return apperrors.BadRequest(MsgRatingRange, err)
	}
	return nil
}

func mapError(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal(err)
}
