package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const reviewSelect = `
	SELECT rv.id, rv.patient_id, rv.doctor_id, rv.rating, rv.comment,
		   rv.created_at, rv.updated_at,
		   p.name AS patient_name, d.name AS doctor_name
	FROM reviews rv
	JOIN patients p ON p.id = rv.patient_id
	JOIN doctors d ON d.id = rv.doctor_id
`

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	query := `
		INSERT INTO reviews (
			id, patient_id, doctor_id, rating, comment, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		review.ID,
		review.PatientID,
		review.DoctorID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) Get(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	var review model.Review
	if err := r.db.GetContext(ctx, &review, reviewSelect+" WHERE rv.id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to get review: %w", notFound(err))
	}
	return &review, nil
}

func (r *reviewRepository) List(ctx context.Context, doctorID *uuid.UUID) ([]*model.Review, error) {
	query := reviewSelect
	args := []interface{}{}
	if doctorID != nil {
		query += " WHERE rv.doctor_id = $1"
		args = append(args, *doctorID)
	}
	query += " ORDER BY rv.created_at DESC"

	reviews := []*model.Review{}
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (r *reviewRepository) Update(ctx context.Context, review *model.Review) error {
	query := `
		UPDATE reviews
		SET rating = $1, comment = $2, updated_at = $3
		WHERE id = $4
	`
	review.Touch()

	result, err := r.db.ExecContext(ctx, query, review.Rating, review.Comment, review.UpdatedAt, review.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return requireAffected(result)
}

func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return requireAffected(result)
}
