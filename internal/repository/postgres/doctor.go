package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Empty emails and passwords are stored as NULL so the unique index only covers real addresses.
const doctorSelect = `
	SELECT id, name, specialization, COALESCE(email, '') AS email,
		   COALESCE(password_hash, '') AS password_hash, created_at, updated_at
	FROM doctors
`

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, name, specialization, email, password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Specialization,
		doctor.Email,
		doctor.PasswordHash,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, doctorSelect+" WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", notFound(err))
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, doctorSelect+" WHERE email = $1", email); err != nil {
		return nil, fmt.Errorf("failed to get doctor by email: %w", notFound(err))
	}
	return &doctor, nil
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	doctors := []*model.Doctor{}
	if err := r.db.SelectContext(ctx, &doctors, doctorSelect+" ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrHasDependents
		}
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	return requireAffected(result)
}

func (r *doctorRepository) Rating(ctx context.Context, id uuid.UUID) (*model.DoctorRating, error) {
	query := `
		SELECT d.id AS doctor_id, d.name AS doctor_name,
			   COALESCE(AVG(rv.rating), 0)::float8 AS average_rating,
			   COUNT(rv.id) AS total_reviews
		FROM doctors d
		LEFT JOIN reviews rv ON rv.doctor_id = d.id
		WHERE d.id = $1
		GROUP BY d.id, d.name
	`
	var rating model.DoctorRating
	if err := r.db.GetContext(ctx, &rating, query, id); err != nil {
		return nil, fmt.Errorf("failed to get doctor rating: %w", notFound(err))
	}
	rating.AverageRating = math.Round(rating.AverageRating*100) / 100
	return &rating, nil
}
