package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

func (r *doctorNoteRepository) CreateAndComplete(ctx context.Context, note *model.DoctorNote) error {
	insert := `
		INSERT INTO doctor_notes (
			id, appointment_id, diagnosis, treatment, prescription, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	complete := `
		UPDATE appointments
		SET status = 'completed', updated_at = NOW()
		WHERE id = $1
	`
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, insert,
			note.ID,
			note.AppointmentID,
			note.Diagnosis,
			note.Treatment,
			note.Prescription,
			note.Notes,
			note.CreatedAt,
			note.UpdatedAt,
		); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, complete, note.AppointmentID)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return repository.ErrNoteExists
	case isForeignKeyViolation(err), errors.Is(err, repository.ErrNotFound):
		return repository.ErrNotFound
	}
	return fmt.Errorf("failed to create doctor note: %w", err)
}

func (r *doctorNoteRepository) Get(ctx context.Context, appointmentID uuid.UUID) (*model.DoctorNote, error) {
	query := `
		SELECT id, appointment_id, diagnosis, treatment, prescription, notes,
			   created_at, updated_at
		FROM doctor_notes
		WHERE appointment_id = $1
	`
	var note model.DoctorNote
	if err := r.db.GetContext(ctx, &note, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get doctor note: %w", notFound(err))
	}
	return &note, nil
}

func (r *doctorNoteRepository) Update(ctx context.Context, note *model.DoctorNote) error {
	query := `
		UPDATE doctor_notes
		SET diagnosis = $1, treatment = $2, prescription = $3, notes = $4, updated_at = $5
		WHERE appointment_id = $6
	`
	note.Touch()

	result, err := r.db.ExecContext(ctx, query,
		note.Diagnosis,
		note.Treatment,
		note.Prescription,
		note.Notes,
		note.UpdatedAt,
		note.AppointmentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor note: %w", err)
	}
	return requireAffected(result)
}
