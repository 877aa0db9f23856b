package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const appointmentSelect = `
	SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date,
		   a.reason, a.symptoms, a.status, a.created_at, a.updated_at,
		   p.name AS patient_name, d.name AS doctor_name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date,
			reason, symptoms, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.ensureSlotFree(ctx, tx, appointment.DoctorID, appointment.AppointmentDate, uuid.Nil); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, query,
			appointment.ID,
			appointment.PatientID,
			appointment.DoctorID,
			appointment.AppointmentDate,
			appointment.Reason,
			appointment.Symptoms,
			appointment.Status,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		)
		return err
	})
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return repository.ErrSlotTaken
	case isForeignKeyViolation(err):
		return repository.ErrNotFound
	case errors.Is(err, repository.ErrSlotTaken):
		return err
	}
	return fmt.Errorf("failed to create appointment: %w", err)
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, appointmentSelect+" WHERE a.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", notFound(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	query := appointmentSelect + " WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	if filters.PatientID != nil {
		query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
		args = append(args, *filters.PatientID)
		argCount++
	}

	if filters.DoctorID != nil {
		query += fmt.Sprintf(" AND a.doctor_id = $%d", argCount)
		args = append(args, *filters.DoctorID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND a.status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	query += " ORDER BY a.appointment_date ASC"

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment, checkSlot bool) error {
	query := `
		UPDATE appointments
		SET appointment_date = $1, reason = $2, symptoms = $3, status = $4, updated_at = $5
		WHERE id = $6
	`
	appointment.Touch()

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if checkSlot {
			if err := r.ensureSlotFree(ctx, tx, appointment.DoctorID, appointment.AppointmentDate, appointment.ID); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, query,
			appointment.AppointmentDate,
			appointment.Reason,
			appointment.Symptoms,
			appointment.Status,
			appointment.UpdatedAt,
			appointment.ID,
		)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return repository.ErrSlotTaken
	case errors.Is(err, repository.ErrSlotTaken), errors.Is(err, repository.ErrNotFound):
		return err
	}
	return fmt.Errorf("failed to update appointment: %w", err)
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return requireAffected(result)
}

func (r *appointmentRepository) ListScheduled(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := appointmentSelect + `
		WHERE a.doctor_id = $1
		AND a.status = 'scheduled'
		AND a.appointment_date >= $2
		AND a.appointment_date < $3
		ORDER BY a.appointment_date ASC
	`
	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list scheduled appointments: %w", err)
	}
	return appointments, nil
}

// ensureSlotFree takes the doctor's advisory lock and fails with ErrSlotTaken if
// another scheduled appointment already sits on the same instant.
func (r *appointmentRepository) ensureSlotFree(ctx context.Context, tx *sqlx.Tx, doctorID uuid.UUID, at time.Time, excludeID uuid.UUID) error {
	if err := lockDoctor(ctx, tx, doctorID); err != nil {
		return err
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND appointment_date = $2
			AND status = 'scheduled'
			AND id <> $3
		)
	`
	var taken bool
	if err := tx.GetContext(ctx, &taken, query, doctorID, at, excludeID); err != nil {
		return err
	}
	if taken {
		return repository.ErrSlotTaken
	}
	return nil
}
