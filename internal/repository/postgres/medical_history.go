package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

func (r *medicalHistoryRepository) GetByPatient(ctx context.Context, patientID uuid.UUID) (*model.MedicalHistory, error) {
	query := `
		SELECT id, patient_id, allergies, previous_treatments, chronic_conditions,
			   medications, notes, created_at, updated_at
		FROM medical_histories
		WHERE patient_id = $1
	`
	var history model.MedicalHistory
	if err := r.db.GetContext(ctx, &history, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to get medical history: %w", notFound(err))
	}
	return &history, nil
}

// Upsert writes the history row, keyed by patient. On conflict the existing row
// keeps its id and created_at.
func (r *medicalHistoryRepository) Upsert(ctx context.Context, history *model.MedicalHistory) error {
	query := `
		INSERT INTO medical_histories (
			id, patient_id, allergies, previous_treatments, chronic_conditions,
			medications, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (patient_id) DO UPDATE SET
			allergies = EXCLUDED.allergies,
			previous_treatments = EXCLUDED.previous_treatments,
			chronic_conditions = EXCLUDED.chronic_conditions,
			medications = EXCLUDED.medications,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	history.Touch()

	row := r.db.QueryRowxContext(ctx, query,
		history.ID,
		history.PatientID,
		history.Allergies,
		history.PreviousTreatments,
		history.ChronicConditions,
		history.Medications,
		history.Notes,
		history.CreatedAt,
		history.UpdatedAt,
	)
	if err := row.Scan(&history.ID, &history.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to save medical history: %w", err)
	}
	return nil
}
