package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// AppointmentRepository owns appointment persistence and the per-doctor slot rule.
	AppointmentRepository interface {
		// Create inserts a scheduled appointment. It returns ErrSlotTaken when the
		// doctor already has a scheduled appointment at the same instant.
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error)
		// Update persists date, reason, symptoms and status. With checkSlot set the
		// slot rule is re-evaluated, excluding the appointment itself.
		Update(ctx context.Context, appointment *model.Appointment, checkSlot bool) error
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		// ListScheduled returns a doctor's scheduled appointments in [from, to).
		ListScheduled(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
	}

	DoctorNoteRepository interface {
		// CreateAndComplete inserts the note and marks its appointment completed
		// in one transaction. Returns ErrNoteExists if a note is already attached.
		CreateAndComplete(ctx context.Context, note *model.DoctorNote) error
		Get(ctx context.Context, appointmentID uuid.UUID) (*model.DoctorNote, error)
		Update(ctx context.Context, note *model.DoctorNote) error
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		List(ctx context.Context) ([]*model.Patient, error)
		ListWithAppointments(ctx context.Context, doctorID *uuid.UUID) ([]*model.PatientWithAppointments, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	MedicalHistoryRepository interface {
		GetByPatient(ctx context.Context, patientID uuid.UUID) (*model.MedicalHistory, error)
		Upsert(ctx context.Context, history *model.MedicalHistory) error
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		List(ctx context.Context) ([]*model.Doctor, error)
		// Delete returns ErrHasDependents while appointments or reviews reference the doctor.
		Delete(ctx context.Context, id uuid.UUID) error
		Rating(ctx context.Context, id uuid.UUID) (*model.DoctorRating, error)
	}

	ReviewRepository interface {
		Create(ctx context.Context, review *model.Review) error
		Get(ctx context.Context, id uuid.UUID) (*model.Review, error)
		List(ctx context.Context, doctorID *uuid.UUID) ([]*model.Review, error)
		Update(ctx context.Context, review *model.Review) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEventsWithLock claims up to limit due events by moving them to
		// processing. Concurrent callers never receive the same event.
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Repositories bundles one implementation of every repository.
type Repositories struct {
	Appointments AppointmentRepository
	Notes        DoctorNoteRepository
	Patients     PatientRepository
	Histories    MedicalHistoryRepository
	Doctors      DoctorRepository
	Reviews      ReviewRepository
	Outbox       OutboxRepository
}
