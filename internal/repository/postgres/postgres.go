package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

type doctorNoteRepository struct {
	BaseRepository
}

type patientRepository struct {
	BaseRepository
}

type medicalHistoryRepository struct {
	BaseRepository
}

type doctorRepository struct {
	BaseRepository
}

type reviewRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewDoctorNoteRepository(db *sqlx.DB) repository.DoctorNoteRepository {
	return &doctorNoteRepository{NewBaseRepository(db)}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewMedicalHistoryRepository(db *sqlx.DB) repository.MedicalHistoryRepository {
	return &medicalHistoryRepository{NewBaseRepository(db)}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func NewReviewRepository(db *sqlx.DB) repository.ReviewRepository {
	return &reviewRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}

// NewRepositories wires every Postgres repository onto db.
func NewRepositories(db *sqlx.DB) repository.Repositories {
	return repository.Repositories{
		Appointments: NewAppointmentRepository(db),
		Notes:        NewDoctorNoteRepository(db),
		Patients:     NewPatientRepository(db),
		Histories:    NewMedicalHistoryRepository(db),
		Doctors:      NewDoctorRepository(db),
		Reviews:      NewReviewRepository(db),
		Outbox:       NewOutboxRepository(db),
	}
}
