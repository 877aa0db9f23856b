package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const (
	MsgMissingFields      = "Missing required fields"
	MsgInvalidDate        = "Invalid date format. Use ISO 8601"
	MsgInvalidDay         = "Invalid date format. Use YYYY-MM-DD"
	MsgSlotTaken          = "Time slot already booked. Please choose another slot."
	MsgNewSlotUnavailable = "New time slot is not available"
	MsgEditCompleted      = "Cannot edit completed appointment"
	MsgCancelCompleted    = "Cannot cancel completed appointment"
	MsgInvalidStatus      = "Invalid status. Use scheduled, completed or cancelled"
	MsgNotesExist         = "Notes already exist. Use PUT to update."
	MsgNotesOnCancelled   = "Cannot add notes to a cancelled appointment"
	MsgNoNotes            = "No notes found"
)

// EventEmitter queues a domain event for asynchronous delivery.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type Config struct {
	Location              *time.Location
	Window                SlotWindow
	AllowNotesOnCancelled bool
}

type Service struct {
	repo     repository.AppointmentRepository
	notes    repository.DoctorNoteRepository
	patients repository.PatientRepository
	doctors  repository.DoctorRepository
	events   EventEmitter
	config   Config
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	notes repository.DoctorNoteRepository,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
	events EventEmitter,
	config Config,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Window.Interval <= 0 {
		config.Window = DefaultSlotWindow
	}
	return &Service{
		repo:     repo,
		notes:    notes,
		patients: patients,
		doctors:  doctors,
		events:   events,
		config:   config,
		metrics:  metrics,
		logger:   logger,
	}
}

// Book creates a scheduled appointment for a free doctor slot.
func (s *Service) Book(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	if strings.TrimSpace(req.PatientID) == "" || strings.TrimSpace(req.DoctorID) == "" || strings.TrimSpace(req.AppointmentDate) == "" {
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
	date, err := ParseAppointmentDate(req.AppointmentDate, s.config.Location)
	if err != nil {
		return nil, apperrors.BadRequest(MsgInvalidDate, err)
	}

	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, mapRepoError("patient", err)
	}
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, mapRepoError("doctor", err)
	}

	apt := &model.Appointment{
		Base:            model.NewBase(),
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentDate: date,
		Status:          model.AppointmentStatusScheduled,
	}
	if req.Reason != nil {
		apt.Reason = *req.Reason
	}
	if req.Symptoms != nil {
		apt.Symptoms = *req.Symptoms
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.countConflict()
			return nil, apperrors.Conflict(MsgSlotTaken, err)
		}
		return nil, mapRepoError("patient or doctor", err)
	}
	if s.metrics != nil {
		s.metrics.AppointmentsBooked.Inc()
	}

	// re-read for the joined display names
	created, err := s.repo.Get(ctx, apt.ID)
	if err != nil {
		return nil, mapRepoError("appointment", err)
	}

	s.emit(ctx, model.EventAppointmentBooked, created)
	return created, nil
}

// Get returns the appointment together with its doctor note, if any.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError("appointment", err)
	}

	detail := &model.AppointmentDetail{Appointment: apt}
	note, err := s.notes.Get(ctx, id)
	switch {
	case err == nil:
		detail.Notes = note
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, apperrors.Internal(fmt.Errorf("failed to get doctor note: %w", err))
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, apperrors.BadRequest(MsgInvalidStatus, nil)
	}
	apts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}
	return apts, nil
}

// Edit applies a partial patch. Completed appointments are immutable.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, req model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError("appointment", err)
	}
	if apt.Status == model.AppointmentStatusCompleted {
		return nil, apperrors.BadRequest(MsgEditCompleted, nil)
	}

	checkSlot := false
	if req.AppointmentDate != nil {
		date, err := ParseAppointmentDate(*req.AppointmentDate, s.config.Location)
		if err != nil {
			return nil, apperrors.BadRequest("Invalid date format", err)
		}
		apt.AppointmentDate = date
		checkSlot = true
	}
	if req.Reason != nil {
		apt.Reason = *req.Reason
	}
	if req.Symptoms != nil {
		apt.Symptoms = *req.Symptoms
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperrors.BadRequest(MsgInvalidStatus, nil)
		}
		if *req.Status == model.AppointmentStatusScheduled && apt.Status != model.AppointmentStatusScheduled {
			checkSlot = true
		}
		apt.Status = *req.Status
	}

	if err := s.repo.Update(ctx, apt, checkSlot); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.countConflict()
			return nil, apperrors.Conflict(MsgNewSlotUnavailable, err)
		}
		return nil, mapRepoError("appointment", err)
	}

	s.emit(ctx, model.EventAppointmentUpdated, apt)
	return apt, nil
}

// Cancel marks the appointment cancelled. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError("appointment", err)
	}
	if apt.Status == model.AppointmentStatusCompleted {
		return nil, apperrors.BadRequest(MsgCancelCompleted, nil)
	}
	if apt.Status == model.AppointmentStatusCancelled {
		return apt, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, model.AppointmentStatusCancelled); err != nil {
		return nil, mapRepoError("appointment", err)
	}
	apt.Status = model.AppointmentStatusCancelled

	s.emit(ctx, model.EventAppointmentCancelled, apt)
	return apt, nil
}

// AttachNote records the doctor's note and completes the appointment.
func (s *Service) AttachNote(ctx context.Context, appointmentID uuid.UUID, req model.DoctorNoteRequest) (*model.DoctorNote, error) {
	apt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, mapRepoError("appointment", err)
	}
	if apt.Status == model.AppointmentStatusCancelled && !s.config.AllowNotesOnCancelled {
		return nil, apperrors.BadRequest(MsgNotesOnCancelled, nil)
	}

	note := &model.DoctorNote{
		Base:          model.NewBase(),
		AppointmentID: appointmentID,
	}
	req.Apply(note)

	if err := s.notes.CreateAndComplete(ctx, note); err != nil {
		if errors.Is(err, repository.ErrNoteExists) {
			return nil, apperrors.BadRequest(MsgNotesExist, err)
		}
		return nil, mapRepoError("appointment", err)
	}

	apt.Status = model.AppointmentStatusCompleted
	s.emit(ctx, model.EventAppointmentCompleted, apt)
	return note, nil
}

func (s *Service) UpdateNote(ctx context.Context, appointmentID uuid.UUID, req model.DoctorNoteRequest) (*model.DoctorNote, error) {
	note, err := s.GetNote(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	req.Apply(note)
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, mapNoteError(err)
	}
	return note, nil
}

func (s *Service) GetNote(ctx context.Context, appointmentID uuid.UUID) (*model.DoctorNote, error) {
	if _, err := s.repo.Get(ctx, appointmentID); err != nil {
		return nil, mapRepoError("appointment", err)
	}
	note, err := s.notes.Get(ctx, appointmentID)
	if err != nil {
		return nil, mapNoteError(err)
	}
	return note, nil
}

// AvailableSlots lists the free HH:MM slots of a doctor on a calendar day in
// the clinic time zone.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day string) (*model.AvailableSlots, error) {
	start, err := ParseDay(day, s.config.Location)
	if err != nil {
		return nil, apperrors.BadRequest(MsgInvalidDay, err)
	}
	end := start.AddDate(0, 0, 1)

	booked, err := s.repo.ListScheduled(ctx, doctorID, start, end)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list booked slots: %w", err))
	}

	times := make([]time.Time, 0, len(booked))
	for _, apt := range booked {
		times = append(times, apt.AppointmentDate)
	}

	return &model.AvailableSlots{
		Date:           day,
		DoctorID:       doctorID,
		AvailableSlots: freeSlots(s.config.Window, times, s.config.Location),
	}, nil
}

// emit queues an outbox event. Failures are logged and never fail the caller.
func (s *Service) emit(ctx context.Context, eventType string, apt *model.Appointment) {
	if s.events == nil {
		return
	}

	payload := model.AppointmentEvent{
		Type:            eventType,
		AppointmentID:   apt.ID,
		PatientID:       apt.PatientID,
		PatientName:     apt.PatientName,
		DoctorID:        apt.DoctorID,
		DoctorName:      apt.DoctorName,
		AppointmentDate: apt.AppointmentDate,
		Status:          apt.Status,
		Reason:          apt.Reason,
		OccurredAt:      time.Now().UTC(),
	}
	if patient, err := s.patients.Get(ctx, apt.PatientID); err == nil {
		payload.PatientEmail = patient.Email
		payload.PatientName = patient.Name
	}

	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		s.logger.Error().
			Err(err).
			Str("event_type", eventType).
			Str("appointment_id", apt.ID.String()).
			Msg("Failed to emit appointment event")
	}
}

func (s *Service) countConflict() {
	if s.metrics != nil {
		s.metrics.SlotConflicts.Inc()
	}
}

func mapRepoError(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal(err)
}

func mapNoteError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &apperrors.AppError{Code: apperrors.ErrNotFound, Message: MsgNoNotes, Err: err}
	}
	return apperrors.Internal(err)
}
