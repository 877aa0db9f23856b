// Package memory implements the repository interfaces on process memory. It backs
// the "memory" database driver and the service and HTTP tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Store holds every table behind a single lock, which makes each repository
// call atomic in the same way a transaction does.
type Store struct {
	mu           sync.RWMutex
	patients     map[uuid.UUID]model.Patient
	doctors      map[uuid.UUID]model.Doctor
	appointments map[uuid.UUID]model.Appointment
	notes        map[uuid.UUID]model.DoctorNote // keyed by appointment id
	histories    map[uuid.UUID]model.MedicalHistory
	reviews      map[uuid.UUID]model.Review
	outbox       map[uuid.UUID]model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		patients:     make(map[uuid.UUID]model.Patient),
		doctors:      make(map[uuid.UUID]model.Doctor),
		appointments: make(map[uuid.UUID]model.Appointment),
		notes:        make(map[uuid.UUID]model.DoctorNote),
		histories:    make(map[uuid.UUID]model.MedicalHistory),
		reviews:      make(map[uuid.UUID]model.Review),
		outbox:       make(map[uuid.UUID]model.OutboxEvent),
	}
}

func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) Notes() repository.DoctorNoteRepository         { return noteRepo{s} }
func (s *Store) Patients() repository.PatientRepository         { return patientRepo{s} }
func (s *Store) Histories() repository.MedicalHistoryRepository { return historyRepo{s} }
func (s *Store) Doctors() repository.DoctorRepository           { return doctorRepo{s} }
func (s *Store) Reviews() repository.ReviewRepository           { return reviewRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository            { return outboxRepo{s} }

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Appointments: s.Appointments(),
		Notes:        s.Notes(),
		Patients:     s.Patients(),
		Histories:    s.Histories(),
		Doctors:      s.Doctors(),
		Reviews:      s.Reviews(),
		Outbox:       s.Outbox(),
	}
}

// appointments

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[apt.PatientID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.doctors[apt.DoctorID]; !ok {
		return repository.ErrNotFound
	}
	if apt.Status == model.AppointmentStatusScheduled && s.slotTaken(apt.DoctorID, apt.AppointmentDate, uuid.Nil) {
		return repository.ErrSlotTaken
	}
	s.appointments[apt.ID] = *apt
	return nil
}

func (r appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	apt, ok := s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withNames(apt), nil
}

func (r appointmentRepo) List(_ context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Appointment{}
	for _, apt := range s.appointments {
		if filters.PatientID != nil && apt.PatientID != *filters.PatientID {
			continue
		}
		if filters.DoctorID != nil && apt.DoctorID != *filters.DoctorID {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		out = append(out, s.withNames(apt))
	}
	sortByDate(out)
	return out, nil
}

func (r appointmentRepo) Update(_ context.Context, apt *model.Appointment, checkSlot bool) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.appointments[apt.ID]
	if !ok {
		return repository.ErrNotFound
	}
	// A scheduled row is always subject to the unique slot index.
	if (checkSlot || apt.Status == model.AppointmentStatusScheduled) &&
		s.slotTaken(current.DoctorID, apt.AppointmentDate, apt.ID) {
		return repository.ErrSlotTaken
	}

	apt.Touch()
	current.AppointmentDate = apt.AppointmentDate
	current.Reason = apt.Reason
	current.Symptoms = apt.Symptoms
	current.Status = apt.Status
	current.UpdatedAt = apt.UpdatedAt
	s.appointments[apt.ID] = current
	return nil
}

func (r appointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if status == model.AppointmentStatusScheduled && apt.Status != status && s.slotTaken(apt.DoctorID, apt.AppointmentDate, id) {
		return repository.ErrSlotTaken
	}
	apt.Status = status
	apt.Touch()
	s.appointments[id] = apt
	return nil
}

func (r appointmentRepo) ListScheduled(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Appointment{}
	for _, apt := range s.appointments {
		if apt.DoctorID != doctorID || apt.Status != model.AppointmentStatusScheduled {
			continue
		}
		if apt.AppointmentDate.Before(from) || !apt.AppointmentDate.Before(to) {
			continue
		}
		out = append(out, s.withNames(apt))
	}
	sortByDate(out)
	return out, nil
}

// slotTaken mirrors the partial unique index on (doctor_id, appointment_date)
// for scheduled rows. Callers hold the write lock.
func (s *Store) slotTaken(doctorID uuid.UUID, at time.Time, excludeID uuid.UUID) bool {
	for id, apt := range s.appointments {
		if id == excludeID || apt.DoctorID != doctorID || apt.Status != model.AppointmentStatusScheduled {
			continue
		}
		if apt.AppointmentDate.Equal(at) {
			return true
		}
	}
	return false
}

func (s *Store) withNames(apt model.Appointment) *model.Appointment {
	apt.PatientName = s.patients[apt.PatientID].Name
	apt.DoctorName = s.doctors[apt.DoctorID].Name
	return &apt
}

func sortByDate(apts []*model.Appointment) {
	sort.SliceStable(apts, func(i, j int) bool {
		return apts[i].AppointmentDate.Before(apts[j].AppointmentDate)
	})
}

// notes

type noteRepo struct{ s *Store }

func (r noteRepo) CreateAndComplete(_ context.Context, note *model.DoctorNote) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[note.AppointmentID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, exists := s.notes[note.AppointmentID]; exists {
		return repository.ErrNoteExists
	}
	s.notes[note.AppointmentID] = *note
	apt.Status = model.AppointmentStatusCompleted
	apt.Touch()
	s.appointments[apt.ID] = apt
	return nil
}

func (r noteRepo) Get(_ context.Context, appointmentID uuid.UUID) (*model.DoctorNote, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, ok := s.notes[appointmentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &note, nil
}

func (r noteRepo) Update(_ context.Context, note *model.DoctorNote) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[note.AppointmentID]; !ok {
		return repository.ErrNotFound
	}
	note.Touch()
	s.notes[note.AppointmentID] = *note
	return nil
}

// patients

type patientRepo struct{ s *Store }

func (r patientRepo) Create(_ context.Context, patient *model.Patient) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.patients {
		if p.Email == patient.Email {
			return repository.ErrDuplicate
		}
	}
	s.patients[patient.ID] = *patient
	return nil
}

func (r patientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r patientRepo) GetByEmail(_ context.Context, email string) (*model.Patient, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.patients {
		if p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r patientRepo) List(_ context.Context) ([]*model.Patient, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Patient{}
	for _, p := range s.patients {
		p := p
		out = append(out, &p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r patientRepo) ListWithAppointments(_ context.Context, doctorID *uuid.UUID) ([]*model.PatientWithAppointments, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[uuid.UUID]int)
	matched := make(map[uuid.UUID]bool)
	for _, apt := range s.appointments {
		totals[apt.PatientID]++
		if doctorID == nil || apt.DoctorID == *doctorID {
			matched[apt.PatientID] = true
		}
	}

	out := []*model.PatientWithAppointments{}
	for id := range matched {
		out = append(out, &model.PatientWithAppointments{
			Patient:           s.patients[id],
			TotalAppointments: totals[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete cascades to the patient's appointments, notes, history and reviews.
func (r patientRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[id]; !ok {
		return repository.ErrNotFound
	}
	for aptID, apt := range s.appointments {
		if apt.PatientID == id {
			delete(s.notes, aptID)
			delete(s.appointments, aptID)
		}
	}
	for hID, h := range s.histories {
		if h.PatientID == id {
			delete(s.histories, hID)
		}
	}
	for rID, rv := range s.reviews {
		if rv.PatientID == id {
			delete(s.reviews, rID)
		}
	}
	delete(s.patients, id)
	return nil
}

// medical history

type historyRepo struct{ s *Store }

func (r historyRepo) GetByPatient(_ context.Context, patientID uuid.UUID) (*model.MedicalHistory, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.histories {
		if h.PatientID == patientID {
			h := h
			return &h, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r historyRepo) Upsert(_ context.Context, history *model.MedicalHistory) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[history.PatientID]; !ok {
		return repository.ErrNotFound
	}
	for id, h := range s.histories {
		if h.PatientID == history.PatientID {
			history.ID = id
			history.CreatedAt = h.CreatedAt
		}
	}
	history.Touch()
	s.histories[history.ID] = *history
	return nil
}

// doctors

type doctorRepo struct{ s *Store }

func (r doctorRepo) Create(_ context.Context, doctor *model.Doctor) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if doctor.Email != "" {
		for _, d := range s.doctors {
			if d.Email == doctor.Email {
				return repository.ErrDuplicate
			}
		}
	}
	s.doctors[doctor.ID] = *doctor
	return nil
}

func (r doctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r doctorRepo) GetByEmail(_ context.Context, email string) (*model.Doctor, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	if email == "" {
		return nil, repository.ErrNotFound
	}
	for _, d := range s.doctors {
		if d.Email == email {
			d := d
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r doctorRepo) List(_ context.Context) ([]*model.Doctor, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Doctor{}
	for _, d := range s.doctors {
		d := d
		out = append(out, &d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r doctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doctors[id]; !ok {
		return repository.ErrNotFound
	}
	for _, apt := range s.appointments {
		if apt.DoctorID == id {
			return repository.ErrHasDependents
		}
	}
	for _, rv := range s.reviews {
		if rv.DoctorID == id {
			return repository.ErrHasDependents
		}
	}
	delete(s.doctors, id)
	return nil
}

func (r doctorRepo) Rating(_ context.Context, id uuid.UUID) (*model.DoctorRating, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rating := &model.DoctorRating{DoctorID: id, DoctorName: d.Name}
	sum := 0
	for _, rv := range s.reviews {
		if rv.DoctorID == id {
			sum += rv.Rating
			rating.TotalReviews++
		}
	}
	if rating.TotalReviews > 0 {
		avg := float64(sum) / float64(rating.TotalReviews)
		rating.AverageRating = math.Round(avg*100) / 100
	}
	return rating, nil
}

// reviews

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(_ context.Context, review *model.Review) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[review.PatientID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.doctors[review.DoctorID]; !ok {
		return repository.ErrNotFound
	}
	s.reviews[review.ID] = *review
	return nil
}

func (r reviewRepo) Get(_ context.Context, id uuid.UUID) (*model.Review, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	rv, ok := s.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.reviewWithNames(rv), nil
}

func (r reviewRepo) List(_ context.Context, doctorID *uuid.UUID) ([]*model.Review, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Review{}
	for _, rv := range s.reviews {
		if doctorID != nil && rv.DoctorID != *doctorID {
			continue
		}
		out = append(out, s.reviewWithNames(rv))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r reviewRepo) Update(_ context.Context, review *model.Review) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.reviews[review.ID]
	if !ok {
		return repository.ErrNotFound
	}
	review.Touch()
	current.Rating = review.Rating
	current.Comment = review.Comment
	current.UpdatedAt = review.UpdatedAt
	s.reviews[review.ID] = current
	return nil
}

func (r reviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.reviews, id)
	return nil
}

func (s *Store) reviewWithNames(rv model.Review) *model.Review {
	rv.PatientName = s.patients[rv.PatientID].Name
	rv.DoctorName = s.doctors[rv.DoctorID].Name
	return &rv
}

// outbox

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outbox[event.ID] = *event
	return nil
}

func (r outboxRepo) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	due := []model.OutboxEvent{}
	for _, evt := range s.outbox {
		if evt.Status != model.OutboxStatusPending && evt.Status != model.OutboxStatusRetry {
			continue
		}
		if evt.RetryAt != nil && evt.RetryAt.After(now) {
			continue
		}
		due = append(due, evt)
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]*model.OutboxEvent, 0, len(due))
	for _, evt := range due {
		evt.Status = model.OutboxStatusProcessing
		evt.UpdatedAt = now
		s.outbox[evt.ID] = evt
		evt := evt
		out = append(out, &evt)
	}
	return out, nil
}

func (r outboxRepo) UpdateStatus(_ context.Context, event *model.OutboxEvent) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.outbox[event.ID]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	current.Status = event.Status
	current.ErrorMessage = event.ErrorMessage
	current.RetryCount = event.RetryCount
	current.RetryAt = event.RetryAt
	current.UpdatedAt = now
	if event.Status == model.OutboxStatusProcessed {
		current.ProcessedAt = &now
	}
	s.outbox[event.ID] = current
	return nil
}

func (r outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, evt := range s.outbox {
		if evt.Status == model.OutboxStatusProcessed && evt.ProcessedAt != nil && evt.ProcessedAt.Before(before) {
			delete(s.outbox, id)
			n++
		}
	}
	return n, nil
}

// OutboxEvents returns a snapshot of the outbox, oldest first.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.OutboxEvent, 0, len(s.outbox))
	for _, evt := range s.outbox {
		out = append(out, evt)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
