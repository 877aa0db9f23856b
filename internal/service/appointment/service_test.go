package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type fixture struct {
	store   *memory.Store
	svc     *Service
	patient *model.Patient
	doctor  *model.Doctor
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	patient := &model.Patient{Base: model.NewBase(), Name: "Sara Adel", Email: "sara@example.com"}
	require.NoError(t, store.Patients().Create(ctx, patient))
	doctor := &model.Doctor{Base: model.NewBase(), Name: "Dr. Youmna Ali", Specialization: "General Dentistry"}
	require.NoError(t, store.Doctors().Create(ctx, doctor))

	svc := NewService(
		store.Appointments(),
		store.Notes(),
		store.Patients(),
		store.Doctors(),
		event.NewService(store.Outbox(), zerolog.Nop()),
		cfg,
		metrics.New("test"),
		zerolog.Nop(),
	)
	return &fixture{store: store, svc: svc, patient: patient, doctor: doctor}
}

func (f *fixture) book(t *testing.T, date string) *model.Appointment {
	t.Helper()
	apt, err := f.svc.Book(context.Background(), model.CreateAppointmentRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        f.doctor.ID.String(),
		AppointmentDate: date,
	})
	require.NoError(t, err)
	return apt
}

func strPtr(s string) *string { return &s }

func statusPtr(s model.AppointmentStatus) *model.AppointmentStatus { return &s }

func requireCode(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, status, appErr.StatusCode())
}

func TestBook(t *testing.T) {
	f := newFixture(t, Config{})

	apt, err := f.svc.Book(context.Background(), model.CreateAppointmentRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        f.doctor.ID.String(),
		AppointmentDate: "2026-03-10T10:00:00Z",
		Reason:          strPtr("Toothache"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, "Sara Adel", apt.PatientName)
	assert.Equal(t, "Dr. Youmna Ali", apt.DoctorName)
	assert.Equal(t, "Toothache", apt.Reason)
	assert.True(t, apt.AppointmentDate.Equal(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)))

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentBooked, events[0].EventType)

	var payload model.AppointmentEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, apt.ID, payload.AppointmentID)
	assert.Equal(t, "sara@example.com", payload.PatientEmail)
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name   string
		req    model.CreateAppointmentRequest
		status int
		msg    string
	}{
		{
			name:   "missing date",
			req:    model.CreateAppointmentRequest{PatientID: f.patient.ID.String(), DoctorID: f.doctor.ID.String()},
			status: http.StatusBadRequest,
			msg:    MsgMissingFields,
		},
		{
			name:   "bad date",
			req:    model.CreateAppointmentRequest{PatientID: f.patient.ID.String(), DoctorID: f.doctor.ID.String(), AppointmentDate: "tomorrow"},
			status: http.StatusBadRequest,
			msg:    MsgInvalidDate,
		},
		{
			name:   "bad patient id",
			req:    model.CreateAppointmentRequest{PatientID: "42", DoctorID: f.doctor.ID.String(), AppointmentDate: "2026-03-10T10:00:00Z"},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown patient",
			req:    model.CreateAppointmentRequest{PatientID: uuid.NewString(), DoctorID: f.doctor.ID.String(), AppointmentDate: "2026-03-10T10:00:00Z"},
			status: http.StatusNotFound,
			msg:    "patient not found",
		},
		{
			name:   "unknown doctor",
			req:    model.CreateAppointmentRequest{PatientID: f.patient.ID.String(), DoctorID: uuid.NewString(), AppointmentDate: "2026-03-10T10:00:00Z"},
			status: http.StatusNotFound,
			msg:    "doctor not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, tt.req)
			requireCode(t, err, tt.status)
			if tt.msg != "" {
				var appErr *apperrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, tt.msg, appErr.Message)
			}
		})
	}
	assert.Empty(t, f.store.OutboxEvents())
}

func TestBook_SlotTaken(t *testing.T) {
	f := newFixture(t, Config{})
	f.book(t, "2026-03-10T10:00:00Z")

	// same instant in a different notation
	_, err := f.svc.Book(context.Background(), model.CreateAppointmentRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        f.doctor.ID.String(),
		AppointmentDate: "2026-03-10T12:00:00+02:00",
	})
	requireCode(t, err, http.StatusConflict)
	assert.Contains(t, err.Error(), MsgSlotTaken)

	// a different minute is free
	f.book(t, "2026-03-10T10:30:00Z")
}

func TestBook_CancelledSlotIsReusable(t *testing.T) {
	f := newFixture(t, Config{})
	first := f.book(t, "2026-03-10T10:00:00Z")

	_, err := f.svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	second := f.book(t, "2026-03-10T10:00:00Z")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBook_ZonelessDateUsesClinicZone(t *testing.T) {
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)
	f := newFixture(t, Config{Location: cairo})

	apt := f.book(t, "2026-01-15T10:00")
	assert.True(t, apt.AppointmentDate.Equal(time.Date(2026, 1, 15, 10, 0, 0, 0, cairo)))
}

func TestBook_Concurrent(t *testing.T) {
	f := newFixture(t, Config{})
	req := model.CreateAppointmentRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        f.doctor.ID.String(),
		AppointmentDate: "2026-03-10T10:00:00Z",
	}

	const n = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Book(context.Background(), req)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.StatusCode() == http.StatusConflict {
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, conflicts)
}

func TestBook_SubMicrosecondIsSameSlot(t *testing.T) {
	f := newFixture(t, Config{})
	f.book(t, "2026-03-10T10:00:00Z")

	_, err := f.svc.Book(context.Background(), model.CreateAppointmentRequest{
		PatientID:       f.patient.ID.String(),
		DoctorID:        f.doctor.ID.String(),
		AppointmentDate: "2026-03-10T10:00:00.0000001Z",
	})
	requireCode(t, err, http.StatusConflict)
}

func TestEdit(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	apt := f.book(t, "2026-03-10T10:00:00Z")

	updated, err := f.svc.Edit(ctx, apt.ID, model.UpdateAppointmentRequest{
		AppointmentDate: strPtr("2026-03-10T11:00:00Z"),
		Symptoms:        strPtr("swelling"),
	})
	require.NoError(t, err)
	assert.True(t, updated.AppointmentDate.Equal(time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)))
	assert.Equal(t, "swelling", updated.Symptoms)

	// rescheduling onto its own slot is allowed
	_, err = f.svc.Edit(ctx, apt.ID, model.UpdateAppointmentRequest{AppointmentDate: strPtr("2026-03-10T11:00:00Z")})
	require.NoError(t, err)

	events := f.store.OutboxEvents()
	require.Len(t, events, 3)
	assert.Equal(t, model.EventAppointmentUpdated, events[2].EventType)
}

func TestEdit_Conflicts(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	a := f.book(t, "2026-03-10T10:00:00Z")
	b := f.book(t, "2026-03-10T11:00:00Z")

	_, err := f.svc.Edit(ctx, b.ID, model.UpdateAppointmentRequest{AppointmentDate: strPtr("2026-03-10T10:00:00Z")})
	requireCode(t, err, http.StatusConflict)
	assert.Contains(t, err.Error(), MsgNewSlotUnavailable)

	_, err = f.svc.Edit(ctx, b.ID, model.UpdateAppointmentRequest{AppointmentDate: strPtr("not a date")})
	requireCode(t, err, http.StatusBadRequest)

	_, err = f.svc.Edit(ctx, b.ID, model.UpdateAppointmentRequest{Status: statusPtr("postponed")})
	requireCode(t, err, http.StatusBadRequest)

	// Reviving a cancelled appointment onto a taken slot is rejected.
	_, err = f.svc.Cancel(ctx, a.ID)
	require.NoError(t, err)
	f.book(t, "2026-03-10T10:00:00Z")
	_, err = f.svc.Edit(ctx, a.ID, model.UpdateAppointmentRequest{Status: statusPtr(model.AppointmentStatusScheduled)})
	requireCode(t, err, http.StatusConflict)

	_, err = f.svc.Edit(ctx, uuid.New(), model.UpdateAppointmentRequest{})
	requireCode(t, err, http.StatusNotFound)
}

func TestEdit_CompletedIsImmutable(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	apt := f.book(t, "2026-03-10T10:00:00Z")

	_, err := f.svc.AttachNote(ctx, apt.ID, model.DoctorNoteRequest{Diagnosis: strPtr("caries")})
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, apt.ID, model.UpdateAppointmentRequest{Reason: strPtr("changed")})
	requireCode(t, err, http.StatusBadRequest)
	assert.Contains(t, err.Error(), MsgEditCompleted)

	// even an empty patch
	_, err = f.svc.Edit(ctx, apt.ID, model.UpdateAppointmentRequest{})
	requireCode(t, err, http.StatusBadRequest)
}

func TestEdit_CancelledReschedule(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	apt := f.book(t, "2026-03-10T10:00:00Z")
	f.book(t, "2026-03-10T11:00:00Z")

	_, err := f.svc.Cancel(ctx, apt.ID)
	require.NoError(t, err)

	updated, err := f.svc.Edit(ctx, apt.ID, model.UpdateAppointmentRequest{AppointmentDate: strPtr("2026-03-10T12:00:00Z")})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, updated.Status)
	assert.True(t, updated.AppointmentDate.Equal(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))

	stored, err := f.svc.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
	assert.True(t, stored.AppointmentDate.Equal(updated.AppointmentDate))
}

func TestEdit_StatusOverride(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2026-03-10T10:00:00Z")

	updated, err := f.svc.Edit(context.Background(), apt.ID, model.UpdateAppointmentRequest{Status: statusPtr(model.AppointmentStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, updated.Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	apt := f.book(t, "2026-03-10T10:00:00Z")

	cancelled, err := f.svc.Cancel(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	// idempotent
	again, err := f.svc.Cancel(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, again.Status)
	assert.Len(t, f.store.OutboxEvents(), 2, "second cancel emits nothing")

	_, err = f.svc.Cancel(ctx, uuid.New())
	requireCode(t, err, http.StatusNotFound)
}

func TestCancel_Completed(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	apt := f.book(t, "2026-03-10T10:00:00Z")
	_, err := f.svc.AttachNote(ctx, apt.ID, model.DoctorNoteRequest{})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, apt.ID)
	requireCode(t, err, http.StatusBadRequest)
	assert.Contains(t, err.Error(), MsgCancelCompleted)
}

func TestNotes(t *testing.T) {
	f := newFixture(t, Config{AllowNotesOnCancelled: true})
	ctx := context.Background()
	apt := f.book(t, "2026-03-10T10:00:00Z")

	_, err := f.svc.GetNote(ctx, apt.ID)
	requireCode(t, err, http.StatusNotFound)

	note, err := f.svc.AttachNote(ctx, apt.ID, model.DoctorNoteRequest{
		Diagnosis:    strPtr("caries"),
		Prescription: strPtr("ibuprofen"),
	})
	require.NoError(t, err)
	assert.Equal(t, "caries", note.Diagnosis)

	detail, err := f.svc.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, detail.Status)
	require.NotNil(t, detail.Notes)
	assert.Equal(t, "ibuprofen", detail.Notes.Prescription)

	_, err = f.svc.AttachNote(ctx, apt.ID, model.DoctorNoteRequest{})
	requireCode(t, err, http.StatusBadRequest)
	assert.Contains(t, err.Error(), MsgNotesExist)

	updated, err := f.svc.UpdateNote(ctx, apt.ID, model.DoctorNoteRequest{Treatment: strPtr("filling")})
	require.NoError(t, err)
	assert.Equal(t, "caries", updated.Diagnosis)
	assert.Equal(t, "filling", updated.Treatment)
	assert.False(t, updated.UpdatedAt.Before(note.UpdatedAt))

	got, err := f.svc.GetNote(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, "filling", got.Treatment)

	_, err = f.svc.AttachNote(ctx, uuid.New(), model.DoctorNoteRequest{})
	requireCode(t, err, http.StatusNotFound)

	types := []string{}
	for _, e := range f.store.OutboxEvents() {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{model.EventAppointmentBooked, model.EventAppointmentCompleted}, types)
}

func TestNotes_CancelledAppointment(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed by default behaviour", func(t *testing.T) {
		f := newFixture(t, Config{AllowNotesOnCancelled: true})
		apt := f.book(t, "2026-03-10T10:00:00Z")
		_, err := f.svc.Cancel(ctx, apt.ID)
		require.NoError(t, err)

		_, err = f.svc.AttachNote(ctx, apt.ID, model.DoctorNoteRequest{})
		require.NoError(t, err)
		detail, err := f.svc.Get(ctx, apt.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusCompleted, detail.Status)
	})

	t.Run("rejected when disabled", func(t *testing.T) {
		f := newFixture(t, Config{AllowNotesOnCancelled: false})
		apt := f.book(t, "2026-03-10T10:00:00Z")
		_, err := f.svc.Cancel(ctx, apt.ID)
		require.NoError(t, err)

		_, err = f.svc.AttachNote(ctx, apt.ID, model.DoctorNoteRequest{})
		requireCode(t, err, http.StatusBadRequest)
	})
}

func TestUpdateNote_Missing(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2026-03-10T10:00:00Z")

	_, err := f.svc.UpdateNote(context.Background(), apt.ID, model.DoctorNoteRequest{})
	requireCode(t, err, http.StatusNotFound)
	assert.Contains(t, err.Error(), MsgNoNotes)
}

func TestGet_WithoutNote(t *testing.T) {
	f := newFixture(t, Config{})
	apt := f.book(t, "2026-03-10T10:00:00Z")

	detail, err := f.svc.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Notes)

	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"notes":null`)
	assert.Contains(t, string(raw), `"patient_name":"Sara Adel"`)
}

func TestList(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	late := f.book(t, "2026-03-10T15:00:00Z")
	early := f.book(t, "2026-03-10T09:00:00Z")
	_, err := f.svc.Cancel(ctx, late.ID)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, model.AppointmentFilters{PatientID: &f.patient.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, early.ID, all[0].ID)

	scheduled, err := f.svc.List(ctx, model.AppointmentFilters{Status: model.AppointmentStatusScheduled})
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, early.ID, scheduled[0].ID)

	other := uuid.New()
	none, err := f.svc.List(ctx, model.AppointmentFilters{DoctorID: &other})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.List(ctx, model.AppointmentFilters{Status: "unknown"})
	requireCode(t, err, http.StatusBadRequest)
}

func TestAvailableSlots(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	slots, err := f.svc.AvailableSlots(ctx, f.doctor.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}, slots.AvailableSlots)
	assert.Equal(t, "2026-03-10", slots.Date)
	assert.Equal(t, f.doctor.ID, slots.DoctorID)

	f.book(t, "2026-03-10T10:00:00Z")
	f.book(t, "2026-03-10T10:30:00Z") // off-grid, blocks nothing
	cancelled := f.book(t, "2026-03-10T14:00:00Z")
	_, err = f.svc.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)
	f.book(t, "2026-03-11T11:00:00Z") // next day

	slots, err = f.svc.AvailableSlots(ctx, f.doctor.ID, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}, slots.AvailableSlots)

	_, err = f.svc.AvailableSlots(ctx, f.doctor.ID, "10/03/2026")
	requireCode(t, err, http.StatusBadRequest)
}

func TestAvailableSlots_ClinicZone(t *testing.T) {
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)
	f := newFixture(t, Config{Location: cairo})

	// 07:00Z is 09:00 in Cairo during winter (UTC+2)
	f.book(t, "2026-01-15T07:00:00Z")

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctor.ID, "2026-01-15")
	require.NoError(t, err)
	assert.NotContains(t, slots.AvailableSlots, "09:00")
	assert.Contains(t, slots.AvailableSlots, "10:00")
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, string, interface{}) error {
	return errors.New("outbox down")
}

func TestEmitFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t, Config{})
	f.svc.events = failingEmitter{}

	apt := f.book(t, "2026-03-10T10:00:00Z")
	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Empty(t, f.store.OutboxEvents())
}
