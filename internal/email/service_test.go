package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func TestSend_Disabled(t *testing.T) {
	svc := NewSMTPService(Config{Enabled: false})
	err := svc.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "b"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestBuildMessage(t *testing.T) {
	tests := []struct {
		name string
		from string
		msg  Message
		ok   bool
	}{
		{"valid", "clinic@x.com", Message{To: []string{" a@b.c "}, Subject: "Hi", TextBody: "body"}, true},
		{"html only", "clinic@x.com", Message{To: []string{"a@b.c"}, Subject: "Hi", HTMLBody: "<p>x</p>"}, true},
		{"no from", "", Message{To: []string{"a@b.c"}, Subject: "Hi", TextBody: "body"}, false},
		{"no recipients", "clinic@x.com", Message{To: []string{" "}, Subject: "Hi", TextBody: "body"}, false},
		{"no subject", "clinic@x.com", Message{To: []string{"a@b.c"}, TextBody: "body"}, false},
		{"no body", "clinic@x.com", Message{To: []string{"a@b.c"}, Subject: "Hi"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := buildMessage(tt.from, tt.msg)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, []string{"a@b.c"}, msg.GetHeader("To"))
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidMessage))
		})
	}
}

func TestAppointmentMessage(t *testing.T) {
	evt := model.AppointmentEvent{
		Type:            model.EventAppointmentBooked,
		AppointmentID:   uuid.New(),
		PatientName:     "Sara Adel",
		PatientEmail:    "sara@example.com",
		DoctorName:      "Dr. Youmna Ali",
		AppointmentDate: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		Status:          model.AppointmentStatusScheduled,
	}

	msg, ok := AppointmentMessage(evt, time.UTC)
	require.True(t, ok)
	assert.Equal(t, []string{"sara@example.com"}, msg.To)
	assert.Equal(t, "Your appointment is confirmed", msg.Subject)
	assert.Contains(t, msg.TextBody, "Hi Sara Adel,")
	assert.Contains(t, msg.TextBody, "Your appointment with Dr. Youmna Ali is booked for Tuesday, 10 March 2026 at 10:00 UTC.")

	evt.Type = model.EventAppointmentCompleted
	msg, ok = AppointmentMessage(evt, time.UTC)
	require.True(t, ok)
	assert.Contains(t, msg.TextBody, "Dr. Youmna Ali has added notes")

	evt.Type = "appointment.unknown"
	_, ok = AppointmentMessage(evt, time.UTC)
	assert.False(t, ok)
}
