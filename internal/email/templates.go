package email

import (
	"fmt"
	"html"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
)

const whenLayout = "Monday, 02 January 2006 at 15:04 MST"

// AppointmentMessage renders the patient notification for an appointment
// event. It returns false for events that do not notify the patient.
func AppointmentMessage(evt model.AppointmentEvent, loc *time.Location) (Message, bool) {
	if loc == nil {
		loc = time.UTC
	}
	when := evt.AppointmentDate.In(loc).Format(whenLayout)

	var subject, line string
	switch evt.Type {
	case model.EventAppointmentBooked:
		subject = "Your appointment is confirmed"
		line = fmt.Sprintf("your appointment with %s is booked for %s.", evt.DoctorName, when)
	case model.EventAppointmentUpdated:
		subject = "Your appointment has changed"
		line = fmt.Sprintf("your appointment with %s is now on %s (status: %s).", evt.DoctorName, when, evt.Status)
	case model.EventAppointmentCancelled:
		subject = "Your appointment was cancelled"
		line = fmt.Sprintf("your appointment with %s on %s has been cancelled.", evt.DoctorName, when)
	case model.EventAppointmentCompleted:
		subject = "Your visit summary is ready"
		line = fmt.Sprintf("%s has added notes to your appointment on %s.", evt.DoctorName, when)
	default:
		return Message{}, false
	}

	name := evt.PatientName
	if name == "" {
		name = "there"
	}

	return Message{
		To:       []string{evt.PatientEmail},
		Subject:  subject,
		TextBody: fmt.Sprintf("Hi %s,\n\n%s\n\nThe Clinic Team", name, capitalize(line)),
		HTMLBody: fmt.Sprintf(`<p>Hi %s,</p><p>%s</p><p>The Clinic Team</p>`,
			html.EscapeString(name), html.EscapeString(capitalize(line))),
	}, true
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
