package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is one of the known appointment statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
	Reason          string            `db:"reason" json:"reason"`
	Symptoms        string            `db:"symptoms" json:"symptoms"`
	Status          AppointmentStatus `db:"status" json:"status"`
	PatientName     string            `db:"patient_name" json:"patient_name"`
	DoctorName      string            `db:"doctor_name" json:"doctor_name"`
}

// AppointmentDetail is an appointment together with its doctor note, if any.
type AppointmentDetail struct {
	*Appointment
	Notes *DoctorNote `json:"notes"`
}

type CreateAppointmentRequest struct {
	PatientID       string  `json:"patient_id" binding:"required"`
	DoctorID        string  `json:"doctor_id" binding:"required"`
	AppointmentDate string  `json:"appointment_date" binding:"required"`
	Reason          *string `json:"reason"`
	Symptoms        *string `json:"symptoms"`
}

// UpdateAppointmentRequest is a partial patch; nil fields are left untouched.
type UpdateAppointmentRequest struct {
	AppointmentDate *string            `json:"appointment_date"`
	Reason          *string            `json:"reason"`
	Symptoms        *string            `json:"symptoms"`
	Status          *AppointmentStatus `json:"status"`
}

type AppointmentFilters struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    AppointmentStatus
}

type AvailableSlots struct {
	Date           string    `json:"date"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	AvailableSlots []string  `json:"available_slots"`
}
