package model

import "github.com/google/uuid"

type DoctorNote struct {
	Base
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis"`
	Treatment     string    `db:"treatment" json:"treatment"`
	Prescription  string    `db:"prescription" json:"prescription"`
	Notes         string    `db:"notes" json:"notes"`
}

type DoctorNoteRequest struct {
	Diagnosis    *string `json:"diagnosis"`
	Treatment    *string `json:"treatment"`
	Prescription *string `json:"prescription"`
	Notes        *string `json:"notes"`
}

// Apply copies every provided field onto n.
func (r *DoctorNoteRequest) Apply(n *DoctorNote) {
	if r.Diagnosis != nil {
		n.Diagnosis = *r.Diagnosis
	}
	if r.Treatment != nil {
		n.Treatment = *r.Treatment
	}
	if r.Prescription != nil {
		n.Prescription = *r.Prescription
	}
	if r.Notes != nil {
		n.Notes = *r.Notes
	}
}
