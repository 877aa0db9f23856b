package model

import (
	"strings"

	"github.com/google/uuid"
)

type Patient struct {
	Base
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Phone        string `db:"phone" json:"phone"`
	Diseases     string `db:"diseases" json:"diseases"`
}

type PatientWithAppointments struct {
	Patient
	TotalAppointments int `db:"total_appointments" json:"total_appointments"`
}

type CreatePatientRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
	Diseases string `json:"diseases"`
}

// SignupRequest is the self-service variant of CreatePatientRequest where every field is mandatory.
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Diseases string `json:"diseases" binding:"required"`
}

func (r *SignupRequest) ToCreate() *CreatePatientRequest {
	return &CreatePatientRequest{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
		Diseases: r.Diseases,
	}
}

// NormalizeEmail lower-cases and trims an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type MedicalHistory struct {
	Base
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	Allergies          string    `db:"allergies" json:"allergies"`
	PreviousTreatments string    `db:"previous_treatments" json:"previous_treatments"`
	ChronicConditions  string    `db:"chronic_conditions" json:"chronic_conditions"`
	Medications        string    `db:"medications" json:"medications"`
	Notes              string    `db:"notes" json:"notes"`
}

type MedicalHistoryRequest struct {
	Allergies          *string `json:"allergies"`
	PreviousTreatments *string `json:"previous_treatments"`
	ChronicConditions  *string `json:"chronic_conditions"`
	Medications        *string `json:"medications"`
	Notes              *string `json:"notes"`
}

func (r *MedicalHistoryRequest) Apply(h *MedicalHistory) {
	if r.Allergies != nil {
		h.Allergies = *r.Allergies
	}
	if r.PreviousTreatments != nil {
		h.PreviousTreatments = *r.PreviousTreatments
	}
	if r.ChronicConditions != nil {
		h.ChronicConditions = *r.ChronicConditions
	}
	if r.Medications != nil {
		h.Medications = *r.Medications
	}
	if r.Notes != nil {
		h.Notes = *r.Notes
	}
}
