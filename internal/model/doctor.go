package model

import "github.com/google/uuid"

type Doctor struct {
	Base
	Name           string `db:"name" json:"name"`
	Specialization string `db:"specialization" json:"specialization"`
	Email          string `db:"email" json:"email"`
	PasswordHash   string `db:"password_hash" json:"-"`
}

type CreateDoctorRequest struct {
	Name           string `json:"name" binding:"required"`
	Specialization string `json:"specialization"`
	Email          string `json:"email" binding:"omitempty,email"`
	Password       string `json:"password"`
}

type DoctorRating struct {
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DoctorName    string    `db:"doctor_name" json:"doctor_name"`
	AverageRating float64   `db:"average_rating" json:"average_rating"`
	TotalReviews  int       `db:"total_reviews" json:"total_reviews"`
}
