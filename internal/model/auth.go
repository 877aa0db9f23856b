package model

import (
	"errors"
)

type UserType string

const (
	UserTypePatient UserType = "patient"
	UserTypeDoctor  UserType = "doctor"
)

type LoginRequest struct {
	Email    string   `json:"email" binding:"required"`
	Password string   `json:"password" binding:"required"`
	UserType UserType `json:"user_type" binding:"required,oneof=patient doctor"`
}

type LoginResponse struct {
	UserType    UserType    `json:"user_type"`
	User        interface{} `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
}

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)
