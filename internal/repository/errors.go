package repository

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrSlotTaken     = errors.New("time slot already booked")
	ErrNoteExists    = errors.New("doctor note already exists")
	ErrDuplicate     = errors.New("duplicate record")
	ErrHasDependents = errors.New("record still referenced")
)
