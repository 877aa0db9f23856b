package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Rating   int    `json:"rating" validate:"min=1,max=5"`
	UserType string `json:"user_type" validate:"oneof=patient doctor"`
	Internal string `json:"-" validate:"required"`
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	err := v.Struct(sample{Email: "a@b.com", Rating: 5, UserType: "doctor", Internal: "x"})
	assert.NoError(t, err)
}

func TestMessage(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		in   sample
		want string
	}{
		{
			name: "required uses json name",
			in:   sample{Rating: 1, UserType: "patient", Internal: "x"},
			want: "email is required",
		},
		{
			name: "email format",
			in:   sample{Email: "nope", Rating: 1, UserType: "patient", Internal: "x"},
			want: "email must be a valid email",
		},
		{
			name: "max bound",
			in:   sample{Email: "a@b.com", Rating: 6, UserType: "patient", Internal: "x"},
			want: "rating must be at most 5",
		},
		{
			name: "oneof",
			in:   sample{Email: "a@b.com", Rating: 1, UserType: "admin", Internal: "x"},
			want: "user_type must be one of [patient doctor]",
		},
		{
			name: "dash falls back to go name",
			in:   sample{Email: "a@b.com", Rating: 1, UserType: "patient"},
			want: "Internal is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(v.Struct(tt.in)))
		})
	}
}

func TestMessage_JoinsAndPassesThrough(t *testing.T) {
	err := New().Struct(sample{Rating: 0, UserType: "patient", Internal: "x"})
	assert.Equal(t, "email is required; rating must be at least 1", Message(err))

	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}

func TestVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var(3, "min=1,max=5"))
	assert.Error(t, v.Var(0, "min=1,max=5"))
}
