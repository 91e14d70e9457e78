package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
	"github.com/communitymapper/community-mapper/internal/validation"
)

type personRequest struct {
	Name       string `json:"name" validate:"notblank,max=200"`
	Context    string `json:"context" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Importance int    `json:"importance" validate:"omitempty,score"`
	Color      string `json:"color,omitempty" validate:"omitempty,hexrgb"`
}

func valid() personRequest {
	return personRequest{Name: "Ana", Context: "social"}
}

func TestValidator_Success(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(valid()))

	req := valid()
	req.Importance = 5
	req.Color = "#00ff00"
	req.Email = "ana@example.com"
	assert.NoError(t, v.Validate(req))
}

func TestValidator_Errors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name   string
		mutate func(*personRequest)
		field  string
		msg    string
	}{
		{"blank name", func(r *personRequest) { r.Name = "   " }, "name", "is required"},
		{"missing context", func(r *personRequest) { r.Context = "" }, "context", "is required"},
		{"bad email", func(r *personRequest) { r.Email = "nope" }, "email", "must be a valid email address"},
		{"score too high", func(r *personRequest) { r.Importance = 6 }, "importance", "must be between 1 and 5"},
		{"score negative", func(r *personRequest) { r.Importance = -1 }, "importance", "must be between 1 and 5"},
		{"bad color", func(r *personRequest) { r.Color = "red" }, "color", "must be a color like #1A2B3C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)

			err := v.Validate(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var derr *domainerrors.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, 400, derr.HTTPStatus())

			details, ok := derr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.msg, details[tt.field])
		})
	}
}

func TestValidator_ReportsEveryFieldWithJSONNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(personRequest{})
	require.Error(t, err)
	assert.Equal(t, "validation failed: context is required; name is required", err.Error())
	assert.NotContains(t, err.Error(), "Name")
}
