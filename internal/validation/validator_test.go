package validation

import (
	"testing"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email  string               `json:"email" validate:"required,email"`
	Reason string               `json:"reason" validate:"required,max=5"`
	Status models.DisputeStatus `json:"status" validate:"omitempty,dispute_status"`
	ID     string               `validate:"omitempty,uuid"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Email: "a@b.test", Reason: "late", Status: models.DisputeStatusOpen}))

	err := Struct(sample{Email: "nope", Reason: "far too long", Status: "pending", ID: "x"})
	require.Error(t, err)

	de, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindValidation, de.Kind)
	assert.Equal(t, map[string]string{
		"email":  "must be a valid email address",
		"reason": "must be at most 5 characters",
		"status": "must be a valid dispute status",
		"ID":     "must be a valid UUID",
	}, de.Fields)
}

func TestStruct_Required(t *testing.T) {
	err := Struct(sample{})
	de, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "is required", de.Fields["email"])
	assert.Equal(t, "is required", de.Fields["reason"])
}
