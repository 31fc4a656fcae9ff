package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("dispute not found"), http.StatusNotFound},
		{"forbidden", Forbidden("not a party"), http.StatusForbidden},
		{"conflict", Conflict("duplicate"), http.StatusConflict},
		{"invalid state", InvalidState("finalized"), http.StatusBadRequest},
		{"validation", Validation("bad input", map[string]string{"reason": "required"}), http.StatusBadRequest},
		{"unauthorized", Unauthorized("missing key"), http.StatusUnauthorized},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError},
		{"wrapped domain error", fmt.Errorf("resolve: %w", InvalidState("finalized")), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("keeps domain errors", func(t *testing.T) {
		original := Conflict("Dispute already exists for this transaction")
		assert.Same(t, original, Wrap(original, "create dispute"))
	})

	t.Run("wraps infrastructure failures", func(t *testing.T) {
		cause := stderrors.New("connection reset")
		err := Wrap(cause, "failed to load dispute")

		assert.True(t, Is(err, KindInfrastructure))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "failed to load dispute")
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "noop"))
	})
}
