package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	errTaken := errors.New("already taken")

	t.Run("field error", func(t *testing.T) {
		err := NewFieldValidationError("email", errTaken)
		assert.Equal(t, "already taken", err.Error())
		assert.True(t, errors.Is(err, errTaken))
		assert.True(t, errors.Is(errors.Wrap(err, "creating student"), errTaken))

		vErr, ok := AsValidationError(errors.Wrap(err, "creating student"))
		require.True(t, ok)
		assert.Equal(t, []FieldError{{Field: "email", Error: "already taken"}}, vErr.Fields)
	})

	t.Run("fields only", func(t *testing.T) {
		err := NewValidationError(nil, FieldError{Field: "name", Error: "name is required"})
		assert.Equal(t, "name: name is required", err.Error())
		assert.False(t, errors.Is(err, errTaken))
		assert.Equal(t, err, errors.Cause(err))
	})

	t.Run("not a validation error", func(t *testing.T) {
		_, ok := AsValidationError(errors.Wrap(errTaken, "saving"))
		assert.False(t, ok)
	})
}
