package errors_test

import (
	"fmt"
	"testing"

	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	ve := ierrors.NewValidationError(nil,
		ierrors.FieldError{Field: "username", Message: "already taken"},
		ierrors.FieldError{Field: "email", Message: "already taken"},
	)

	t.Run("matches sentinel", func(t *testing.T) {
		wrapped := fmt.Errorf("register: %w", ve)
		require.ErrorIs(t, wrapped, ierrors.ErrValidation)
	})

	t.Run("fields sorted", func(t *testing.T) {
		require.Equal(t, "email", ve.Fields[0].Field)
		require.Equal(t, []string{"already taken"}, ve.Field("username"))
		require.Nil(t, ve.Field("password"))
	})

	t.Run("message per field", func(t *testing.T) {
		require.Equal(t, "email: already taken\nusername: already taken", ierrors.Message(ve))
	})
}

func TestMessage(t *testing.T) {
	require.Equal(t, "", ierrors.Message(nil))
	require.Contains(t, ierrors.Message(ierrors.Wrapf(ierrors.ErrSessionExpired, "refresh")), "sesión expiró")
	require.Contains(t, ierrors.Message(ierrors.ErrEmptyRoster), "no tiene alumnos")
	require.Equal(t, "boom", ierrors.Message(fmt.Errorf("boom")))
}

func TestWrapf(t *testing.T) {
	require.NoError(t, ierrors.Wrapf(nil, "noop"))
	err := ierrors.Wrapf(ierrors.ErrNotFound, "sesion %s", "s-1")
	require.EqualError(t, err, "sesion s-1: not found")
	require.True(t, ierrors.Is(err, ierrors.ErrNotFound))
}
