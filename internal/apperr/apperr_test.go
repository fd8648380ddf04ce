package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusText(t *testing.T) {
	assert.Equal(t, "fail", NotFound("x").StatusText())
	assert.Equal(t, "fail", Forbidden("x").StatusText())
	assert.Equal(t, "error", Internal("x", nil).StatusText())
}

func TestValidationMessageIsStable(t *testing.T) {
	err := Validation(map[string]string{
		"price": "A tour must have a price",
		"name":  "A tour must have a name",
	})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "Invalid input data. A tour must have a name. A tour must have a price", err.Message)
	assert.Len(t, err.Fields, 2)
}

func TestAsThroughWrapping(t *testing.T) {
	cause := errors.New("smtp down")
	wrapped := fmt.Errorf("forgot password: %w", Internal("There was an error sending the email. Try again later!", cause))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindServer, e.Kind)
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, Is(wrapped, KindServer))
	assert.False(t, Is(errors.New("plain"), KindServer))
}
