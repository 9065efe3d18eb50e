package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	notFound := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	wrapped := fmt.Errorf("transition: %w", NewConflict("stale", nil))
	assert.Equal(t, CodeConflict, ToDomainError(wrapped).Code)

	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestLifecycleErrors(t *testing.T) {
	cause := errors.New("typed detail")
	err := NewInvalidTransition("completed", "confirmed", "provider_confirms", cause)

	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus)
	assert.Equal(t, "completed", domainErr.Details["current"])
	assert.ErrorIs(t, err, cause)

	assert.True(t, IsCode(NewActionNotPermitted("pay", "pending", nil), CodeActionNotPermitted))
	assert.True(t, IsCode(NewCancellationWindowClosed(nil, nil), CodeCancellationWindowClosed))
	assert.True(t, IsCode(NewMalformedAppointment("bad", nil), CodeMalformedAppointment))
	assert.False(t, IsCode(errors.New("plain"), CodeInternal))
}
