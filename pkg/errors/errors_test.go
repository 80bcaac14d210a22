package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageFormatting(t *testing.T) {
	base := New("TEST_CODE", "something broke", http.StatusTeapot)
	require.Equal(t, "something broke", base.Error())

	wrapped := base.WithInternal(fmt.Errorf("root cause"))
	require.Equal(t, "something broke: root cause", wrapped.Error())
	// The original must stay untouched.
	require.Nil(t, base.Internal)
}

func TestFromErrorPreservesAppErrors(t *testing.T) {
	err := fmt.Errorf("handler: %w", ErrCredentialsExpired)

	appErr := FromError(err)
	require.Equal(t, ErrCredentialsExpired.Code, appErr.Code)
	require.Equal(t, http.StatusForbidden, appErr.StatusCode)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("driver: connection reset"))
	require.Equal(t, ErrInternalServer.Code, appErr.Code)
	require.EqualError(t, appErr.Internal, "driver: connection reset")
}

func TestAuthTaxonomyStaysDistinguishable(t *testing.T) {
	codes := map[string]struct{}{}
	for _, e := range []*AppError{
		ErrMissingCredentials,
		ErrCredentialsExpired,
		ErrInvalidToken,
		ErrInternalAuthFailure,
		ErrInvalidCredentials,
		ErrForbidden,
	} {
		_, dup := codes[e.Code]
		require.False(t, dup, "duplicate error code %s", e.Code)
		codes[e.Code] = struct{}{}
	}
}

func TestWrapAttachesInternal(t *testing.T) {
	cause := errors.New("boom")
	appErr := Wrap(cause, "operation failed")
	require.True(t, errors.Is(appErr, cause))
	require.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
}
