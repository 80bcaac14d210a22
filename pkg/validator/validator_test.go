package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type registerPayload struct {
	Name     string `validate:"required,min=2"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=4"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(&registerPayload{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
}

func TestValidateStructCollectsFailures(t *testing.T) {
	err := ValidateStruct(&registerPayload{Email: "not-an-email"})
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, ve, 3)

	fields := make([]string, 0, len(ve))
	for _, failure := range ve {
		fields = append(fields, failure.Field)
	}
	require.Contains(t, fields, "Name")
	require.Contains(t, fields, "Email")
	require.Contains(t, fields, "Password")
}
