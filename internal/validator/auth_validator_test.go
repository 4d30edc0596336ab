package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Asha@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", got)

	for _, bad := range []string{"", "asha", "asha@", "a b@example.com", "asha@example"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}

func TestValidateOTP(t *testing.T) {
	assert.NoError(t, ValidateOTP("012345"))
	assert.ErrorIs(t, ValidateOTP("12345"), ErrInvalidOTP)
	assert.ErrorIs(t, ValidateOTP("12a456"), ErrInvalidOTP)
}
