package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordlane/cloudcrm/internal/common"
)

func TestHashPassword_SaltedAndVerifiable(t *testing.T) {
	h1, err := HashPassword("s3cret!")
	require.NoError(t, err)
	h2, err := HashPassword("s3cret!")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "each digest gets its own salt")
	assert.True(t, VerifyPassword("s3cret!", h1))
	assert.True(t, VerifyPassword("s3cret!", h2))
	assert.False(t, VerifyPassword("S3cret!", h1))
}

func TestVerifyPassword_CorruptDigest(t *testing.T) {
	h, err := HashPassword("pw")
	require.NoError(t, err)

	assert.False(t, VerifyPassword("pw", h[:len(h)-5]))
	assert.False(t, VerifyPassword("pw", "not-a-bcrypt-digest"))
	assert.False(t, VerifyPassword("pw", ""))
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, common.ErrBadRequest)
}
