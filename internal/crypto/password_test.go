package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSalt(t *testing.T) {
	first, err := GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, first, SaltSize)

	second, err := GenerateSalt()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHashPassword(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	tests := []struct {
		name     string
		errMsg   string
		password string
		salt     []byte
		wantErr  bool
	}{
		{name: "successful hash", password: "correct horse", salt: salt},
		{name: "empty password", password: "", salt: salt, wantErr: true, errMsg: "password cannot be empty"},
		{name: "empty salt", password: "correct horse", salt: nil, wantErr: true, errMsg: "salt cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed, err := HashPassword(tt.password, tt.salt)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Empty(t, hashed)
				return
			}
			require.NoError(t, err)
			assert.Regexp(t, "^[a-f0-9]{64}$", hashed)
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	hashed, err := HashPassword("correct horse", salt)
	require.NoError(t, err)

	otherSalt, err := GenerateSalt()
	require.NoError(t, err)

	assert.True(t, VerifyPassword("correct horse", salt, hashed))
	assert.False(t, VerifyPassword("wrong horse", salt, hashed))
	assert.False(t, VerifyPassword("correct horse", otherSalt, hashed))
	assert.False(t, VerifyPassword("", salt, hashed))
	assert.False(t, VerifyPassword("correct horse", salt, "not-hex"))
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("storage-node-01")

	key, err := DeriveKey("at rest passphrase", salt)
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	again, err := DeriveKey("at rest passphrase", salt)
	require.NoError(t, err)
	assert.Equal(t, key, again, "derivation is deterministic")

	_, err = NewCipher(key)
	require.NoError(t, err)

	_, err = DeriveKey("", salt)
	assert.Error(t, err)
}
