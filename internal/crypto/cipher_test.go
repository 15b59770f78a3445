package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) (*Cipher, []byte) {
	t.Helper()
	key := make([]byte, KeySize)
	_, _ = rand.Read(key)
	c, err := NewCipher(key)
	require.NoError(t, err)
	return c, key
}

func TestNewCipher(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		key     []byte
		wantErr bool
	}{
		{name: "valid key", key: make([]byte, 32)},
		{name: "short key", key: make([]byte, 16), wantErr: true, errMsg: "encryption key must be 32 bytes"},
		{name: "nil key", key: nil, wantErr: true, errMsg: "encryption key must be 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCipher(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestCipher_SealOpen(t *testing.T) {
	c, _ := newTestCipher(t)

	large := make([]byte, 1<<16)
	_, _ = rand.Read(large)

	testCases := map[string][]byte{
		"text":    []byte("Hello, World!"),
		"unicode": []byte("Привет, мир! 🌍"),
		"empty":   {},
		"large":   large,
	}

	for name, plaintext := range testCases {
		t.Run(name, func(t *testing.T) {
			sealed, err := c.Seal(plaintext)
			require.NoError(t, err)
			// nonce + ciphertext + auth_tag
			assert.Len(t, sealed, NonceSize+len(plaintext)+16)

			opened, err := c.Open(sealed)
			require.NoError(t, err)
			assert.Equal(t, plaintext, opened)
		})
	}
}

func TestCipher_Randomness(t *testing.T) {
	c, _ := newTestCipher(t)
	plaintext := []byte("same data")

	first, err := c.Seal(plaintext)
	require.NoError(t, err)
	second, err := c.Seal(plaintext)
	require.NoError(t, err)

	// одинаковые данные шифруются по-разному из-за случайного nonce
	assert.NotEqual(t, first, second)
}

func TestCipher_OpenErrors(t *testing.T) {
	c, _ := newTestCipher(t)
	other, _ := newTestCipher(t)

	sealed, err := c.Seal([]byte("test message"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		errMsg string
		data   []byte
		cipher *Cipher
	}{
		{name: "too short", data: make([]byte, 5), cipher: c, errMsg: "encrypted data too short"},
		{name: "wrong key", data: sealed, cipher: other, errMsg: "failed to decrypt"},
		{name: "corrupted", data: sealed[:len(sealed)-1], cipher: c, errMsg: "failed to decrypt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened, err := tt.cipher.Open(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Nil(t, opened)
		})
	}
}
