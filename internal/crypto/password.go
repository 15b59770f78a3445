package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
	// SaltSize - размер соли в байтах
	SaltSize = 16
)

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword вычисляет hex-encoded argon2id хеш пароля с солью salt
func HashPassword(password string, salt []byte) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(salt) == 0 {
		return "", fmt.Errorf("salt cannot be empty")
	}
	key := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
	return hex.EncodeToString(key), nil
}

// VerifyPassword сравнивает пароль с сохраненным хешем за постоянное время.
// Возвращает false и при несовпадении, и при поврежденном хеше.
func VerifyPassword(password string, salt []byte, hashed string) bool {
	expected, err := hex.DecodeString(hashed)
	if err != nil || len(expected) != Argon2KeyLen || password == "" {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// DeriveKey получает 32-байтовый ключ шифрования из секретной фразы.
// Для одной и той же фразы и соли ключ всегда одинаков.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt cannot be empty")
	}
	return argon2.IDKey([]byte(passphrase), salt, Argon2Time, Argon2Memory, Argon2Threads, KeySize), nil
}
