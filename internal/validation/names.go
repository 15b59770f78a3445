package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/iudanet/gophdir/internal/models"
)

// UserIDPattern определяет допустимый формат user id
// Латинские буквы, цифры, '_', '-', '.'; длина 1-64 символа
var UserIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

const (
	// MaxFilenameLen максимальная длина имени файла в байтах
	MaxFilenameLen = 255
	// MinPasswordLen минимальная длина пароля пользователя
	MinPasswordLen = 8
)

// ValidateUserID проверяет, что user id пригоден для идентификатора файла
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id cannot be empty", models.ErrBadRequest)
	}

	if !UserIDPattern.MatchString(userID) || userID == "." || userID == ".." {
		return fmt.Errorf("%w: user id %q can only contain letters, numbers, '_', '-' and '.' (max 64)", models.ErrBadRequest, userID)
	}

	return nil
}

// ValidateFilename проверяет имя файла
// Запрещены разделитель идентификатора, '|' (разделитель токена) и управляющие символы
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: filename cannot be empty", models.ErrBadRequest)
	}

	if len(filename) > MaxFilenameLen {
		return fmt.Errorf("%w: filename must not exceed %d bytes", models.ErrBadRequest, MaxFilenameLen)
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: filename %q is reserved", models.ErrBadRequest, filename)
	}

	if strings.Contains(filename, models.FileIDSeparator) || strings.Contains(filename, "|") {
		return fmt.Errorf("%w: filename cannot contain %q or '|'", models.ErrBadRequest, models.FileIDSeparator)
	}

	if strings.IndexFunc(filename, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: filename cannot contain control characters", models.ErrBadRequest)
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", models.ErrBadRequest)
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", models.ErrBadRequest, MinPasswordLen)
	}

	return nil
}
