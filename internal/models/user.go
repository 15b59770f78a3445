package models

import "time"

// User представляет учетную запись в сервисе пользователей
type User struct {
	CreatedAt    time.Time `json:"created_at"`    // время создания
	UpdatedAt    time.Time `json:"updated_at"`    // время последнего обновления
	ID           string    `json:"id"`            // user id, он же владелец файлов
	FullName     string    `json:"full_name"`     // отображаемое имя
	Email        string    `json:"email"`         // контактный email
	PasswordHash string    `json:"-"`             // argon2id хеш пароля (base64)
	Salt         string    `json:"-"`             // base64 соль (16 байт)
}

// UserDeletedAnnouncement ключ сообщения на шине об удалении пользователя.
const UserDeletedAnnouncement = "USER_DELETED"
