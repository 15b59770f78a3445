package api

import "time"

// CreateUserRequest запрос на создание учетной записи
type CreateUserRequest struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest запрос на изменение учетной записи.
// Пустые поля не меняются.
type UpdateUserRequest struct {
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	NewPassword string `json:"new_password,omitempty"`
}

// UserResponse публичное представление учетной записи
type UserResponse struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
}
