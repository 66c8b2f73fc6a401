package models

import "time"

type Role string // Роль пользователя

const (
	RoleClient   Role = "client"   // Владелец автомобиля
	RoleProvider Role = "provider" // Автосервис или продавец запчастей
)

// User представляет зарегистрированного пользователя.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterRequest - тело запроса регистрации.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// LoginRequest - тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse - выданный токен доступа.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Principal - аутентифицированный пользователь запроса.
type Principal struct {
	UserID string
	Role   Role
}

// ValidRole проверяет роль.
func ValidRole(r Role) bool {
	return r == RoleClient || r == RoleProvider
}
