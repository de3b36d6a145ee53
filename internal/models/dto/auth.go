package dto

import "github.com/pgpay/pgpay-backend/internal/models"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	Token   string              `json:"token"`
	User    models.User         `json:"user"`
	IsAdmin bool                `json:"is_admin"`
	Grants  []models.Permission `json:"grants,omitempty"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type ResendVerificationResponse struct {
	AttemptsRemaining int `json:"attempts_remaining"`
}
