package user

import (
	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Password     string    `json:"-"` // bcrypt hash, never exposed
	Confirmed    bool      `json:"confirmed"`
	Avatar       string    `json:"avatar,omitempty"`
	RefreshToken *string   `json:"-"`
}
