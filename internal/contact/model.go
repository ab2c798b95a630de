package contact

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	DateOfBirth time.Time `json:"date_of_birth"`
	UserID      uuid.UUID `json:"-"`
}
