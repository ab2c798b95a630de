package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table model.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Username     string    `bun:"username,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	Password     string    `bun:"password,notnull"`
	Confirmed    bool      `bun:"confirmed,notnull,default:false"`
	Avatar       string    `bun:"avatar,nullzero"`
	RefreshToken *string   `bun:"refresh_token"`
}

// Contact is the contacts table model. Email and phone are unique across
// all contacts, not just per owner.
type Contact struct {
	bun.BaseModel `bun:"table:contacts,alias:c"`

	ID          int64     `bun:"id,pk,autoincrement"`
	FirstName   string    `bun:"first_name,notnull"`
	LastName    string    `bun:"last_name,notnull"`
	Email       string    `bun:"email,notnull,unique"`
	Phone       string    `bun:"phone,notnull,unique"`
	DateOfBirth time.Time `bun:"date_of_birth,type:date,notnull"`
	UserID      uuid.UUID `bun:"user_id,type:uuid,notnull"`
}
