package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"contacts-api/internal/user"
)

// TokenService signs and verifies the three token kinds. The concrete
// implementation is JWTService.
type TokenService interface {
	CreateAccessToken(email string, ttl time.Duration) (string, error)
	CreateRefreshToken(email string, ttl time.Duration) (string, error)
	CreateEmailToken(email string) (string, error)
	AccessSubject(token string) (string, error)
	RefreshSubject(token string) (string, error)
	EmailSubject(token string) (string, error)
}

// UserStore is the persistent user storage behind the gateway. The concrete
// implementation is user.Repository.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash, avatar string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error
	ConfirmEmail(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email, url string) (*user.User, error)
}

// EmailSender dispatches verification mail. The concrete implementation is
// email.Service.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, toEmail, username, token string) error
}
