package auth

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"contacts-api/internal/logging"
	"contacts-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrUsernameRequired   = errors.New("username is required")
	// ErrVerificationFailed means an email token decoded fine but no such
	// user exists.
	ErrVerificationFailed = errors.New("verification error")
	ErrAlreadyConfirmed   = errors.New("email already confirmed")
)

// TokenPair is the access/refresh pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service orchestrates signup, login, token refresh, logout and
// current-user resolution.
type Service struct {
	users      UserStore
	cache      SessionCache
	tokens     TokenService
	mailer     EmailSender
	logger     *logging.Logger
	bcryptCost int
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(
	users UserStore,
	cache SessionCache,
	tokens TokenService,
	mailer EmailSender,
	logger *logging.Logger,
	bcryptCost int,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Service {
	return &Service{
		users:      users,
		cache:      cache,
		tokens:     tokens,
		mailer:     mailer,
		logger:     logger,
		bcryptCost: bcryptCost,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Signup creates a new unconfirmed user and dispatches a verification email.
// Email dispatch is best-effort and never fails the signup.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*user.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, username, email, passwordHash, gravatarURL(email))
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.dispatchVerificationEmail(newUser.Email, newUser.Username)

	return newUser, nil
}

// Login verifies credentials and issues a fresh access/refresh pair,
// persisting the refresh token on the user row.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(password, existing.Password) {
		return nil, ErrInvalidCredentials
	}

	if !existing.Confirmed {
		return nil, ErrEmailNotConfirmed
	}

	return s.issueTokens(ctx, existing)
}

// Current resolves the authenticated user for an access token: cache hit
// first, store fallback populating the cache on a miss.
func (s *Service) Current(ctx context.Context, accessToken string) (*user.User, error) {
	email, err := s.tokens.AccessSubject(accessToken)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, email)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.cache.Set(ctx, email, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

// Refresh exchanges a valid refresh token for a new access/refresh pair.
// A token that does not match the one stored on the user row has been
// superseded or revoked; the stored token is cleared and the caller must
// log in again.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	email, err := s.tokens.RefreshSubject(refreshToken)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if existing.RefreshToken == nil || *existing.RefreshToken != refreshToken {
		if err := s.users.UpdateRefreshToken(ctx, existing.ID, nil); err != nil {
			return nil, fmt.Errorf("failed to clear refresh token: %w", err)
		}
		if err := s.cache.Invalidate(ctx, email); err != nil {
			return nil, err
		}
		return nil, ErrInvalidToken
	}

	return s.issueTokens(ctx, existing)
}

// Logout revokes the user's stored refresh token; any previously issued
// refresh token becomes permanently unusable.
func (s *Service) Logout(ctx context.Context, u *user.User) error {
	if err := s.users.UpdateRefreshToken(ctx, u.ID, nil); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return s.cache.Invalidate(ctx, u.Email)
}

// ConfirmEmail consumes an email-verification token and flips the user's
// confirmed flag. Confirmation is idempotent.
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	email, err := s.tokens.EmailSubject(token)
	if err != nil {
		return err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrVerificationFailed
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existing.Confirmed {
		return ErrAlreadyConfirmed
	}

	if err := s.users.ConfirmEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}

	return s.cache.Invalidate(ctx, email)
}

// ResendVerification re-sends the verification email. It never reveals
// whether the address is registered.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existing.Confirmed {
		return ErrAlreadyConfirmed
	}

	s.dispatchVerificationEmail(existing.Email, existing.Username)

	return nil
}

// UpdateAvatar sets the user's avatar URL and drops the cached snapshot.
func (s *Service) UpdateAvatar(ctx context.Context, email, url string) (*user.User, error) {
	updated, err := s.users.UpdateAvatar(ctx, email, url)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, email); err != nil {
		return nil, err
	}

	return updated, nil
}

// issueTokens creates an access/refresh pair and overwrites the stored
// refresh token. The cached snapshot is invalidated because it embeds the
// token field.
func (s *Service) issueTokens(ctx context.Context, u *user.User) (*TokenPair, error) {
	accessToken, err := s.tokens.CreateAccessToken(u.Email, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokens.CreateRefreshToken(u.Email, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	if err := s.users.UpdateRefreshToken(ctx, u.ID, &refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	if err := s.cache.Invalidate(ctx, u.Email); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// dispatchVerificationEmail mints an email token and sends it in the
// background; failures are logged and swallowed.
func (s *Service) dispatchVerificationEmail(email, username string) {
	token, err := s.tokens.CreateEmailToken(email)
	if err != nil {
		s.logger.Warn("failed to create email token", "email", email, "error", err)
		return
	}

	go func() {
		emailCtx := context.Background()
		if err := s.mailer.SendVerificationEmail(emailCtx, email, username, token); err != nil {
			s.logger.Warn("failed to send verification email", "email", email, "error", err)
		}
	}()
}

// gravatarURL builds the avatar URL assigned to new users.
func gravatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", md5.Sum([]byte(normalized)))
}
