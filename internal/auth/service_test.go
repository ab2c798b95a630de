package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contacts-api/internal/logging"
	"contacts-api/internal/user"
)

// fakeUserStore is an in-memory UserStore keyed by email. It counts
// GetByEmail calls so tests can observe cache hits and misses.
type fakeUserStore struct {
	mu       sync.Mutex
	users    map[string]*user.User
	getCalls int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*user.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, username, email, passwordHash, avatar string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; ok {
		return nil, user.ErrDuplicateEmail
	}

	created := &user.User{
		ID:       uuid.New(),
		Username: username,
		Email:    email,
		Password: passwordHash,
		Avatar:   avatar,
	}
	s.users[email] = created

	snapshot := *created
	return &snapshot, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++
	existing, ok := s.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}

	snapshot := *existing
	return &snapshot, nil
}

func (s *fakeUserStore) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.ID == userID {
			existing.RefreshToken = token
			return nil
		}
	}
	return user.ErrNotFound
}

func (s *fakeUserStore) ConfirmEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[email]
	if !ok {
		return user.ErrNotFound
	}
	existing.Confirmed = true
	return nil
}

func (s *fakeUserStore) UpdateAvatar(ctx context.Context, email, url string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	existing.Avatar = url

	snapshot := *existing
	return &snapshot, nil
}

func (s *fakeUserStore) getByEmailCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func (s *fakeUserStore) storedRefreshToken(t *testing.T, email string) *string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[email]
	require.True(t, ok, "user %s not seeded", email)
	return existing.RefreshToken
}

type sentEmail struct {
	to       string
	username string
	token    string
}

// fakeMailer delivers sent emails over a channel because dispatch runs in a
// background goroutine.
type fakeMailer struct {
	sent chan sentEmail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan sentEmail, 8)}
}

func (m *fakeMailer) SendVerificationEmail(ctx context.Context, toEmail, username, token string) error {
	m.sent <- sentEmail{to: toEmail, username: username, token: token}
	return nil
}

func (m *fakeMailer) waitForEmail(t *testing.T) sentEmail {
	t.Helper()
	select {
	case msg := <-m.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verification email")
		return sentEmail{}
	}
}

type authFixture struct {
	service *Service
	store   *fakeUserStore
	cache   *MemorySessionCache
	tokens  *JWTService
	mailer  *fakeMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	tokens := newTestJWTService(t)
	store := newFakeUserStore()
	cache := NewMemorySessionCache()
	mailer := newFakeMailer()
	logger := logging.NewLogger(true)

	service := NewService(store, cache, tokens, mailer, logger, 4, 15*time.Minute, 7*24*time.Hour)

	return &authFixture{
		service: service,
		store:   store,
		cache:   cache,
		tokens:  tokens,
		mailer:  mailer,
	}
}

// seedUser registers a user directly in the store with a real bcrypt hash.
func (f *authFixture) seedUser(t *testing.T, email, password string, confirmed bool) *user.User {
	t.Helper()

	hash, err := HashPassword(password, 4)
	require.NoError(t, err)

	seeded, err := f.store.Create(context.Background(), "tester", email, hash, "")
	require.NoError(t, err)

	if confirmed {
		require.NoError(t, f.store.ConfirmEmail(context.Background(), email))
		seeded.Confirmed = true
	}
	return seeded
}

func TestSignup(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	created, err := f.service.Signup(ctx, "deadpool", "deadpool@example.com", "supersecret")
	require.NoError(t, err)

	assert.Equal(t, "deadpool", created.Username)
	assert.Equal(t, "deadpool@example.com", created.Email)
	assert.False(t, created.Confirmed)
	assert.Contains(t, created.Avatar, "gravatar.com/avatar/")
	assert.NotEqual(t, "supersecret", created.Password)

	msg := f.mailer.waitForEmail(t)
	assert.Equal(t, "deadpool@example.com", msg.to)
	assert.Equal(t, "deadpool", msg.username)

	// The emailed token must confirm the account it was minted for.
	subject, err := f.tokens.EmailSubject(msg.token)
	require.NoError(t, err)
	assert.Equal(t, "deadpool@example.com", subject)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, "deadpool", "deadpool@example.com", "supersecret")
	require.NoError(t, err)

	_, err = f.service.Signup(ctx, "impostor", "deadpool@example.com", "othersecret")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestSignup_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
		password string
		want     error
	}{
		{"missing username", "", "a@example.com", "supersecret", ErrUsernameRequired},
		{"missing email", "deadpool", "", "supersecret", ErrEmailRequired},
		{"bad email", "deadpool", "not-an-email", "supersecret", ErrInvalidEmailFormat},
		{"missing password", "deadpool", "a@example.com", "", ErrPasswordRequired},
		{"short password", "deadpool", "a@example.com", "short", ErrPasswordTooShort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Signup(ctx, tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	pair, err := f.service.Login(ctx, "deadpool@example.com", "supersecret")
	require.NoError(t, err)

	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	subject, err := f.tokens.AccessSubject(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "deadpool@example.com", subject)

	stored := f.store.storedRefreshToken(t, "deadpool@example.com")
	require.NotNil(t, stored)
	assert.Equal(t, pair.RefreshToken, *stored)
}

func TestLogin_Failures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)
	f.seedUser(t, "pending@example.com", "supersecret", false)

	_, err := f.service.Login(ctx, "nobody@example.com", "supersecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(ctx, "deadpool@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(ctx, "pending@example.com", "supersecret")
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)
}

func TestCurrent_CacheMissThenHit(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	pair, err := f.service.Login(ctx, "deadpool@example.com", "supersecret")
	require.NoError(t, err)

	callsBefore := f.store.getByEmailCalls()

	first, err := f.service.Current(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "deadpool@example.com", first.Email)
	assert.Equal(t, callsBefore+1, f.store.getByEmailCalls())

	// Second resolution is served from the cache.
	second, err := f.service.Current(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, callsBefore+1, f.store.getByEmailCalls())
}

func TestCurrent_RejectsRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	pair, err := f.service.Login(ctx, "deadpool@example.com", "supersecret")
	require.NoError(t, err)

	_, err = f.service.Current(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestCurrent_UnknownSubject(t *testing.T) {
	f := newAuthFixture(t)

	token, err := f.tokens.CreateAccessToken("ghost@example.com", 0)
	require.NoError(t, err)

	_, err = f.service.Current(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_RotatesStoredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	pair, err := f.service.Login(ctx, "deadpool@example.com", "supersecret")
	require.NoError(t, err)

	rotated, err := f.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)

	stored := f.store.storedRefreshToken(t, "deadpool@example.com")
	require.NotNil(t, stored)
	assert.Equal(t, rotated.RefreshToken, *stored)
}

func TestRefresh_MismatchClearsStoredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	_, err := f.service.Login(ctx, "deadpool@example.com", "supersecret")
	require.NoError(t, err)

	// A structurally valid refresh token that is not the stored one: the
	// bearer presented a superseded or forged token.
	strayToken, err := f.tokens.CreateRefreshToken("deadpool@example.com", time.Hour)
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, strayToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The real token was revoked along with the stray one.
	assert.Nil(t, f.store.storedRefreshToken(t, "deadpool@example.com"))
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	pair, err := f.service.Login(ctx, "deadpool@example.com", "supersecret")
	require.NoError(t, err)

	current, err := f.service.Current(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, current))
	assert.Nil(t, f.store.storedRefreshToken(t, "deadpool@example.com"))

	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConfirmEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", false)

	// Cache an unconfirmed snapshot so a stale entry would be observable.
	seeded, err := f.store.GetByEmail(ctx, "deadpool@example.com")
	require.NoError(t, err)
	require.NoError(t, f.cache.Set(ctx, seeded.Email, seeded))

	token, err := f.tokens.CreateEmailToken("deadpool@example.com")
	require.NoError(t, err)

	require.NoError(t, f.service.ConfirmEmail(ctx, token))

	// Confirmation dropped the cached snapshot.
	_, err = f.cache.Get(ctx, "deadpool@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)

	accessToken, err := f.tokens.CreateAccessToken("deadpool@example.com", 0)
	require.NoError(t, err)
	current, err := f.service.Current(ctx, accessToken)
	require.NoError(t, err)
	assert.True(t, current.Confirmed)
}

func TestConfirmEmail_AlreadyConfirmed(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	token, err := f.tokens.CreateEmailToken("deadpool@example.com")
	require.NoError(t, err)

	err = f.service.ConfirmEmail(ctx, token)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConfirmEmail_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	token, err := f.tokens.CreateEmailToken("ghost@example.com")
	require.NoError(t, err)

	err = f.service.ConfirmEmail(context.Background(), token)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestConfirmEmail_BadToken(t *testing.T) {
	f := newAuthFixture(t)

	err := f.service.ConfirmEmail(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnprocessableToken)
}

func TestResendVerification(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "pending@example.com", "supersecret", false)
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	require.NoError(t, f.service.ResendVerification(ctx, "pending@example.com"))
	msg := f.mailer.waitForEmail(t)
	assert.Equal(t, "pending@example.com", msg.to)

	// Unknown addresses are not revealed.
	assert.NoError(t, f.service.ResendVerification(ctx, "ghost@example.com"))

	err := f.service.ResendVerification(ctx, "deadpool@example.com")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestUpdateAvatar_InvalidatesCache(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "deadpool@example.com", "supersecret", true)

	seeded, err := f.store.GetByEmail(ctx, "deadpool@example.com")
	require.NoError(t, err)
	require.NoError(t, f.cache.Set(ctx, seeded.Email, seeded))

	updated, err := f.service.UpdateAvatar(ctx, "deadpool@example.com", "https://cdn.example.com/avatar.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatar.png", updated.Avatar)

	_, err = f.cache.Get(ctx, "deadpool@example.com")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGravatarURL(t *testing.T) {
	url := gravatarURL("  Deadpool@Example.COM ")

	assert.True(t, strings.HasPrefix(url, "https://www.gravatar.com/avatar/"))
	assert.Equal(t, gravatarURL("deadpool@example.com"), url)
}
