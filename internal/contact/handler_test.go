package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contacts-api/internal/auth"
	"contacts-api/internal/logging"
	"contacts-api/internal/user"
)

// memoryUserStore is a minimal auth.UserStore for handler-level tests.
type memoryUserStore struct {
	users map[string]*user.User
}

func (s *memoryUserStore) Create(ctx context.Context, username, email, passwordHash, avatar string) (*user.User, error) {
	if _, ok := s.users[email]; ok {
		return nil, user.ErrDuplicateEmail
	}
	created := &user.User{ID: uuid.New(), Username: username, Email: email, Password: passwordHash, Avatar: avatar}
	s.users[email] = created
	snapshot := *created
	return &snapshot, nil
}

func (s *memoryUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	existing, ok := s.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	snapshot := *existing
	return &snapshot, nil
}

func (s *memoryUserStore) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	for _, existing := range s.users {
		if existing.ID == userID {
			existing.RefreshToken = token
			return nil
		}
	}
	return user.ErrNotFound
}

func (s *memoryUserStore) ConfirmEmail(ctx context.Context, email string) error {
	existing, ok := s.users[email]
	if !ok {
		return user.ErrNotFound
	}
	existing.Confirmed = true
	return nil
}

func (s *memoryUserStore) UpdateAvatar(ctx context.Context, email, url string) (*user.User, error) {
	existing, ok := s.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	existing.Avatar = url
	snapshot := *existing
	return &snapshot, nil
}

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(ctx context.Context, toEmail, username, token string) error {
	return nil
}

// newTestRouter wires the login endpoint and the protected contact routes the
// way the production router does, without rate limiting. The returned service
// allows tests to pin the clock.
func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()

	logger := logging.NewLogger(true)
	tokens, err := auth.NewJWTService("handler-test-secret", "HS256")
	require.NoError(t, err)

	hash, err := auth.HashPassword("supersecret", 4)
	require.NoError(t, err)

	store := &memoryUserStore{users: map[string]*user.User{
		"deadpool@example.com": {
			ID:        uuid.New(),
			Username:  "deadpool",
			Email:     "deadpool@example.com",
			Password:  hash,
			Confirmed: true,
		},
	}}

	authService := auth.NewService(store, auth.NewMemorySessionCache(), tokens, noopMailer{}, logger, 4, 15*time.Minute, 7*24*time.Hour)
	authHandler := auth.NewHandler(authService, logger)
	authMiddleware := auth.NewMiddleware(authService)
	contactService := NewService(newFakeRepository())
	contactHandler := NewHandler(contactService, logger)

	r := chi.NewRouter()
	r.Post("/api/auth/login", authHandler.Login)
	r.Route("/api/contacts", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/", contactHandler.Search)
		r.Post("/", contactHandler.Create)
		r.Get("/birthdays", contactHandler.Birthdays)
		r.Get("/{id}", contactHandler.Get)
		r.Put("/{id}", contactHandler.Update)
		r.Delete("/{id}", contactHandler.Delete)
	})

	return r, contactService
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "deadpool@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair auth.TokenPair
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pair))
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken
}

func TestContactEndpoints_RequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/contacts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/contacts", "not-a-valid-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContactLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router)

	// Empty account: search is a 404, not an empty list.
	rec := doJSON(t, router, http.MethodGet, "/api/contacts", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/contacts", token, ContactRequest{
		FirstName:   "Wade",
		LastName:    "Wilson",
		Email:       "wade@example.com",
		Phone:       "555-0100",
		DateOfBirth: "1974-11-22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created ContactResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "Wade", created.FirstName)
	assert.Equal(t, "1974-11-22", created.DateOfBirth)

	// Duplicate email is a conflict.
	rec = doJSON(t, router, http.MethodPost, "/api/contacts", token, ContactRequest{
		FirstName:   "Other",
		LastName:    "Person",
		Email:       "wade@example.com",
		Phone:       "555-0199",
		DateOfBirth: "1980-01-01",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/contacts?email=wade%40example.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var found []ContactResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&found))
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	rec = doJSON(t, router, http.MethodPut, "/api/contacts/"+strconv.FormatInt(created.ID, 10), token, ContactRequest{
		FirstName:   "Wade",
		LastName:    "Wilson",
		Email:       "wade.wilson@example.com",
		Phone:       "555-0100",
		DateOfBirth: "1974-11-22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated ContactResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, "wade.wilson@example.com", updated.Email)

	rec = doJSON(t, router, http.MethodDelete, "/api/contacts/"+strconv.FormatInt(created.ID, 10), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/contacts/"+strconv.FormatInt(created.ID, 10), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContactValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router)

	// Missing phone.
	rec := doJSON(t, router, http.MethodPost, "/api/contacts", token, ContactRequest{
		FirstName:   "Wade",
		LastName:    "Wilson",
		Email:       "wade@example.com",
		DateOfBirth: "1974-11-22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad date format.
	rec = doJSON(t, router, http.MethodPost, "/api/contacts", token, ContactRequest{
		FirstName:   "Wade",
		LastName:    "Wilson",
		Email:       "wade@example.com",
		Phone:       "555-0100",
		DateOfBirth: "22/11/1974",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad path parameter.
	rec = doJSON(t, router, http.MethodGet, "/api/contacts/not-a-number", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBirthdaysEndpoint(t *testing.T) {
	router, contactService := newTestRouter(t)
	contactService.now = func() time.Time {
		return time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	}
	token := login(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/contacts/birthdays", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/contacts", token, ContactRequest{
		FirstName:   "Wade",
		LastName:    "Wilson",
		Email:       "wade@example.com",
		Phone:       "555-0100",
		DateOfBirth: "1974-03-13",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/contacts", token, ContactRequest{
		FirstName:   "Peter",
		LastName:    "Parker",
		Email:       "peter@example.com",
		Phone:       "555-0101",
		DateOfBirth: "1995-08-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/contacts/birthdays", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var upcoming []ContactResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&upcoming))
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Wade", upcoming[0].FirstName)
}

