package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"contacts-api/internal/httputil"
	"contacts-api/internal/logging"
	"contacts-api/internal/user"
)

// Handler contains HTTP handlers for authentication and user endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RequestEmailRequest asks for the verification email to be re-sent
type RequestEmailRequest struct {
	Email string `json:"email"`
}

// UpdateAvatarRequest sets a new avatar URL for the current user
type UpdateAvatarRequest struct {
	Avatar string `json:"avatar"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Confirmed bool      `json:"confirmed"`
	Avatar    string    `json:"avatar,omitempty"`
}

// SignupResponse represents the signup response
type SignupResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

// MessageResponse is a plain informational response
type MessageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Confirmed: u.Confirmed,
		Avatar:    u.Avatar,
	}
}

// Signup handles user registration
// @Summary      Register a new user
// @Description  Create a new user account. A verification email will be sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup credentials"
// @Success      201 {object} SignupResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Router       /api/auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("signup failed: email already exists", "email", req.Email)
			httputil.RespondErrorWithCode(w, "account already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
			return
		}
		if isValidationError(err) {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}
		logger.Error("signup failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user created", "user_id", newUser.ID, "email", newUser.Email)

	httputil.RespondJSON(w, SignupResponse{
		User:    toUserResponse(newUser),
		Message: "User successfully created. Check your email for confirmation.",
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate and receive an access/refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} TokenPair
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials or unconfirmed email"
// @Router       /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials", "email", req.Email)
			httputil.RespondErrorWithCode(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		if errors.Is(err, ErrEmailNotConfirmed) {
			logger.Warn("login failed: email not confirmed", "email", req.Email)
			httputil.RespondErrorWithCode(w, "email not confirmed", httputil.CodeEmailNotConfirmed, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to log in", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in", "email", req.Email)
	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary      Refresh tokens
// @Description  Present the refresh token as a bearer credential to receive a new pair
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} TokenPair
// @Failure      401 {object} httputil.ErrorResponse "Invalid, revoked or wrong-scope token"
// @Router       /api/auth/refresh_token [get]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token, ok := BearerToken(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing or malformed authorization header", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrInvalidScope) {
			logger.Warn("token refresh rejected")
			httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}
		logger.Error("token refresh failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to refresh tokens", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// Logout revokes the current user's refresh token
// @Summary      Log out
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), current); err != nil {
		logger.Error("logout failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to log out", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged out", "email", current.Email)
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmEmail consumes an email-verification token
// @Summary      Confirm email address
// @Tags         auth
// @Produce      json
// @Param        token path string true "Email verification token"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Unknown user"
// @Failure      422 {object} httputil.ErrorResponse "Malformed or expired token"
// @Router       /api/auth/confirmed_email/{token} [get]
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := chi.URLParam(r, "token")

	err := h.service.ConfirmEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrAlreadyConfirmed) {
			httputil.RespondJSON(w, MessageResponse{Message: "Your email is already confirmed"}, http.StatusOK)
			return
		}
		if errors.Is(err, ErrUnprocessableToken) {
			logger.Warn("email confirmation rejected: bad token")
			httputil.RespondErrorWithCode(w, "invalid token for email verification", httputil.CodeUnprocessableToken, http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, ErrVerificationFailed) {
			logger.Warn("email confirmation rejected: unknown user")
			httputil.RespondErrorWithCode(w, "verification error", httputil.CodeVerificationError, http.StatusBadRequest)
			return
		}
		logger.Error("email confirmation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to confirm email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, MessageResponse{Message: "Email confirmed"}, http.StatusOK)
}

// RequestEmail re-sends the verification email
// @Summary      Request verification email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RequestEmailRequest true "Account email"
// @Success      200 {object} MessageResponse
// @Router       /api/auth/request_email [post]
func (h *Handler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RequestEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ResendVerification(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, ErrAlreadyConfirmed) {
			httputil.RespondJSON(w, MessageResponse{Message: "Your email is already confirmed"}, http.StatusOK)
			return
		}
		logger.Error("resend verification failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to request email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, MessageResponse{Message: "Check your email for confirmation."}, http.StatusOK)
}

// Me returns the authenticated user
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, toUserResponse(current), http.StatusOK)
}

// UpdateAvatar sets a new avatar URL for the authenticated user
// @Summary      Update avatar
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateAvatarRequest true "Avatar URL"
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/users/avatar [patch]
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Avatar == "" {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateAvatar(r.Context(), current.Email, req.Avatar)
	if err != nil {
		logger.Error("avatar update failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update avatar", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, toUserResponse(updated), http.StatusOK)
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrUsernameRequired) ||
		errors.Is(err, ErrEmailRequired) ||
		errors.Is(err, ErrInvalidEmailFormat) ||
		errors.Is(err, ErrPasswordRequired) ||
		errors.Is(err, ErrPasswordTooShort)
}
