package contact

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"contacts-api/internal/auth"
	"contacts-api/internal/httputil"
	"contacts-api/internal/logging"
)

const (
	defaultLimit = 10
	dateLayout   = "2006-01-02"
)

// Handler contains HTTP handlers for contact endpoints
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

// ContactRequest represents the create/update request body
type ContactRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
}

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
}

func toContactResponse(c *Contact) ContactResponse {
	return ContactResponse{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		DateOfBirth: c.DateOfBirth.Format(dateLayout),
	}
}

func toContactResponses(contacts []Contact) []ContactResponse {
	responses := make([]ContactResponse, 0, len(contacts))
	for i := range contacts {
		responses = append(responses, toContactResponse(&contacts[i]))
	}
	return responses
}

func (req *ContactRequest) fields() (Fields, error) {
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Phone == "" {
		return Fields{}, errors.New("first_name, last_name, email and phone are required")
	}

	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		return Fields{}, errors.New("date_of_birth must be formatted as YYYY-MM-DD")
	}

	return Fields{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: dob,
	}, nil
}

// Search lists contacts, optionally filtered by exact first name, last name
// or email (OR semantics)
// @Summary      List or search contacts
// @Tags         contacts
// @Produce      json
// @Security     BearerAuth
// @Param        skip query int false "Rows to skip (unfiltered listing only)"
// @Param        limit query int false "Page size (unfiltered listing only)"
// @Param        first_name query string false "Exact first name"
// @Param        last_name query string false "Exact last name"
// @Param        email query string false "Exact email"
// @Success      200 {array} ContactResponse
// @Failure      404 {object} httputil.ErrorResponse "No matching contacts"
// @Router       /api/contacts [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	skip, limit := pagination(r)
	filters := SearchFilters{
		FirstName: r.URL.Query().Get("first_name"),
		LastName:  r.URL.Query().Get("last_name"),
		Email:     r.URL.Query().Get("email"),
	}

	contacts, err := h.service.Search(r.Context(), current.ID, skip, limit, filters)
	if err != nil {
		logger.Error("contact search failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to search contacts", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if len(contacts) == 0 {
		httputil.RespondErrorWithCode(w, "contacts with requested parameters not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	httputil.RespondJSON(w, toContactResponses(contacts), http.StatusOK)
}

// Birthdays lists contacts with birthdays in the next 7 days
// @Summary      Upcoming birthdays
// @Tags         contacts
// @Produce      json
// @Security     BearerAuth
// @Param        skip query int false "Rows to skip"
// @Param        limit query int false "Page size"
// @Success      200 {array} ContactResponse
// @Failure      404 {object} httputil.ErrorResponse "No upcoming birthdays"
// @Router       /api/contacts/birthdays [get]
func (h *Handler) Birthdays(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	skip, limit := pagination(r)

	contacts, err := h.service.BirthdaysWithinWeek(r.Context(), current.ID, skip, limit)
	if err != nil {
		logger.Error("birthday query failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to query birthdays", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if len(contacts) == 0 {
		httputil.RespondErrorWithCode(w, "contacts with birthdays for the next 7 days not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	httputil.RespondJSON(w, toContactResponses(contacts), http.StatusOK)
}

// Get returns a single contact by id
// @Summary      Get contact by id
// @Tags         contacts
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Contact id"
// @Success      200 {object} ContactResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/contacts/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := contactID(r)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid contact id", httputil.CodeInvalidQueryParam, http.StatusBadRequest)
		return
	}

	found, err := h.service.FindByID(r.Context(), current.ID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "contact with requested id not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("contact lookup failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get contact", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, toContactResponse(found), http.StatusOK)
}

// Create inserts a new contact
// @Summary      Create contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ContactRequest true "Contact fields"
// @Success      201 {object} ContactResponse
// @Failure      409 {object} httputil.ErrorResponse "Email or phone already exists"
// @Router       /api/contacts [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	fields, err := decodeContactRequest(r)
	if err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), current.ID, fields)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			logger.Warn("contact creation conflict", "email", fields.Email)
			httputil.RespondErrorWithCode(w, "contact email or phone already exists", httputil.CodeConflict, http.StatusConflict)
			return
		}
		logger.Error("contact creation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create contact", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("contact created", "contact_id", created.ID)
	httputil.RespondJSON(w, toContactResponse(created), http.StatusCreated)
}

// Update overwrites all fields of an existing contact
// @Summary      Update contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Contact id"
// @Param        request body ContactRequest true "Contact fields"
// @Success      200 {object} ContactResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /api/contacts/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := contactID(r)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid contact id", httputil.CodeInvalidQueryParam, http.StatusBadRequest)
		return
	}

	fields, err := decodeContactRequest(r)
	if err != nil {
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), current.ID, id, fields)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "contact with requested id not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrDuplicate) {
			httputil.RespondErrorWithCode(w, "contact email or phone already exists", httputil.CodeConflict, http.StatusConflict)
			return
		}
		logger.Error("contact update failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update contact", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, toContactResponse(updated), http.StatusOK)
}

// Delete removes a contact
// @Summary      Delete contact
// @Tags         contacts
// @Security     BearerAuth
// @Param        id path int true "Contact id"
// @Success      204
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/contacts/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "could not validate credentials", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := contactID(r)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid contact id", httputil.CodeInvalidQueryParam, http.StatusBadRequest)
		return
	}

	removed, err := h.service.Remove(r.Context(), current.ID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "contact with requested id not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("contact deletion failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete contact", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("contact deleted", "contact_id", removed.ID)
	w.WriteHeader(http.StatusNoContent)
}

func decodeContactRequest(r *http.Request) (Fields, error) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return Fields{}, errors.New("invalid request body")
	}
	return req.fields()
}

func contactID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func pagination(r *http.Request) (skip, limit int) {
	skip = queryInt(r, "skip", 0)
	limit = queryInt(r, "limit", defaultLimit)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return skip, limit
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
