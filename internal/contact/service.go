package contact

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchFilters are the optional exact-match filters for Search. Empty
// fields are ignored.
type SearchFilters struct {
	FirstName string
	LastName  string
	Email     string
}

func (f SearchFilters) empty() bool {
	return f.FirstName == "" && f.LastName == "" && f.Email == ""
}

// Fields carries the full set of mutable contact fields for create and
// update; updates overwrite every field.
type Fields struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	DateOfBirth time.Time
}

// Service implements the owner-scoped contact queries on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Search returns the owner's contacts. With no filters the result is
// paginated by skip/limit. With one or more filters it is the deduplicated
// union of exact matches across the supplied filters, unpaginated.
func (s *Service) Search(ctx context.Context, ownerID uuid.UUID, skip, limit int, filters SearchFilters) ([]Contact, error) {
	if filters.empty() {
		return s.repo.ListPage(ctx, ownerID, skip, limit)
	}

	seen := make(map[int64]struct{})
	union := make([]Contact, 0)

	merge := func(contacts []Contact) {
		for _, c := range contacts {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			union = append(union, c)
		}
	}

	if filters.FirstName != "" {
		matches, err := s.repo.FindByFirstName(ctx, ownerID, filters.FirstName)
		if err != nil {
			return nil, err
		}
		merge(matches)
	}
	if filters.LastName != "" {
		matches, err := s.repo.FindByLastName(ctx, ownerID, filters.LastName)
		if err != nil {
			return nil, err
		}
		merge(matches)
	}
	if filters.Email != "" {
		matches, err := s.repo.FindByEmail(ctx, ownerID, filters.Email)
		if err != nil {
			return nil, err
		}
		merge(matches)
	}

	return union, nil
}

// FindByID returns the owner's contact or ErrNotFound.
func (s *Service) FindByID(ctx context.Context, ownerID uuid.UUID, id int64) (*Contact, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

// BirthdaysWithinWeek fetches the owner's contacts with the given
// pagination window first, then keeps those whose birthday, re-anchored to
// the current year, falls within the next 0-7 days inclusive. Birthdays
// that cross the year boundary re-anchor to a date already in the past and
// are excluded; that is long-standing documented behavior.
func (s *Service) BirthdaysWithinWeek(ctx context.Context, ownerID uuid.UUID, skip, limit int) ([]Contact, error) {
	page, err := s.repo.ListPage(ctx, ownerID, skip, limit)
	if err != nil {
		return nil, err
	}

	today := s.now()
	upcoming := make([]Contact, 0)
	for _, c := range page {
		if birthdayInWindow(c.DateOfBirth, today) {
			upcoming = append(upcoming, c)
		}
	}

	return upcoming, nil
}

// Create inserts a contact owned by the caller.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, fields Fields) (*Contact, error) {
	return s.repo.Insert(ctx, &Contact{
		FirstName:   fields.FirstName,
		LastName:    fields.LastName,
		Email:       fields.Email,
		Phone:       fields.Phone,
		DateOfBirth: fields.DateOfBirth,
		UserID:      ownerID,
	})
}

// Update overwrites all fields of the owner's contact.
func (s *Service) Update(ctx context.Context, ownerID uuid.UUID, id int64, fields Fields) (*Contact, error) {
	return s.repo.Update(ctx, &Contact{
		ID:          id,
		FirstName:   fields.FirstName,
		LastName:    fields.LastName,
		Email:       fields.Email,
		Phone:       fields.Phone,
		DateOfBirth: fields.DateOfBirth,
		UserID:      ownerID,
	})
}

// Remove deletes the owner's contact and returns the removed row.
func (s *Service) Remove(ctx context.Context, ownerID uuid.UUID, id int64) (*Contact, error) {
	return s.repo.Delete(ctx, ownerID, id)
}

// birthdayInWindow reports whether dob, re-anchored to today's year, falls
// 0 to 7 days from today inclusive. Feb 29 normalizes to Mar 1 in non-leap
// years.
func birthdayInWindow(dob, today time.Time) bool {
	anchored := time.Date(today.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, today.Location())
	days := anchored.YearDay() - today.YearDay()
	return days >= 0 && days <= 7
}
