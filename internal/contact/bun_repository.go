package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"contacts-api/internal/database"
)

// BunRepository is the Postgres-backed Repository implementation
type BunRepository struct {
	db *bun.DB
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

func (r *BunRepository) ListPage(ctx context.Context, ownerID uuid.UUID, skip, limit int) ([]Contact, error) {
	var dbContacts []database.Contact
	err := r.db.NewSelect().
		Model(&dbContacts).
		Where("user_id = ?", ownerID).
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	return mapDBContactsToModels(dbContacts), nil
}

func (r *BunRepository) FindByFirstName(ctx context.Context, ownerID uuid.UUID, firstName string) ([]Contact, error) {
	return r.findExact(ctx, ownerID, "first_name", firstName)
}

func (r *BunRepository) FindByLastName(ctx context.Context, ownerID uuid.UUID, lastName string) ([]Contact, error) {
	return r.findExact(ctx, ownerID, "last_name", lastName)
}

func (r *BunRepository) FindByEmail(ctx context.Context, ownerID uuid.UUID, email string) ([]Contact, error) {
	return r.findExact(ctx, ownerID, "email", email)
}

func (r *BunRepository) findExact(ctx context.Context, ownerID uuid.UUID, column, value string) ([]Contact, error) {
	var dbContacts []database.Contact
	err := r.db.NewSelect().
		Model(&dbContacts).
		Where("user_id = ?", ownerID).
		Where("? = ?", bun.Ident(column), value).
		Order("id ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to find contacts by %s: %w", column, err)
	}

	return mapDBContactsToModels(dbContacts), nil
}

func (r *BunRepository) GetByID(ctx context.Context, ownerID uuid.UUID, id int64) (*Contact, error) {
	dbContact := new(database.Contact)
	err := r.db.NewSelect().
		Model(dbContact).
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return mapDBContactToModel(dbContact), nil
}

func (r *BunRepository) Insert(ctx context.Context, c *Contact) (*Contact, error) {
	dbContact := mapModelToDBContact(c)

	_, err := r.db.NewInsert().
		Model(dbContact).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	return mapDBContactToModel(dbContact), nil
}

func (r *BunRepository) Update(ctx context.Context, c *Contact) (*Contact, error) {
	dbContact := new(database.Contact)
	err := r.db.NewUpdate().
		Model(dbContact).
		Set("first_name = ?", c.FirstName).
		Set("last_name = ?", c.LastName).
		Set("email = ?", c.Email).
		Set("phone = ?", c.Phone).
		Set("date_of_birth = ?", c.DateOfBirth).
		Where("id = ?", c.ID).
		Where("user_id = ?", c.UserID).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	return mapDBContactToModel(dbContact), nil
}

func (r *BunRepository) Delete(ctx context.Context, ownerID uuid.UUID, id int64) (*Contact, error) {
	dbContact := new(database.Contact)
	err := r.db.NewDelete().
		Model(dbContact).
		Where("id = ?", id).
		Where("user_id = ?", ownerID).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete contact: %w", err)
	}

	return mapDBContactToModel(dbContact), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func mapDBContactToModel(dbc *database.Contact) *Contact {
	return &Contact{
		ID:          dbc.ID,
		FirstName:   dbc.FirstName,
		LastName:    dbc.LastName,
		Email:       dbc.Email,
		Phone:       dbc.Phone,
		DateOfBirth: dbc.DateOfBirth,
		UserID:      dbc.UserID,
	}
}

func mapDBContactsToModels(dbContacts []database.Contact) []Contact {
	contacts := make([]Contact, 0, len(dbContacts))
	for i := range dbContacts {
		contacts = append(contacts, *mapDBContactToModel(&dbContacts[i]))
	}
	return contacts
}

func mapModelToDBContact(c *Contact) *database.Contact {
	return &database.Contact{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		DateOfBirth: c.DateOfBirth,
		UserID:      c.UserID,
	}
}
