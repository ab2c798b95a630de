package contact

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("contact not found")
	// ErrDuplicate reports a store-enforced uniqueness violation on email
	// or phone, which are unique across all contacts.
	ErrDuplicate = errors.New("contact email or phone already exists")
)

// Repository is the persistent contact storage. Every operation is scoped
// to the owning user; no call can reach another user's contacts.
type Repository interface {
	// ListPage returns the owner's contacts with offset pagination.
	ListPage(ctx context.Context, ownerID uuid.UUID, skip, limit int) ([]Contact, error)
	FindByFirstName(ctx context.Context, ownerID uuid.UUID, firstName string) ([]Contact, error)
	FindByLastName(ctx context.Context, ownerID uuid.UUID, lastName string) ([]Contact, error)
	FindByEmail(ctx context.Context, ownerID uuid.UUID, email string) ([]Contact, error)
	GetByID(ctx context.Context, ownerID uuid.UUID, id int64) (*Contact, error)
	Insert(ctx context.Context, c *Contact) (*Contact, error)
	// Update overwrites all mutable fields of the owned contact.
	Update(ctx context.Context, c *Contact) (*Contact, error)
	// Delete removes the owned contact and returns the removed row.
	Delete(ctx context.Context, ownerID uuid.UUID, id int64) (*Contact, error)
}
