package contact

import (
	"context"
	"errors"
	"time"
)

// Contact is a customer or site contact.
type Contact struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows GetAll.
type Filter struct {
	ClientID string
	Role     string
	Search   string // matched against name, email and phone
}

var (
	ErrNotFound      = errors.New("contact: not found")
	ErrMissingClient = errors.New("contact: client_id is required")
	ErrMissingName   = errors.New("contact: name is required")
)

// Service exposes contact CRUD plus the phone-number lookup used by the
// ticketing flow. The lookup goes through a server-side procedure that
// normalizes phone formats.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Contact, error)
	GetByID(ctx context.Context, id string) (*Contact, error)
	Create(ctx context.Context, c Contact) (Contact, error)
	Update(ctx context.Context, id string, patch map[string]any) (Contact, error)
	Delete(ctx context.Context, id string) error

	FindByPhone(ctx context.Context, phone string) (*Contact, error)
}
