package labor

import (
	"context"
	"errors"
	"time"
)

// Type is one billable labor category.
type Type struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RateCents int64     `json:"rate_cents"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows GetAll.
type Filter struct {
	ActiveOnly bool
	Search     string
}

var (
	ErrNotFound    = errors.New("labor: not found")
	ErrMissingName = errors.New("labor: name is required")
)

// Service exposes labor-type CRUD.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Type, error)
	GetByID(ctx context.Context, id string) (*Type, error)
	Create(ctx context.Context, t Type) (Type, error)
	Update(ctx context.Context, id string, patch map[string]any) (Type, error)
	Delete(ctx context.Context, id string) error
}
